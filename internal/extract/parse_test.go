package extract

import (
	"testing"
)

func TestParseModelOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "bare json",
			raw:  `{"state_code": "CA"}`,
			want: map[string]any{"state_code": "CA"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"state_code\": \"CA\"}\n```",
			want: map[string]any{"state_code": "CA"},
		},
		{
			name: "fence without language tag",
			raw:  "```\n{\"state_code\": \"WA\"}\n```",
			want: map[string]any{"state_code": "WA"},
		},
		{
			name: "json embedded in prose",
			raw:  "Here is the extraction:\n{\"state_code\": \"TX\"}\nLet me know if you need anything else.",
			want: map[string]any{"state_code": "TX"},
		},
		{
			name: "leading whitespace",
			raw:  "\n\n  {\"state_code\": \"NY\"}  \n",
			want: map[string]any{"state_code": "NY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseModelOutput(tt.raw)
			if got.Failed {
				t.Fatalf("unexpected parse failure: %s", got.Reason)
			}
			if len(got.Value) != len(tt.want) {
				t.Fatalf("expected %d keys, got %d", len(tt.want), len(got.Value))
			}
			for k, v := range tt.want {
				if got.Value[k] != v {
					t.Errorf("key %q: expected %v, got %v", k, v, got.Value[k])
				}
			}
		})
	}
}

func TestParseModelOutputFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   \n  "},
		{"prose without json", "I could not extract any requirements."},
		{"truncated json", `{"state_code": "CA", "hours": {`},
		{"json array", `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseModelOutput(tt.raw)
			if !got.Failed {
				t.Fatalf("expected failure, got value %v", got.Value)
			}
			if got.Reason == "" {
				t.Error("expected a failure reason")
			}
		})
	}
}

func TestParseModelOutputFenceEquivalence(t *testing.T) {
	bare := `{"state_code": "CA", "summary": "24 hours biennially"}`
	fenced := "```json\n" + bare + "\n```"

	a := ParseModelOutput(bare)
	b := ParseModelOutput(fenced)
	if a.Failed || b.Failed {
		t.Fatalf("unexpected failure: %v / %v", a.Reason, b.Reason)
	}
	if a.Value["summary"] != b.Value["summary"] {
		t.Errorf("fenced and bare output parsed differently: %v vs %v", a.Value, b.Value)
	}
}
