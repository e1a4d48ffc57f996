package contract

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSystemPrompt_Fixed(t *testing.T) {
	p := SystemPrompt()
	if p == "" {
		t.Fatal("system prompt is empty")
	}
	if !strings.Contains(p, "continuing-education") {
		t.Fatalf("system prompt missing domain instruction: %q", p)
	}
	// Deterministic: two calls produce identical text.
	if p != SystemPrompt() {
		t.Fatal("system prompt is not stable across calls")
	}
}

func TestUserPrompt_Interpolation(t *testing.T) {
	got := UserPrompt(UserPromptData{
		StateCode:  "CO",
		StateName:  "Colorado",
		SourceText: "CPAs must complete 80 hours every two years.",
	})
	if !strings.Contains(got, "Colorado (CO)") {
		t.Fatalf("user prompt missing jurisdiction: %q", got)
	}
	if !strings.Contains(got, "80 hours every two years") {
		t.Fatalf("user prompt missing source text: %q", got)
	}
}

func TestUserPrompt_CodeOnly(t *testing.T) {
	got := UserPrompt(UserPromptData{StateCode: "TX", SourceText: "..."})
	if !strings.Contains(got, "jurisdiction TX") {
		t.Fatalf("user prompt should fall back to state code: %q", got)
	}
}

func TestSchemaJSON_RoundTrips(t *testing.T) {
	raw, err := SchemaJSON()
	if err != nil {
		t.Fatalf("SchemaJSON() error = %v", err)
	}

	var wrapper struct {
		Type       string `json:"type"`
		JSONSchema struct {
			Name   string         `json:"name"`
			Strict bool           `json:"strict"`
			Schema map[string]any `json:"schema"`
		} `json:"json_schema"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		t.Fatalf("schema JSON does not parse: %v", err)
	}
	if wrapper.Type != "json_schema" || !wrapper.JSONSchema.Strict {
		t.Fatalf("unexpected wrapper: %+v", wrapper)
	}
	if wrapper.JSONSchema.Name != "ce_requirement" {
		t.Fatalf("unexpected schema name: %s", wrapper.JSONSchema.Name)
	}
	if wrapper.JSONSchema.Schema["additionalProperties"] != false {
		t.Fatal("top-level schema must set additionalProperties: false")
	}
}

func TestValidate_ConformantDocument(t *testing.T) {
	var doc any
	err := json.Unmarshal([]byte(`{
		"state_code": "CO",
		"reporting_period": {"type": "biennial", "months": 24, "start_rule": "Jan 1 of even years", "end_rule": "Dec 31 of odd years"},
		"hours": {"accrual_method": "fixed_per_period", "total_hours": 80, "accrual_rate": null, "accrual_period": null, "prorating_rule": null}
	}`), &doc)
	if err != nil {
		t.Fatalf("test document does not parse: %v", err)
	}
	if err := Validate(doc); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate_RejectsMalformedReportingPeriod(t *testing.T) {
	var doc any
	err := json.Unmarshal([]byte(`{
		"state_code": "CO",
		"reporting_period": {"type": "biennial", "months": 24},
		"hours": {"accrual_method": "fixed_per_period"}
	}`), &doc)
	if err != nil {
		t.Fatalf("test document does not parse: %v", err)
	}
	if err := Validate(doc); err == nil {
		t.Fatal("Validate() should reject a reporting_period matching none of the three shapes")
	}
}
