package defra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func decodeJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func TestClient_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy_500", http.StatusInternalServerError, true},
		{"unhealthy_503", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health-check" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := NewClient(server.URL)
			err := client.HealthCheck(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_HealthCheck_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestClient_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/graphql" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content-type: %s", ct)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"CERequirement": [{"_docID": "abc123", "state_code": "CA"}]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Execute(context.Background(), `{ CERequirement { _docID state_code } }`, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Error() != "" {
		t.Errorf("unexpected GraphQL error: %s", resp.Error())
	}
	if _, ok := resp.Data["CERequirement"]; !ok {
		t.Errorf("expected CERequirement in data, got %+v", resp.Data)
	}
}

func TestClient_Execute_GraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "collection not found"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Execute(context.Background(), `{ Nope { _docID } }`, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.Error() != "collection not found" {
		t.Errorf("expected GraphQL error message, got %q", resp.Error())
	}
}

func TestClient_Upsert(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GQLRequest
		if err := decodeJSONBody(r, &req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		gotQuery = req.Query
		w.Write([]byte(`{"data": {"upsert_CERequirement": [{"_docID": "doc-1"}]}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	docID, err := client.Upsert(context.Background(), "CERequirement",
		map[string]any{"state_code": map[string]any{"_eq": "CA"}},
		map[string]any{"state_code": "CA", "summary": "initial"},
		map[string]any{"state_code": "CA", "summary": "replaced"},
	)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if docID != "doc-1" {
		t.Errorf("expected docID 'doc-1', got %q", docID)
	}
	for _, want := range []string{"upsert_CERequirement", "filter:", "create:", "update:", `_eq: "CA"`} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query missing %q: %s", want, gotQuery)
		}
	}
}

func TestValueToGraphQL(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "null"},
		{"string", "hello", `"hello"`},
		{"string_with_quotes", `say "hi"`, `"say \"hi\""`},
		{"string_with_newline", "a\nb", `"a\nb"`},
		{"int", 42, "42"},
		{"float", 1.5, "1.5"},
		{"bool_true", true, "true"},
		{"list", []any{"a", nil, 3.0}, `["a", null, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := valueToGraphQL(tt.value)
			if err != nil {
				t.Fatalf("valueToGraphQL(%v) error: %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("valueToGraphQL(%v) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}

func TestValueToGraphQL_Time(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	got, err := valueToGraphQL(ts)
	if err != nil {
		t.Fatalf("valueToGraphQL(time) error: %v", err)
	}
	if got != `"2025-06-01T12:00:00Z"` {
		t.Errorf("unexpected time encoding: %s", got)
	}
}

func TestValidateID(t *testing.T) {
	valid := []string{"bae-abc123", "doc_1", "CA"}
	for _, id := range valid {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "has space", `inject") { _docID } }`, strings.Repeat("a", 501)}
	for _, id := range invalid {
		if err := ValidateID(id); err == nil {
			t.Errorf("ValidateID(%q) = nil, want error", id)
		}
	}
}
