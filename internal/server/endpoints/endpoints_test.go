package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cedesk/cedesk/internal/defra"
	"github.com/cedesk/cedesk/internal/extract"
	"github.com/cedesk/cedesk/internal/llmcall"
	"github.com/cedesk/cedesk/internal/providers"
	"github.com/cedesk/cedesk/internal/requirements"
	"github.com/cedesk/cedesk/internal/sources"
	"github.com/cedesk/cedesk/internal/svcctx"
)

// validModelOutput is a model response that passes shape validation and the
// schema check, with confidence above the review threshold.
const validModelOutput = `{
	"state_code": "CA",
	"reporting_period": {"type": "biennial"},
	"hours": {"accrual_method": "fixed_per_period", "total_hours": 24},
	"extraction_confidence": 0.92,
	"needs_human_review": false
}`

// graphqlStub is a fake DefraDB that answers every GraphQL request with the
// configured response and records the queries it received.
type graphqlStub struct {
	status  int
	body    string
	queries []string
}

func (g *graphqlStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req defra.GQLRequest
		_ = json.Unmarshal(body, &req)
		g.queries = append(g.queries, req.Query)

		status := g.status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, g.body)
	}
}

func newTestServices(t *testing.T, stub *graphqlStub, llm providers.LLMClient) *svcctx.Services {
	t.Helper()

	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	client := defra.NewClient(srv.URL)
	registry := providers.NewRegistry()
	if llm != nil {
		registry.RegisterLLM(providers.OpenAIName, llm)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &svcctx.Services{
		DefraClient:      client,
		Registry:         registry,
		Logger:           logger,
		RequirementStore: requirements.NewStore(client),
		SourceLibrary:    sources.NewLibrary(client, logger),
		LLMCallStore:     llmcall.NewStore(client),
	}
}

func doRequest(t *testing.T, svcs *svcctx.Services, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(svcctx.WithServices(req.Context(), svcs))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body %q: %v", w.Body.String(), err)
	}
	return resp.Error
}

func TestExtractEndpointSuccess(t *testing.T) {
	stub := &graphqlStub{body: `{"data": {"upsert_CERequirement": [{"_docID": "bae-abc123"}]}}`}
	mock := &providers.MockLLMClient{Response: validModelOutput}
	svcs := newTestServices(t, stub, mock)

	ep := &ExtractEndpoint{}
	_, _, handler := ep.Route()

	body := `{"state_code": "ca", "source_text": "Licensees shall complete 24 hours of continuing education each biennial renewal period."}`
	w := doRequest(t, svcs, handler, "POST", "/api/requirements/extract", body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result extract.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.Data == nil {
		t.Fatal("expected data in result")
	}
	if result.Data.StateCode != "CA" {
		t.Errorf("expected state code CA, got %q", result.Data.StateCode)
	}
	if result.NeedsHumanReview {
		t.Errorf("unexpected review flag, violations: %v", result.Violations)
	}
	if result.Raw["state_code"] != "CA" {
		t.Errorf("expected raw state_code CA, got %v", result.Raw["state_code"])
	}

	if len(stub.queries) == 0 {
		t.Fatal("expected an upsert query")
	}
	if !strings.Contains(stub.queries[0], "upsert_CERequirement") {
		t.Errorf("expected upsert mutation, got: %s", stub.queries[0])
	}
}

func TestExtractEndpointMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		llm  providers.LLMClient
		want string
	}{
		{"no state code", `{"source_text": "some statute text"}`, &providers.MockLLMClient{Response: validModelOutput}, "Missing field: state_code"},
		{"no source text", `{"state_code": "CA"}`, &providers.MockLLMClient{Response: validModelOutput}, "Missing field: source_text"},
		// A bad request wins over missing credentials.
		{"no provider either", `{"state_code": "CA"}`, nil, "Missing field: source_text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &graphqlStub{body: `{"data": {}}`}
			svcs := newTestServices(t, stub, tt.llm)

			ep := &ExtractEndpoint{}
			_, _, handler := ep.Route()
			w := doRequest(t, svcs, handler, "POST", "/api/requirements/extract", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if got := errorBody(t, w); got != tt.want {
				t.Errorf("expected error %q, got %q", tt.want, got)
			}
			if len(stub.queries) != 0 {
				t.Errorf("expected no persistence calls, got %d", len(stub.queries))
			}
		})
	}
}

func TestExtractEndpointNoProvider(t *testing.T) {
	stub := &graphqlStub{body: `{"data": {}}`}
	svcs := newTestServices(t, stub, nil)

	ep := &ExtractEndpoint{}
	_, _, handler := ep.Route()
	body := `{"state_code": "CA", "source_text": "some statute text"}`
	w := doRequest(t, svcs, handler, "POST", "/api/requirements/extract", body)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if got := errorBody(t, w); got != providers.ErrMissingAPIKey.Error() {
		t.Errorf("expected missing key error, got %q", got)
	}
}

func TestExtractEndpointProviderStatusPassThrough(t *testing.T) {
	stub := &graphqlStub{body: `{"data": {}}`}
	mock := &providers.MockLLMClient{
		Err: &providers.APIError{StatusCode: 429, Message: "rate limited"},
	}
	svcs := newTestServices(t, stub, mock)

	ep := &ExtractEndpoint{}
	_, _, handler := ep.Route()
	body := `{"state_code": "CA", "source_text": "some statute text"}`
	w := doRequest(t, svcs, handler, "POST", "/api/requirements/extract", body)

	if w.Code != 429 {
		t.Fatalf("expected 429 passed through, got %d", w.Code)
	}
	if got := errorBody(t, w); got != "rate limited" {
		t.Errorf("expected provider message, got %q", got)
	}
}

func TestExtractEndpointStoreFailure(t *testing.T) {
	stub := &graphqlStub{status: http.StatusInternalServerError, body: `{"errors": [{"message": "datastore unavailable"}]}`}
	mock := &providers.MockLLMClient{Response: validModelOutput}
	svcs := newTestServices(t, stub, mock)

	ep := &ExtractEndpoint{}
	_, _, handler := ep.Route()
	body := `{"state_code": "CA", "source_text": "Licensees shall complete 24 hours of continuing education each biennial renewal period."}`
	w := doRequest(t, svcs, handler, "POST", "/api/requirements/extract", body)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if got := errorBody(t, w); got != "Failed to save extracted data" {
		t.Errorf("expected save failure message, got %q", got)
	}
}

func TestExtractEndpointFlagsLowConfidence(t *testing.T) {
	stub := &graphqlStub{body: `{"data": {"upsert_CERequirement": [{"_docID": "bae-abc123"}]}}`}
	lowConfidence := `{
		"state_code": "CA",
		"reporting_period": {"type": "annual"},
		"hours": {"accrual_method": "fixed_per_period", "total_hours": 12},
		"extraction_confidence": 0.4
	}`
	mock := &providers.MockLLMClient{Response: lowConfidence}
	svcs := newTestServices(t, stub, mock)

	ep := &ExtractEndpoint{}
	_, _, handler := ep.Route()
	body := `{"state_code": "CA", "source_text": "Licensees shall complete 12 hours of continuing education annually."}`
	w := doRequest(t, svcs, handler, "POST", "/api/requirements/extract", body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result extract.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if !result.NeedsHumanReview {
		t.Error("expected review flag for low confidence")
	}
}

func TestExtractEndpointInvalidBody(t *testing.T) {
	stub := &graphqlStub{body: `{"data": {}}`}
	svcs := newTestServices(t, stub, &providers.MockLLMClient{Response: validModelOutput})

	ep := &ExtractEndpoint{}
	_, _, handler := ep.Route()
	w := doRequest(t, svcs, handler, "POST", "/api/requirements/extract", "{not json")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetRequirementNotFound(t *testing.T) {
	stub := &graphqlStub{body: `{"data": {"CERequirement": []}}`}
	svcs := newTestServices(t, stub, nil)

	mux := http.NewServeMux()
	ep := &GetRequirementEndpoint{}
	method, path, handler := ep.Route()
	mux.HandleFunc(method+" "+path, handler)

	req := httptest.NewRequest("GET", "/api/requirements/WY", nil)
	req = req.WithContext(svcctx.WithServices(req.Context(), svcs))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if got := errorBody(t, w); !strings.Contains(got, "WY") {
		t.Errorf("expected state in error, got %q", got)
	}
}

func TestGetRequirementFound(t *testing.T) {
	stub := &graphqlStub{body: `{"data": {"CERequirement": [{
		"state_code": "CA",
		"reporting_period_type": "biennial",
		"total_hours_required": 24,
		"needs_human_review": false,
		"category_requirements": "[]",
		"other_requirements": "[]",
		"model_used": "gpt-4.1-mini",
		"extracted_at": "2025-06-01T12:00:00Z",
		"schema_version": "1"
	}]}}`}
	svcs := newTestServices(t, stub, nil)

	mux := http.NewServeMux()
	ep := &GetRequirementEndpoint{}
	method, path, handler := ep.Route()
	mux.HandleFunc(method+" "+path, handler)

	req := httptest.NewRequest("GET", "/api/requirements/ca", nil)
	req = req.WithContext(svcctx.WithServices(req.Context(), svcs))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var rec extract.PersistedRequirement
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	if rec.StateCode != "CA" {
		t.Errorf("expected CA, got %q", rec.StateCode)
	}
	if rec.TotalHoursRequired == nil || *rec.TotalHoursRequired != 24 {
		t.Errorf("expected 24 total hours, got %v", rec.TotalHoursRequired)
	}
}

func TestListRequirements(t *testing.T) {
	stub := &graphqlStub{body: `{"data": {"CERequirement": [
		{"state_code": "CA", "needs_human_review": false, "extracted_at": "2025-06-01T12:00:00Z"},
		{"state_code": "WA", "needs_human_review": true, "extracted_at": "2025-06-02T12:00:00Z"}
	]}}`}
	svcs := newTestServices(t, stub, nil)

	ep := &ListRequirementsEndpoint{}
	_, _, handler := ep.Route()
	w := doRequest(t, svcs, handler, "GET", "/api/requirements", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ListRequirementsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected 2 records, got %d", resp.Count)
	}
}

func TestAddSourceValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"both text and pdf", `{"state_code": "CA", "text": "abc", "pdf_path": "/tmp/x.pdf"}`},
		{"no state code", `{"text": "abc"}`},
		{"no content", `{"state_code": "CA"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &graphqlStub{body: `{"data": {}}`}
			svcs := newTestServices(t, stub, nil)

			ep := &AddSourceEndpoint{}
			_, _, handler := ep.Route()
			w := doRequest(t, svcs, handler, "POST", "/api/sources", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestListLLMCallsBadQuery(t *testing.T) {
	stub := &graphqlStub{body: `{"data": {"LLMCall": []}}`}
	svcs := newTestServices(t, stub, nil)

	ep := &ListLLMCallsEndpoint{}
	_, _, handler := ep.Route()
	w := doRequest(t, svcs, handler, "GET", "/api/llmcalls?limit=nope", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListLLMCallsFilters(t *testing.T) {
	stub := &graphqlStub{body: `{"data": {"LLMCall": [{"request_id": "req-1", "state_code": "CA", "success": true}]}}`}
	svcs := newTestServices(t, stub, nil)

	ep := &ListLLMCallsEndpoint{}
	_, _, handler := ep.Route()
	w := doRequest(t, svcs, handler, "GET", "/api/llmcalls?state=ca&success=true&limit=5", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp ListLLMCallsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 call, got %d", resp.Count)
	}
	if resp.Calls[0].RequestID != "req-1" {
		t.Errorf("unexpected request id %q", resp.Calls[0].RequestID)
	}

	if len(stub.queries) != 1 {
		t.Fatalf("expected 1 query, got %d", len(stub.queries))
	}
	query := stub.queries[0]
	for _, want := range []string{`state_code: {_eq: "CA"}`, "success: {_eq: true}", "limit: 5"} {
		if !strings.Contains(query, want) {
			t.Errorf("expected query to contain %q, got: %s", want, query)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	ep := &HealthEndpoint{}
	_, _, handler := ep.Route()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected ok status, got %q", resp["status"])
	}
}

func TestAllEndpointsHaveRoutes(t *testing.T) {
	seen := map[string]bool{}
	for _, ep := range All(Config{}) {
		method, path, handler := ep.Route()
		if method == "" || path == "" || handler == nil {
			t.Errorf("endpoint %T has an incomplete route", ep)
		}
		key := method + " " + path
		if seen[key] {
			t.Errorf("duplicate route %s", key)
		}
		seen[key] = true
	}
}
