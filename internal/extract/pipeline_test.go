package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/cedesk/cedesk/internal/providers"
)

type fakeStore struct {
	records []*PersistedRequirement
	err     error
}

func (f *fakeStore) Upsert(ctx context.Context, rec *PersistedRequirement) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, rec)
	return "bae-test", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const conformantOutput = `{
	"state_code": "CA",
	"reporting_period": {"type": "biennial"},
	"hours": {"accrual_method": "fixed_per_period", "total_hours": 24},
	"extraction_confidence": 0.9,
	"needs_human_review": false
}`

func cleanRequest() ExtractionRequest {
	return ExtractionRequest{
		StateCode:  "CA",
		SourceText: "Licensees shall complete 24 hours of continuing education each biennial renewal period.",
	}
}

func TestPipelineRunSuccess(t *testing.T) {
	mock := &providers.MockLLMClient{Response: conformantOutput}
	store := &fakeStore{}
	p := New(DefaultConfig(), mock, store, nil, testLogger())

	result, err := p.Run(context.Background(), cleanRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.NeedsHumanReview {
		t.Errorf("unexpected review flag, violations: %v", result.Violations)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(store.records))
	}
	if store.records[0].StateCode != "CA" {
		t.Errorf("expected CA, got %q", store.records[0].StateCode)
	}

	req := mock.LastRequest()
	if req == nil {
		t.Fatal("expected a chat request")
	}
	if req.Temperature != 0.1 {
		t.Errorf("expected temperature 0.1, got %v", req.Temperature)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Name != "ce_requirement" {
		t.Errorf("expected structured response format, got %+v", req.ResponseFormat)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("expected system+user messages, got %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[1].Content, "CA") {
		t.Error("user prompt should carry the state code")
	}
}

func TestPipelineRunMissingFields(t *testing.T) {
	p := New(DefaultConfig(), &providers.MockLLMClient{}, &fakeStore{}, nil, testLogger())

	tests := []struct {
		req  ExtractionRequest
		want string
	}{
		{ExtractionRequest{SourceText: "text"}, "Missing field: state_code"},
		{ExtractionRequest{StateCode: "CA"}, "Missing field: source_text"},
	}

	for _, tt := range tests {
		_, err := p.Run(context.Background(), tt.req)
		var missing *MissingFieldError
		if !errors.As(err, &missing) {
			t.Fatalf("expected MissingFieldError, got %v", err)
		}
		if err.Error() != tt.want {
			t.Errorf("expected %q, got %q", tt.want, err.Error())
		}
	}
}

func TestPipelineRunParseFailureDegrades(t *testing.T) {
	mock := &providers.MockLLMClient{Response: "I'm sorry, I cannot extract requirements from this text."}
	store := &fakeStore{}
	p := New(DefaultConfig(), mock, store, nil, testLogger())

	result, err := p.Run(context.Background(), cleanRequest())
	if err != nil {
		t.Fatalf("parse failure must not abort the request: %v", err)
	}

	if !result.NeedsHumanReview {
		t.Error("parse failure must flag for review")
	}
	if len(result.Violations) == 0 {
		t.Error("expected a parse violation")
	}
	if len(store.records) != 1 {
		t.Fatal("a best-effort record must still be persisted")
	}
	if store.records[0].AccrualMethod != nil {
		t.Error("empty value should produce nil fields")
	}
}

func TestPipelineRunProviderError(t *testing.T) {
	apiErr := &providers.APIError{StatusCode: 503, Message: "overloaded"}
	mock := &providers.MockLLMClient{Err: apiErr}
	store := &fakeStore{}
	p := New(DefaultConfig(), mock, store, nil, testLogger())

	_, err := p.Run(context.Background(), cleanRequest())
	var got *providers.APIError
	if !errors.As(err, &got) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if got.StatusCode != 503 {
		t.Errorf("expected status 503, got %d", got.StatusCode)
	}
	if len(store.records) != 0 {
		t.Error("no record should be stored on provider failure")
	}
}

func TestPipelineRunStoreError(t *testing.T) {
	mock := &providers.MockLLMClient{Response: conformantOutput}
	store := &fakeStore{err: errors.New("connection refused")}
	p := New(DefaultConfig(), mock, store, nil, testLogger())

	_, err := p.Run(context.Background(), cleanRequest())
	if !errors.Is(err, ErrStoreFailed) {
		t.Fatalf("expected ErrStoreFailed, got %v", err)
	}
}

func TestPipelineRunSchemaViolationFlagsReview(t *testing.T) {
	// Conformant to the shape checks except for an extra property, which the
	// schema check rejects.
	output := `{
		"state_code": "CA",
		"reporting_period": {"type": "biennial"},
		"hours": {"accrual_method": "fixed_per_period"},
		"extraction_confidence": 0.95,
		"bogus_field": true
	}`
	mock := &providers.MockLLMClient{Response: output}
	store := &fakeStore{}
	p := New(DefaultConfig(), mock, store, nil, testLogger())

	result, err := p.Run(context.Background(), cleanRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NeedsHumanReview {
		t.Error("schema violation must flag for review")
	}
	foundSchema := false
	for _, v := range result.Violations {
		if strings.HasPrefix(v, "schema: ") {
			foundSchema = true
		}
	}
	if !foundSchema {
		t.Errorf("expected a schema violation, got %v", result.Violations)
	}
}

func TestPipelineRunStateMismatchFlagsReview(t *testing.T) {
	output := `{
		"state_code": "NV",
		"reporting_period": {"type": "biennial"},
		"hours": {"accrual_method": "fixed_per_period"},
		"extraction_confidence": 0.95
	}`
	mock := &providers.MockLLMClient{Response: output}
	store := &fakeStore{}
	p := New(DefaultConfig(), mock, store, nil, testLogger())

	result, err := p.Run(context.Background(), cleanRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NeedsHumanReview {
		t.Error("state mismatch must flag for review")
	}
	// The record is keyed by the requested state, not the model's claim.
	if store.records[0].StateCode != "CA" {
		t.Errorf("expected record keyed CA, got %q", store.records[0].StateCode)
	}
	if result.Raw["state_code"] != "CA" {
		t.Errorf("raw value should carry the normalized state code, got %v", result.Raw["state_code"])
	}
}

func TestResolveModel(t *testing.T) {
	p := New(DefaultConfig(), &providers.MockLLMClient{}, &fakeStore{}, nil, testLogger())

	tests := []struct {
		requested string
		want      string
	}{
		{"", "gpt-4.1-mini"},
		{"gpt-4o", "gpt-4o"},
		{"gpt-5-experimental", "gpt-4.1-mini"},
	}
	for _, tt := range tests {
		if got := p.ResolveModel(tt.requested); got != tt.want {
			t.Errorf("ResolveModel(%q) = %q, want %q", tt.requested, got, tt.want)
		}
	}
}
