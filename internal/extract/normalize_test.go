package extract

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestNormalizeRecordFullValue(t *testing.T) {
	value := mustParse(t, `{
		"state_code": "CA",
		"reporting_period": {"type": "custom", "months": 24, "start_rule": "license issue", "end_rule": "license expiration"},
		"hours": {"accrual_method": "fixed_per_period", "total_hours": 24, "accrual_rate": null, "accrual_period": null, "prorating_rule": "half for first period"},
		"deadlines": {"completion_deadline": "expiration date", "reporting_deadline": null, "grace_period": null},
		"category_requirements": [{"category": "ethics", "hours": 2, "notes": null, "max_percent_allowed": null}],
		"carryover": {"allowed": true, "max_hours": 12, "restrictions": null},
		"special": {"new_licensee_rule": "exempt first renewal", "exemptions": null, "military_rule": null},
		"audit_and_records": {"retention_years": 4, "audit_process": "random sample"},
		"other_requirements": [{"title": "approved providers only", "details": null, "citation": "BPC 123"}],
		"summary": "24 hours per period",
		"extraction_confidence": 0.88,
		"needs_human_review": false
	}`)

	req := ExtractionRequest{
		StateCode:   "ca",
		StateName:   "California",
		SourceText:  "statute text",
		SourceTitle: "BPC",
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rec := NormalizeRecord(value, req, false, "gpt-4.1-mini", now)

	if rec.StateCode != "CA" {
		t.Errorf("expected uppercased state code, got %q", rec.StateCode)
	}
	if rec.StateName == nil || *rec.StateName != "California" {
		t.Errorf("expected state name, got %v", rec.StateName)
	}
	if rec.ReportingPeriodMonths == nil || *rec.ReportingPeriodMonths != 24 {
		t.Errorf("expected 24 months, got %v", rec.ReportingPeriodMonths)
	}
	if rec.TotalHoursRequired == nil || *rec.TotalHoursRequired != 24 {
		t.Errorf("expected 24 hours, got %v", rec.TotalHoursRequired)
	}
	if rec.AccrualRate != nil {
		t.Errorf("null accrual_rate should stay nil, got %v", *rec.AccrualRate)
	}
	if len(rec.CategoryRequirements) != 1 || rec.CategoryRequirements[0].Category != "ethics" {
		t.Errorf("unexpected categories: %+v", rec.CategoryRequirements)
	}
	if rec.CarryoverAllowed == nil || !*rec.CarryoverAllowed {
		t.Errorf("expected carryover allowed, got %v", rec.CarryoverAllowed)
	}
	if rec.SourceURL != nil {
		t.Errorf("unset request field should be nil, got %v", *rec.SourceURL)
	}
	if rec.ModelUsed != "gpt-4.1-mini" || !rec.ExtractedAt.Equal(now) || rec.SchemaVersion != SchemaVersion {
		t.Errorf("unexpected provenance: %s %s %s", rec.ModelUsed, rec.ExtractedAt, rec.SchemaVersion)
	}
}

func TestNormalizeRecordEmptyValue(t *testing.T) {
	req := ExtractionRequest{StateCode: "wy", SourceText: "text"}
	rec := NormalizeRecord(map[string]any{}, req, true, "gpt-4.1-mini", time.Now())

	if rec.StateCode != "WY" {
		t.Errorf("expected WY, got %q", rec.StateCode)
	}
	if !rec.NeedsHumanReview {
		t.Error("review flag should carry through")
	}
	if rec.CategoryRequirements == nil || len(rec.CategoryRequirements) != 0 {
		t.Errorf("expected empty (not nil) categories, got %v", rec.CategoryRequirements)
	}
	if rec.OtherRequirements == nil || len(rec.OtherRequirements) != 0 {
		t.Errorf("expected empty (not nil) others, got %v", rec.OtherRequirements)
	}
	if rec.AccrualMethod != nil || rec.Summary != nil || rec.ExtractionConfidence != nil {
		t.Error("absent fields should be nil pointers")
	}
}

func TestNormalizeRecordExplicitNullsInJSON(t *testing.T) {
	req := ExtractionRequest{StateCode: "OR", SourceText: "text"}
	rec := NormalizeRecord(map[string]any{}, req, true, "m", time.Now())

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, field := range []string{"accrual_method", "total_hours_required", "summary", "military_rule", "source_url"} {
		v, ok := doc[field]
		if !ok {
			t.Errorf("field %q must be present as explicit null, not omitted", field)
		}
		if v != nil {
			t.Errorf("field %q should be null, got %v", field, v)
		}
	}
}

func TestRenestRoundTrip(t *testing.T) {
	original := mustParse(t, `{
		"state_code": "CA",
		"reporting_period": {"type": "biennial"},
		"hours": {"accrual_method": "fixed_per_period", "total_hours": 24, "accrual_rate": null, "accrual_period": null, "prorating_rule": null},
		"deadlines": {"completion_deadline": null, "reporting_deadline": null, "grace_period": null},
		"category_requirements": [{"category": "ethics", "hours": 2, "notes": null, "max_percent_allowed": null}],
		"carryover": {"allowed": null, "max_hours": null, "restrictions": null},
		"special": {"new_licensee_rule": null, "exemptions": null, "military_rule": null},
		"audit_and_records": {"retention_years": null, "audit_process": null},
		"other_requirements": [],
		"summary": "24 hours biennially",
		"extraction_confidence": 0.9,
		"needs_human_review": false
	}`)

	req := ExtractionRequest{StateCode: "CA", SourceText: "text"}
	rec := NormalizeRecord(original, req, false, "m", time.Now())

	renested := rec.Renest()

	// Compare through JSON so []any and map ordering normalize.
	a, _ := json.Marshal(original)
	b, _ := json.Marshal(renested)
	var av, bv map[string]any
	_ = json.Unmarshal(a, &av)
	_ = json.Unmarshal(b, &bv)

	if !reflect.DeepEqual(av, bv) {
		t.Errorf("round trip mismatch:\noriginal: %s\nrenested: %s", a, b)
	}
}
