// Package requirements persists extracted CE requirement records in
// DefraDB. Records are keyed by two-letter state code: one row per state,
// and a re-extraction replaces the previous row.
package requirements

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cedesk/cedesk/internal/defra"
	"github.com/cedesk/cedesk/internal/extract"
)

// Collection is the DefraDB collection requirement records live in.
const Collection = "CERequirement"

// Store reads and writes requirement records.
type Store struct {
	client *defra.Client
}

// NewStore creates a requirement store backed by a DefraDB client.
func NewStore(client *defra.Client) *Store {
	return &Store{client: client}
}

// Upsert writes a record, replacing any existing record for the same state
// code. Returns the document ID.
func (s *Store) Upsert(ctx context.Context, rec *extract.PersistedRequirement) (string, error) {
	doc, err := toDocument(rec)
	if err != nil {
		return "", err
	}

	filter := map[string]any{
		"state_code": map[string]any{"_eq": rec.StateCode},
	}
	return s.client.Upsert(ctx, Collection, filter, doc, doc)
}

// Get retrieves the record for a state code. Returns nil if none exists.
func (s *Store) Get(ctx context.Context, stateCode string) (*extract.PersistedRequirement, error) {
	code := strings.ToUpper(strings.TrimSpace(stateCode))
	if err := defra.ValidateID(code); err != nil {
		return nil, fmt.Errorf("invalid state code: %w", err)
	}

	query := fmt.Sprintf(`{
		CERequirement(filter: {state_code: {_eq: %q}}) {%s
		}
	}`, code, requirementFields)

	resp, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}

	recs := parseRequirements(resp.Data)
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// List retrieves all records ordered by state code.
func (s *Store) List(ctx context.Context) ([]extract.PersistedRequirement, error) {
	query := fmt.Sprintf(`{
		CERequirement(order: {state_code: ASC}) {%s
		}
	}`, requirementFields)

	resp, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}

	return parseRequirements(resp.Data), nil
}

// Delete removes the record for a state code. Returns true if a record
// existed.
func (s *Store) Delete(ctx context.Context, stateCode string) (bool, error) {
	code := strings.ToUpper(strings.TrimSpace(stateCode))
	if err := defra.ValidateID(code); err != nil {
		return false, fmt.Errorf("invalid state code: %w", err)
	}

	docID, err := s.docIDFor(ctx, code)
	if err != nil {
		return false, err
	}
	if docID == "" {
		return false, nil
	}

	if err := s.client.Delete(ctx, Collection, docID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) docIDFor(ctx context.Context, code string) (string, error) {
	query := fmt.Sprintf(`{
		CERequirement(filter: {state_code: {_eq: %q}}) {
			_docID
		}
	}`, code)

	resp, err := s.client.Query(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return "", fmt.Errorf("graphql error: %s", errMsg)
	}

	docs, ok := resp.Data[Collection].([]any)
	if !ok || len(docs) == 0 {
		return "", nil
	}
	doc, ok := docs[0].(map[string]any)
	if !ok {
		return "", nil
	}
	docID, _ := doc["_docID"].(string)
	return docID, nil
}

// requirementFields lists the fields selected by every CERequirement query.
const requirementFields = `
			state_code
			state_name
			reporting_period_type
			reporting_period_months
			reporting_period_start_rule
			reporting_period_end_rule
			accrual_method
			total_hours_required
			accrual_rate
			accrual_period
			prorating_rule
			completion_deadline
			reporting_deadline
			grace_period
			category_requirements
			other_requirements
			carryover_allowed
			carryover_max_hours
			carryover_restrictions
			new_licensee_rule
			exemptions
			military_rule
			audit_retention_years
			audit_process
			summary
			extraction_confidence
			needs_human_review
			source_title
			source_url
			effective_date
			model_used
			extracted_at
			schema_version`

// toDocument converts a record to a DefraDB document map. Nil pointers
// become explicit nulls so a re-extraction clears stale values. The two
// list fields are JSON-encoded strings since DefraDB has no embedded
// list-of-object fields.
func toDocument(rec *extract.PersistedRequirement) (map[string]any, error) {
	catJSON, err := json.Marshal(rec.CategoryRequirements)
	if err != nil {
		return nil, fmt.Errorf("failed to encode category requirements: %w", err)
	}
	otherJSON, err := json.Marshal(rec.OtherRequirements)
	if err != nil {
		return nil, fmt.Errorf("failed to encode other requirements: %w", err)
	}

	return map[string]any{
		"state_code": rec.StateCode,
		"state_name": strOrNil(rec.StateName),

		"reporting_period_type":       strOrNil(rec.ReportingPeriodType),
		"reporting_period_months":     numOrNil(rec.ReportingPeriodMonths),
		"reporting_period_start_rule": strOrNil(rec.ReportingPeriodStartRule),
		"reporting_period_end_rule":   strOrNil(rec.ReportingPeriodEndRule),

		"accrual_method":       strOrNil(rec.AccrualMethod),
		"total_hours_required": numOrNil(rec.TotalHoursRequired),
		"accrual_rate":         numOrNil(rec.AccrualRate),
		"accrual_period":       strOrNil(rec.AccrualPeriod),
		"prorating_rule":       strOrNil(rec.ProratingRule),

		"completion_deadline": strOrNil(rec.CompletionDeadline),
		"reporting_deadline":  strOrNil(rec.ReportingDeadline),
		"grace_period":        strOrNil(rec.GracePeriod),

		"category_requirements": string(catJSON),
		"other_requirements":    string(otherJSON),

		"carryover_allowed":      boolOrNil(rec.CarryoverAllowed),
		"carryover_max_hours":    numOrNil(rec.CarryoverMaxHours),
		"carryover_restrictions": strOrNil(rec.CarryoverRestrictions),

		"new_licensee_rule": strOrNil(rec.NewLicenseeRule),
		"exemptions":        strOrNil(rec.Exemptions),
		"military_rule":     strOrNil(rec.MilitaryRule),

		"audit_retention_years": numOrNil(rec.AuditRetentionYears),
		"audit_process":         strOrNil(rec.AuditProcess),

		"summary":               strOrNil(rec.Summary),
		"extraction_confidence": numOrNil(rec.ExtractionConfidence),
		"needs_human_review":    rec.NeedsHumanReview,

		"source_title":   strOrNil(rec.SourceTitle),
		"source_url":     strOrNil(rec.SourceURL),
		"effective_date": strOrNil(rec.EffectiveDate),

		"model_used":     rec.ModelUsed,
		"extracted_at":   rec.ExtractedAt,
		"schema_version": rec.SchemaVersion,
	}, nil
}

func strOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func numOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolOrNil(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

// parseRequirements parses CERequirement entries from GraphQL response data.
func parseRequirements(data map[string]any) []extract.PersistedRequirement {
	docs, ok := data[Collection].([]any)
	if !ok {
		return nil
	}

	recs := make([]extract.PersistedRequirement, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}
		recs = append(recs, fromDocument(doc))
	}
	return recs
}

func fromDocument(doc map[string]any) extract.PersistedRequirement {
	rec := extract.PersistedRequirement{
		StateCode: str(doc, "state_code"),
		StateName: strPtr(doc, "state_name"),

		ReportingPeriodType:      strPtr(doc, "reporting_period_type"),
		ReportingPeriodMonths:    numPtr(doc, "reporting_period_months"),
		ReportingPeriodStartRule: strPtr(doc, "reporting_period_start_rule"),
		ReportingPeriodEndRule:   strPtr(doc, "reporting_period_end_rule"),

		AccrualMethod:      strPtr(doc, "accrual_method"),
		TotalHoursRequired: numPtr(doc, "total_hours_required"),
		AccrualRate:        numPtr(doc, "accrual_rate"),
		AccrualPeriod:      strPtr(doc, "accrual_period"),
		ProratingRule:      strPtr(doc, "prorating_rule"),

		CompletionDeadline: strPtr(doc, "completion_deadline"),
		ReportingDeadline:  strPtr(doc, "reporting_deadline"),
		GracePeriod:        strPtr(doc, "grace_period"),

		CarryoverAllowed:      boolPtr(doc, "carryover_allowed"),
		CarryoverMaxHours:     numPtr(doc, "carryover_max_hours"),
		CarryoverRestrictions: strPtr(doc, "carryover_restrictions"),

		NewLicenseeRule: strPtr(doc, "new_licensee_rule"),
		Exemptions:      strPtr(doc, "exemptions"),
		MilitaryRule:    strPtr(doc, "military_rule"),

		AuditRetentionYears: numPtr(doc, "audit_retention_years"),
		AuditProcess:        strPtr(doc, "audit_process"),

		Summary:              strPtr(doc, "summary"),
		ExtractionConfidence: numPtr(doc, "extraction_confidence"),

		SourceTitle:   strPtr(doc, "source_title"),
		SourceURL:     strPtr(doc, "source_url"),
		EffectiveDate: strPtr(doc, "effective_date"),

		ModelUsed:     str(doc, "model_used"),
		SchemaVersion: str(doc, "schema_version"),
	}

	if v, ok := doc["needs_human_review"].(bool); ok {
		rec.NeedsHumanReview = v
	}
	if v, ok := doc["extracted_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			rec.ExtractedAt = t
		}
	}

	rec.CategoryRequirements = []extract.CategoryRequirement{}
	if v, ok := doc["category_requirements"].(string); ok && v != "" {
		var cats []extract.CategoryRequirement
		if err := json.Unmarshal([]byte(v), &cats); err == nil && cats != nil {
			rec.CategoryRequirements = cats
		}
	}

	rec.OtherRequirements = []extract.OtherRequirement{}
	if v, ok := doc["other_requirements"].(string); ok && v != "" {
		var others []extract.OtherRequirement
		if err := json.Unmarshal([]byte(v), &others); err == nil && others != nil {
			rec.OtherRequirements = others
		}
	}

	return rec
}

func str(doc map[string]any, key string) string {
	v, _ := doc[key].(string)
	return v
}

func strPtr(doc map[string]any, key string) *string {
	if v, ok := doc[key].(string); ok {
		return &v
	}
	return nil
}

func numPtr(doc map[string]any, key string) *float64 {
	if v, ok := doc[key].(float64); ok {
		return &v
	}
	return nil
}

func boolPtr(doc map[string]any, key string) *bool {
	if v, ok := doc[key].(bool); ok {
		return &v
	}
	return nil
}
