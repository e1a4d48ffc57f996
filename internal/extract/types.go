// Package extract implements the CE requirement extraction pipeline:
// model invocation, response parsing, shape validation, the human-review
// decision, record normalization, and the persistence upsert.
package extract

import (
	"fmt"
	"time"
)

// SchemaVersion tags persisted records with the flat-record layout version.
const SchemaVersion = "v1"

// ExtractionRequest is the caller's input to the pipeline.
type ExtractionRequest struct {
	StateCode     string `json:"state_code"`
	SourceText    string `json:"source_text"`
	StateName     string `json:"state_name,omitempty"`
	SourceTitle   string `json:"source_title,omitempty"`
	SourceURL     string `json:"source_url,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
	ModelName     string `json:"model_name,omitempty"`
}

// MissingFieldError reports a required request field that was not provided.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Missing field: %s", e.Field)
}

// Validate checks the required request fields.
func (r *ExtractionRequest) Validate() error {
	if r.StateCode == "" {
		return &MissingFieldError{Field: "state_code"}
	}
	if r.SourceText == "" {
		return &MissingFieldError{Field: "source_text"}
	}
	return nil
}

// CategoryRequirement is one per-category hour requirement in the flat record.
type CategoryRequirement struct {
	Category          string   `json:"category"`
	Hours             *float64 `json:"hours"`
	Notes             *string  `json:"notes"`
	MaxPercentAllowed *float64 `json:"max_percent_allowed"`
}

// OtherRequirement is one free-form requirement in the flat record.
type OtherRequirement struct {
	Title    *string `json:"title"`
	Details  *string `json:"details"`
	Citation *string `json:"citation"`
}

// PersistedRequirement is the flat, storage-ready record. One row per state
// code; every nullable column is an explicit null in JSON rather than omitted.
type PersistedRequirement struct {
	StateCode string  `json:"state_code"`
	StateName *string `json:"state_name"`

	ReportingPeriodType      *string  `json:"reporting_period_type"`
	ReportingPeriodMonths    *float64 `json:"reporting_period_months"`
	ReportingPeriodStartRule *string  `json:"reporting_period_start_rule"`
	ReportingPeriodEndRule   *string  `json:"reporting_period_end_rule"`

	AccrualMethod      *string  `json:"accrual_method"`
	TotalHoursRequired *float64 `json:"total_hours_required"`
	AccrualRate        *float64 `json:"accrual_rate"`
	AccrualPeriod      *string  `json:"accrual_period"`
	ProratingRule      *string  `json:"prorating_rule"`

	CompletionDeadline *string `json:"completion_deadline"`
	ReportingDeadline  *string `json:"reporting_deadline"`
	GracePeriod        *string `json:"grace_period"`

	CategoryRequirements []CategoryRequirement `json:"category_requirements"`

	CarryoverAllowed      *bool    `json:"carryover_allowed"`
	CarryoverMaxHours     *float64 `json:"carryover_max_hours"`
	CarryoverRestrictions *string  `json:"carryover_restrictions"`

	NewLicenseeRule *string `json:"new_licensee_rule"`
	Exemptions      *string `json:"exemptions"`
	MilitaryRule    *string `json:"military_rule"`

	AuditRetentionYears *float64 `json:"audit_retention_years"`
	AuditProcess        *string  `json:"audit_process"`

	OtherRequirements []OtherRequirement `json:"other_requirements"`

	Summary              *string  `json:"summary"`
	ExtractionConfidence *float64 `json:"extraction_confidence"`
	NeedsHumanReview     bool     `json:"needs_human_review"`

	SourceTitle   *string `json:"source_title"`
	SourceURL     *string `json:"source_url"`
	EffectiveDate *string `json:"effective_date"`

	ModelUsed     string    `json:"model_used"`
	ExtractedAt   time.Time `json:"extracted_at"`
	SchemaVersion string    `json:"schema_version"`
}

// Result is what the pipeline returns to the caller.
type Result struct {
	Data             *PersistedRequirement `json:"data"`
	Raw              map[string]any        `json:"raw"`
	NeedsHumanReview bool                  `json:"needs_human_review"`
	Violations       []string              `json:"violations,omitempty"`
}
