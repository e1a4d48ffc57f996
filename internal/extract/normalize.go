package extract

import (
	"strings"
	"time"
)

// NormalizeRecord flattens a (possibly partially empty) parsed value plus the
// original request into the storage-ready record. No validation happens here:
// by this point the value is accepted as-is and the review flag signals
// incompleteness downstream. Absent optionals become explicit nulls; absent
// lists become empty lists.
func NormalizeRecord(value map[string]any, req ExtractionRequest, needsReview bool, modelUsed string, now time.Time) *PersistedRequirement {
	rec := &PersistedRequirement{
		StateCode:            strings.ToUpper(req.StateCode),
		StateName:            optString(req.StateName),
		CategoryRequirements: normalizeCategories(value),
		OtherRequirements:    normalizeOthers(value),
		Summary:              strField(value, "summary"),
		ExtractionConfidence: numField(value, "extraction_confidence"),
		NeedsHumanReview:     needsReview,
		SourceTitle:          optString(req.SourceTitle),
		SourceURL:            optString(req.SourceURL),
		EffectiveDate:        optString(req.EffectiveDate),
		ModelUsed:            modelUsed,
		ExtractedAt:          now.UTC(),
		SchemaVersion:        SchemaVersion,
	}

	if rp := objField(value, "reporting_period"); rp != nil {
		rec.ReportingPeriodType = strField(rp, "type")
		rec.ReportingPeriodMonths = numField(rp, "months")
		rec.ReportingPeriodStartRule = strField(rp, "start_rule")
		rec.ReportingPeriodEndRule = strField(rp, "end_rule")
	}

	if hours := objField(value, "hours"); hours != nil {
		rec.AccrualMethod = strField(hours, "accrual_method")
		rec.TotalHoursRequired = numField(hours, "total_hours")
		rec.AccrualRate = numField(hours, "accrual_rate")
		rec.AccrualPeriod = strField(hours, "accrual_period")
		rec.ProratingRule = strField(hours, "prorating_rule")
	}

	if dl := objField(value, "deadlines"); dl != nil {
		rec.CompletionDeadline = strField(dl, "completion_deadline")
		rec.ReportingDeadline = strField(dl, "reporting_deadline")
		rec.GracePeriod = strField(dl, "grace_period")
	}

	if co := objField(value, "carryover"); co != nil {
		rec.CarryoverAllowed = boolField(co, "allowed")
		rec.CarryoverMaxHours = numField(co, "max_hours")
		rec.CarryoverRestrictions = strField(co, "restrictions")
	}

	if sp := objField(value, "special"); sp != nil {
		rec.NewLicenseeRule = strField(sp, "new_licensee_rule")
		rec.Exemptions = strField(sp, "exemptions")
		rec.MilitaryRule = strField(sp, "military_rule")
	}

	if ar := objField(value, "audit_and_records"); ar != nil {
		rec.AuditRetentionYears = numField(ar, "retention_years")
		rec.AuditProcess = strField(ar, "audit_process")
	}

	return rec
}

func normalizeCategories(value map[string]any) []CategoryRequirement {
	out := []CategoryRequirement{}
	entries, _ := value["category_requirements"].([]any)
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		cat := CategoryRequirement{
			Hours:             numField(obj, "hours"),
			Notes:             strField(obj, "notes"),
			MaxPercentAllowed: numField(obj, "max_percent_allowed"),
		}
		if s := strField(obj, "category"); s != nil {
			cat.Category = *s
		}
		out = append(out, cat)
	}
	return out
}

func normalizeOthers(value map[string]any) []OtherRequirement {
	out := []OtherRequirement{}
	entries, _ := value["other_requirements"].([]any)
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, OtherRequirement{
			Title:    strField(obj, "title"),
			Details:  strField(obj, "details"),
			Citation: strField(obj, "citation"),
		})
	}
	return out
}

// Renest rebuilds the nested extracted-value shape from a flat record, with
// every absent optional represented as an explicit null. Flatten followed by
// Renest reconstructs the original value.
func (r *PersistedRequirement) Renest() map[string]any {
	rp := map[string]any{"type": derefAny(r.ReportingPeriodType)}
	if r.ReportingPeriodMonths != nil {
		rp["months"] = *r.ReportingPeriodMonths
	}
	if r.ReportingPeriodStartRule != nil || r.ReportingPeriodEndRule != nil {
		rp["start_rule"] = derefAny(r.ReportingPeriodStartRule)
		rp["end_rule"] = derefAny(r.ReportingPeriodEndRule)
	}

	categories := make([]any, 0, len(r.CategoryRequirements))
	for _, c := range r.CategoryRequirements {
		categories = append(categories, map[string]any{
			"category":            c.Category,
			"hours":               derefAny(c.Hours),
			"notes":               derefAny(c.Notes),
			"max_percent_allowed": derefAny(c.MaxPercentAllowed),
		})
	}

	others := make([]any, 0, len(r.OtherRequirements))
	for _, o := range r.OtherRequirements {
		others = append(others, map[string]any{
			"title":    derefAny(o.Title),
			"details":  derefAny(o.Details),
			"citation": derefAny(o.Citation),
		})
	}

	return map[string]any{
		"state_code":       r.StateCode,
		"reporting_period": rp,
		"hours": map[string]any{
			"accrual_method": derefAny(r.AccrualMethod),
			"total_hours":    derefAny(r.TotalHoursRequired),
			"accrual_rate":   derefAny(r.AccrualRate),
			"accrual_period": derefAny(r.AccrualPeriod),
			"prorating_rule": derefAny(r.ProratingRule),
		},
		"deadlines": map[string]any{
			"completion_deadline": derefAny(r.CompletionDeadline),
			"reporting_deadline":  derefAny(r.ReportingDeadline),
			"grace_period":        derefAny(r.GracePeriod),
		},
		"category_requirements": categories,
		"carryover": map[string]any{
			"allowed":      derefAny(r.CarryoverAllowed),
			"max_hours":    derefAny(r.CarryoverMaxHours),
			"restrictions": derefAny(r.CarryoverRestrictions),
		},
		"special": map[string]any{
			"new_licensee_rule": derefAny(r.NewLicenseeRule),
			"exemptions":        derefAny(r.Exemptions),
			"military_rule":     derefAny(r.MilitaryRule),
		},
		"audit_and_records": map[string]any{
			"retention_years": derefAny(r.AuditRetentionYears),
			"audit_process":   derefAny(r.AuditProcess),
		},
		"other_requirements":    others,
		"summary":               derefAny(r.Summary),
		"extraction_confidence": derefAny(r.ExtractionConfidence),
		"needs_human_review":    r.NeedsHumanReview,
	}
}

// objField returns a nested object field, or nil if absent or mistyped.
func objField(value map[string]any, key string) map[string]any {
	obj, _ := value[key].(map[string]any)
	return obj
}

// strField returns a string field as a pointer, nil for absent/null/mistyped.
func strField(value map[string]any, key string) *string {
	if s, ok := value[key].(string); ok {
		return &s
	}
	return nil
}

func numField(value map[string]any, key string) *float64 {
	if n, ok := value[key].(float64); ok {
		return &n
	}
	return nil
}

func boolField(value map[string]any, key string) *bool {
	if b, ok := value[key].(bool); ok {
		return &b
	}
	return nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefAny[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
