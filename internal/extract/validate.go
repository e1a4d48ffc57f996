package extract

import (
	"fmt"
	"sort"
)

// Violations re-checks every field of a parsed model output against the
// expected shape, independent of the provider's own schema enforcement.
// It accumulates human-readable descriptions instead of failing fast; an
// empty slice means the value is fully conformant. Violations never abort
// processing - they only feed the review-flag decision and the response.
func Violations(value map[string]any) []string {
	var out []string

	checkStateCode(value, &out)
	checkReportingPeriod(value, &out)
	checkHours(value, &out)
	checkDeadlines(value, &out)
	checkCategoryRequirements(value, &out)
	checkNullableObject(value, "carryover", map[string]kind{
		"allowed":      kindBool,
		"max_hours":    kindNumber,
		"restrictions": kindString,
	}, &out)
	checkNullableObject(value, "special", map[string]kind{
		"new_licensee_rule": kindString,
		"exemptions":        kindString,
		"military_rule":     kindString,
	}, &out)
	checkNullableObject(value, "audit_and_records", map[string]kind{
		"retention_years": kindNumber,
		"audit_process":   kindString,
	}, &out)
	checkOtherRequirements(value, &out)

	checkScalar(value, "summary", kindString, &out)
	checkScalar(value, "extraction_confidence", kindNumber, &out)
	checkScalar(value, "needs_human_review", kindBool, &out)

	return out
}

type kind int

const (
	kindString kind = iota
	kindNumber
	kindBool
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindNumber:
		return "number"
	case kindBool:
		return "boolean"
	}
	return "unknown"
}

// matches reports whether v is the given kind. JSON numbers decode as float64.
func (k kind) matches(v any) bool {
	switch k {
	case kindString:
		_, ok := v.(string)
		return ok
	case kindNumber:
		_, ok := v.(float64)
		return ok
	case kindBool:
		_, ok := v.(bool)
		return ok
	}
	return false
}

func checkStateCode(value map[string]any, out *[]string) {
	v, ok := value["state_code"]
	if !ok || v == nil {
		*out = append(*out, "state_code: missing")
		return
	}
	s, ok := v.(string)
	if !ok {
		*out = append(*out, "state_code: must be a string")
		return
	}
	if len(s) != 2 {
		*out = append(*out, fmt.Sprintf("state_code: must be a 2-character code, got %q", s))
	}
}

// reportingPeriodVariants are the three allowed key sets. A reporting_period
// must match exactly one of them.
var reportingPeriodVariants = []map[string]kind{
	{"type": kindString},
	{"type": kindString, "start_rule": kindString, "end_rule": kindString},
	{"type": kindString, "months": kindNumber, "start_rule": kindString, "end_rule": kindString},
}

func checkReportingPeriod(value map[string]any, out *[]string) {
	v, ok := value["reporting_period"]
	if !ok || v == nil {
		*out = append(*out, "reporting_period: missing")
		return
	}
	obj, ok := v.(map[string]any)
	if !ok {
		*out = append(*out, "reporting_period: must be an object")
		return
	}

	matched := 0
	for _, variant := range reportingPeriodVariants {
		if matchesVariant(obj, variant) {
			matched++
		}
	}
	if matched != 1 {
		*out = append(*out, fmt.Sprintf("reporting_period: must match exactly one of the three allowed shapes, matched %d", matched))
	}
}

// matchesVariant requires obj to have exactly the variant's keys, each of the
// declared kind.
func matchesVariant(obj map[string]any, variant map[string]kind) bool {
	if len(obj) != len(variant) {
		return false
	}
	for key, k := range variant {
		v, ok := obj[key]
		if !ok || !k.matches(v) {
			return false
		}
	}
	return true
}

func checkHours(value map[string]any, out *[]string) {
	v, ok := value["hours"]
	if !ok || v == nil {
		*out = append(*out, "hours: missing")
		return
	}
	obj, ok := v.(map[string]any)
	if !ok {
		*out = append(*out, "hours: must be an object")
		return
	}

	method, ok := obj["accrual_method"]
	if !ok || method == nil {
		*out = append(*out, "hours.accrual_method: missing")
	} else if !kindString.matches(method) {
		*out = append(*out, "hours.accrual_method: must be a string")
	}

	checkNullableFields(obj, "hours", map[string]kind{
		"total_hours":    kindNumber,
		"accrual_rate":   kindNumber,
		"accrual_period": kindString,
		"prorating_rule": kindString,
	}, out)
}

func checkDeadlines(value map[string]any, out *[]string) {
	checkNullableObject(value, "deadlines", map[string]kind{
		"completion_deadline": kindString,
		"reporting_deadline":  kindString,
		"grace_period":        kindString,
	}, out)
}

func checkCategoryRequirements(value map[string]any, out *[]string) {
	v, ok := value["category_requirements"]
	if !ok || v == nil {
		return
	}
	entries, ok := v.([]any)
	if !ok {
		*out = append(*out, "category_requirements: must be an array")
		return
	}

	for i, entry := range entries {
		path := fmt.Sprintf("category_requirements[%d]", i)
		obj, ok := entry.(map[string]any)
		if !ok {
			*out = append(*out, path+": must be an object")
			continue
		}

		cat, ok := obj["category"]
		if !ok || cat == nil {
			*out = append(*out, path+".category: missing")
		} else if !kindString.matches(cat) {
			*out = append(*out, path+".category: must be a string")
		}

		checkNullableFields(obj, path, map[string]kind{
			"hours":               kindNumber,
			"notes":               kindString,
			"max_percent_allowed": kindNumber,
		}, out)
	}
}

func checkOtherRequirements(value map[string]any, out *[]string) {
	v, ok := value["other_requirements"]
	if !ok || v == nil {
		return
	}
	entries, ok := v.([]any)
	if !ok {
		*out = append(*out, "other_requirements: must be an array")
		return
	}

	for i, entry := range entries {
		path := fmt.Sprintf("other_requirements[%d]", i)
		obj, ok := entry.(map[string]any)
		if !ok {
			*out = append(*out, path+": must be an object")
			continue
		}
		checkNullableFields(obj, path, map[string]kind{
			"title":    kindString,
			"details":  kindString,
			"citation": kindString,
		}, out)
	}
}

// checkNullableObject validates an optional object field whose members are
// each nullable and of a declared kind.
func checkNullableObject(value map[string]any, field string, fields map[string]kind, out *[]string) {
	v, ok := value[field]
	if !ok || v == nil {
		return
	}
	obj, ok := v.(map[string]any)
	if !ok {
		*out = append(*out, field+": must be an object")
		return
	}
	checkNullableFields(obj, field, fields, out)
}

// checkNullableFields validates <type>-or-null members of an object.
// Violation order is stable: fields are checked in sorted key order.
func checkNullableFields(obj map[string]any, path string, fields map[string]kind, out *[]string) {
	for _, key := range sortedKeys(fields) {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		if k := fields[key]; !k.matches(v) {
			*out = append(*out, fmt.Sprintf("%s.%s: must be %s or null", path, key, k))
		}
	}
}

// checkScalar validates an optional nullable top-level scalar field.
func checkScalar(value map[string]any, field string, k kind, out *[]string) {
	v, ok := value[field]
	if !ok || v == nil {
		return
	}
	if !k.matches(v) {
		*out = append(*out, fmt.Sprintf("%s: must be %s or null", field, k))
	}
}

func sortedKeys(m map[string]kind) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
