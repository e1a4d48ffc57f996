package contract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaName identifies the structured-output schema to the provider.
const SchemaName = "ce_requirement"

// CoreSchema is the strict output schema for CE requirement extraction.
// Field names and nullability are part of the external interface: anything
// consuming persisted requirements depends on them.
var CoreSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"state_code": map[string]any{
			"type":        "string",
			"description": "Two-letter code of the jurisdiction the text governs",
		},
		"reporting_period": map[string]any{
			"description": "CE reporting period; exactly one of the three shapes",
			"oneOf": []any{
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type": map[string]any{
							"type":        "string",
							"description": "Period descriptor (e.g., 'annual', 'biennial', 'triennial', 'rolling')",
						},
					},
					"required":             []string{"type"},
					"additionalProperties": false,
				},
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type": map[string]any{"type": "string"},
						"start_rule": map[string]any{
							"type":        "string",
							"description": "Textual rule for when the period starts",
						},
						"end_rule": map[string]any{
							"type":        "string",
							"description": "Textual rule for when the period ends",
						},
					},
					"required":             []string{"type", "start_rule", "end_rule"},
					"additionalProperties": false,
				},
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type": map[string]any{"type": "string"},
						"months": map[string]any{
							"type":        "number",
							"description": "Period length in months",
						},
						"start_rule": map[string]any{"type": "string"},
						"end_rule":   map[string]any{"type": "string"},
					},
					"required":             []string{"type", "months", "start_rule", "end_rule"},
					"additionalProperties": false,
				},
			},
		},
		"hours": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"accrual_method": map[string]any{
					"type":        "string",
					"description": "How hours accrue (e.g., 'fixed_per_period', 'annual_rate')",
				},
				"total_hours": map[string]any{
					"type":        []string{"number", "null"},
					"description": "Total hours required per reporting period",
				},
				"accrual_rate": map[string]any{
					"type":        []string{"number", "null"},
					"description": "Hours required per accrual period, if rate-based",
				},
				"accrual_period": map[string]any{
					"type":        []string{"string", "null"},
					"description": "Accrual period for rate-based requirements (e.g., 'year')",
				},
				"prorating_rule": map[string]any{
					"type":        []string{"string", "null"},
					"description": "Prorating rule for partial periods, if stated",
				},
			},
			"required":             []string{"accrual_method"},
			"additionalProperties": false,
		},
		"deadlines": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"completion_deadline": map[string]any{"type": []string{"string", "null"}},
				"reporting_deadline":  map[string]any{"type": []string{"string", "null"}},
				"grace_period":        map[string]any{"type": []string{"string", "null"}},
			},
			"required":             []string{},
			"additionalProperties": false,
		},
		"category_requirements": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category": map[string]any{
						"type":        "string",
						"description": "Subject category (e.g., 'ethics')",
					},
					"hours":               map[string]any{"type": []string{"number", "null"}},
					"notes":               map[string]any{"type": []string{"string", "null"}},
					"max_percent_allowed": map[string]any{"type": []string{"number", "null"}},
				},
				"required":             []string{"category"},
				"additionalProperties": false,
			},
			"description": "Per-category hour requirements and caps",
		},
		"carryover": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"allowed":      map[string]any{"type": []string{"boolean", "null"}},
				"max_hours":    map[string]any{"type": []string{"number", "null"}},
				"restrictions": map[string]any{"type": []string{"string", "null"}},
			},
			"required":             []string{},
			"additionalProperties": false,
		},
		"special": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"new_licensee_rule": map[string]any{"type": []string{"string", "null"}},
				"exemptions":        map[string]any{"type": []string{"string", "null"}},
				"military_rule":     map[string]any{"type": []string{"string", "null"}},
			},
			"required":             []string{},
			"additionalProperties": false,
		},
		"audit_and_records": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"retention_years": map[string]any{"type": []string{"number", "null"}},
				"audit_process":   map[string]any{"type": []string{"string", "null"}},
			},
			"required":             []string{},
			"additionalProperties": false,
		},
		"other_requirements": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":    map[string]any{"type": []string{"string", "null"}},
					"details":  map[string]any{"type": []string{"string", "null"}},
					"citation": map[string]any{"type": []string{"string", "null"}},
				},
				"required":             []string{},
				"additionalProperties": false,
			},
			"description": "Requirements that do not fit the structured fields",
		},
		"summary": map[string]any{
			"type":        []string{"string", "null"},
			"description": "Plain-English summary of the requirements",
		},
		"extraction_confidence": map[string]any{
			"type":        []string{"number", "null"},
			"description": "Model's confidence in the extraction, 0.0-1.0",
		},
		"needs_human_review": map[string]any{
			"type":        []string{"boolean", "null"},
			"description": "Model's own judgment that a human should review",
		},
	},
	"required":             []string{"state_code", "reporting_period", "hours"},
	"additionalProperties": false,
}

// RequirementSchema is the provider response-format wrapper around CoreSchema.
var RequirementSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   SchemaName,
		"strict": true,
		"schema": CoreSchema,
	},
}

// SchemaJSON returns the full response-format wrapper as JSON.
func SchemaJSON() (json.RawMessage, error) {
	b, err := json.Marshal(RequirementSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal requirement schema: %w", err)
	}
	return b, nil
}

// Validate checks a parsed model output against the canonical schema.
// This is deliberately redundant with provider-side enforcement: the provider
// is never trusted to have honored the contract.
func Validate(doc any) error {
	core, err := json.Marshal(CoreSchema)
	if err != nil {
		return fmt.Errorf("failed to marshal core schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("ce_requirement.json", bytes.NewReader(core)); err != nil {
		return fmt.Errorf("failed to load requirement schema: %w", err)
	}
	schema, err := compiler.Compile("ce_requirement.json")
	if err != nil {
		return fmt.Errorf("failed to compile requirement schema: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("output does not match requirement schema: %w", err)
	}
	return nil
}
