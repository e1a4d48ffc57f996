package extract

import (
	"encoding/json"
	"strings"
)

// ParseResult is the explicit outcome of parsing model output. Parse failure
// is a value, not an error: downstream stages (validator, review evaluator)
// take the failed case as a first-class input.
type ParseResult struct {
	Value  map[string]any
	Failed bool
	Reason string
}

// ParseModelOutput extracts a JSON object from raw model text. Models
// sometimes wrap JSON in a markdown code fence or surround it with prose;
// both are stripped before parsing.
func ParseModelOutput(raw string) ParseResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ParseResult{Failed: true, Reason: "empty model output"}
	}

	candidates := []string{trimmed}
	if stripped := stripCodeFences(trimmed); stripped != "" && stripped != trimmed {
		candidates = append(candidates, stripped)
	}
	if bounded := boundedObjectCandidate(trimmed); bounded != "" && bounded != trimmed {
		candidates = append(candidates, bounded)
	}

	var lastErr error
	for _, candidate := range candidates {
		var value map[string]any
		if err := json.Unmarshal([]byte(candidate), &value); err != nil {
			lastErr = err
			continue
		}
		return ParseResult{Value: value}
	}

	reason := "model output is not a JSON object"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return ParseResult{Failed: true, Reason: reason}
}

// stripCodeFences removes a surrounding markdown code fence, including an
// optional language tag on the opening line.
func stripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}

	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return ""
	}

	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// boundedObjectCandidate returns the substring between the first '{' and the
// last '}', for output where the object is embedded in surrounding prose.
func boundedObjectCandidate(content string) string {
	start := strings.Index(content, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(content, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}
