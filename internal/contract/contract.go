// Package contract builds the fixed instruction prompt and strict output
// schema sent to the LLM for continuing-education requirement extraction.
package contract

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// SystemPrompt returns the system prompt for requirement extraction.
func SystemPrompt() string {
	return systemPrompt
}

// UserPromptData carries the per-request values interpolated into the user prompt.
type UserPromptData struct {
	StateCode  string
	StateName  string
	SourceText string
}

// UserPrompt builds the user prompt for requirement extraction.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}
