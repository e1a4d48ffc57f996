// Package llmcall records every model invocation for traceability: which
// prompt, which model, token usage, and outcome. Records are written
// asynchronously so a slow audit store never delays an extraction.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/cedesk/cedesk/internal/providers"
)

// Collection is the DefraDB collection audit records are written to.
const Collection = "LLMCall"

// Call is one recorded model invocation.
type Call struct {
	RequestID string    `json:"request_id"`
	CreatedAt time.Time `json:"created_at"`

	// Context references
	StateCode string `json:"state_code,omitempty"`
	PromptKey string `json:"prompt_key"`

	// Model info
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Usage and timing
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	ExecutionTimeMs  int `json:"execution_time_ms"`

	// Outcome
	Response     string `json:"response,omitempty"`
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// RecordOptions carries request context that the ChatResult itself
// doesn't know about.
type RecordOptions struct {
	StateCode string
	PromptKey string

	// Pointer to distinguish "not set" from "set to 0".
	Temperature *float64
}

// FromChatResult builds a Call from a ChatResult. Returns nil for nil input.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	requestID := result.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	call := &Call{
		RequestID:        requestID,
		CreatedAt:        time.Now().UTC(),
		StateCode:        opts.StateCode,
		PromptKey:        opts.PromptKey,
		Provider:         result.Provider,
		Model:            result.ModelUsed,
		Temperature:      opts.Temperature,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		ExecutionTimeMs:  int(result.ExecutionTime.Milliseconds()),
		Response:         result.Content,
		Success:          result.Success,
	}

	if !result.Success {
		call.ErrorType = result.ErrorType
		call.ErrorMessage = result.ErrorMessage
	}

	return call
}

// ToMap converts the Call to a map for DefraDB insertion. Optional fields
// are omitted rather than written as nulls.
func (c *Call) ToMap() map[string]any {
	m := map[string]any{
		"request_id":        c.RequestID,
		"created_at":        c.CreatedAt,
		"prompt_key":        c.PromptKey,
		"provider":          c.Provider,
		"model":             c.Model,
		"prompt_tokens":     c.PromptTokens,
		"completion_tokens": c.CompletionTokens,
		"total_tokens":      c.TotalTokens,
		"execution_time_ms": c.ExecutionTimeMs,
		"success":           c.Success,
	}

	if c.StateCode != "" {
		m["state_code"] = c.StateCode
	}
	if c.Temperature != nil {
		m["temperature"] = *c.Temperature
	}
	if c.Response != "" {
		m["response"] = c.Response
	}
	if c.ErrorType != "" {
		m["error_type"] = c.ErrorType
	}
	if c.ErrorMessage != "" {
		m["error_message"] = c.ErrorMessage
	}

	return m
}
