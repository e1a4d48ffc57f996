package llmcall

import (
	"testing"
	"time"

	"github.com/cedesk/cedesk/internal/providers"
)

func TestFromChatResult(t *testing.T) {
	temp := 0.1
	result := &providers.ChatResult{
		Content:          `{"state_code":"CA"}`,
		PromptTokens:     1200,
		CompletionTokens: 400,
		TotalTokens:      1600,
		ExecutionTime:    2500 * time.Millisecond,
		Provider:         "openai",
		ModelUsed:        "gpt-4.1-mini",
		RequestID:        "req-1",
		Success:          true,
	}

	call := FromChatResult(result, RecordOptions{
		StateCode:   "CA",
		PromptKey:   "extract.requirement",
		Temperature: &temp,
	})

	if call.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", call.RequestID)
	}
	if call.StateCode != "CA" || call.PromptKey != "extract.requirement" {
		t.Errorf("context fields not carried: %+v", call)
	}
	if call.ExecutionTimeMs != 2500 {
		t.Errorf("ExecutionTimeMs = %d, want 2500", call.ExecutionTimeMs)
	}
	if call.Temperature == nil || *call.Temperature != 0.1 {
		t.Errorf("Temperature = %v, want 0.1", call.Temperature)
	}
	if call.ErrorType != "" || call.ErrorMessage != "" {
		t.Error("successful call should not carry error fields")
	}
}

func TestFromChatResult_Failure(t *testing.T) {
	result := &providers.ChatResult{
		Provider:     "openai",
		ModelUsed:    "gpt-4.1-mini",
		Success:      false,
		ErrorType:    "rate_limit",
		ErrorMessage: "too many requests",
	}

	call := FromChatResult(result, RecordOptions{PromptKey: "extract.requirement"})
	if call.Success {
		t.Error("expected Success=false")
	}
	if call.ErrorType != "rate_limit" || call.ErrorMessage != "too many requests" {
		t.Errorf("error fields not carried: %+v", call)
	}
	if call.RequestID == "" {
		t.Error("expected generated request ID when result has none")
	}
}

func TestFromChatResult_Nil(t *testing.T) {
	if FromChatResult(nil, RecordOptions{}) != nil {
		t.Error("expected nil for nil result")
	}
}

func TestCall_ToMap_OmitsUnsetOptionals(t *testing.T) {
	call := &Call{
		RequestID: "req-2",
		CreatedAt: time.Now().UTC(),
		PromptKey: "extract.requirement",
		Provider:  "openai",
		Model:     "gpt-4.1-mini",
		Success:   true,
	}

	m := call.ToMap()
	for _, key := range []string{"state_code", "temperature", "response", "error_type", "error_message"} {
		if _, present := m[key]; present {
			t.Errorf("unset optional %q should be omitted", key)
		}
	}
	if m["request_id"] != "req-2" || m["success"] != true {
		t.Errorf("required fields missing: %+v", m)
	}
}
