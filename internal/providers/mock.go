package providers

import (
	"context"
	"sync"
)

// MockLLMClient is a test double that returns a canned response and records
// the requests it received.
type MockLLMClient struct {
	mu       sync.Mutex
	Response string
	Err      error
	Requests []*ChatRequest
}

// Chat returns the canned response or error.
func (m *MockLLMClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return &ChatResult{
			RequestID:    req.RequestID,
			Provider:     "mock",
			Success:      false,
			ErrorType:    "api_error",
			ErrorMessage: m.Err.Error(),
		}, m.Err
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	return &ChatResult{
		Content:   m.Response,
		Provider:  "mock",
		ModelUsed: model,
		RequestID: req.RequestID,
		Success:   true,
	}, nil
}

// Name returns the client identifier.
func (m *MockLLMClient) Name() string { return "mock" }

// LastRequest returns the most recent request, or nil.
func (m *MockLLMClient) LastRequest() *ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

// Verify interface
var _ LLMClient = (*MockLLMClient)(nil)
