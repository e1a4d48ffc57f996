package llmcall

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cedesk/cedesk/internal/defra"
)

// callFields lists the fields selected by every LLMCall query.
const callFields = `
			request_id
			created_at
			state_code
			prompt_key
			provider
			model
			temperature
			prompt_tokens
			completion_tokens
			total_tokens
			execution_time_ms
			response
			success
			error_type
			error_message`

// Store provides read access to recorded LLM calls in DefraDB.
type Store struct {
	client *defra.Client
}

// NewStore creates a new LLMCall store.
func NewStore(client *defra.Client) *Store {
	return &Store{client: client}
}

// QueryFilter specifies filters for listing calls.
type QueryFilter struct {
	StateCode string
	PromptKey string
	Provider  string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// Get retrieves a single call by request ID. Returns nil if not found.
func (s *Store) Get(ctx context.Context, requestID string) (*Call, error) {
	if err := defra.ValidateID(requestID); err != nil {
		return nil, fmt.Errorf("invalid request ID: %w", err)
	}

	query := fmt.Sprintf(`{
		LLMCall(filter: {request_id: {_eq: %q}}) {%s
		}
	}`, requestID, callFields)

	resp, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}

	calls := parseCalls(resp.Data)
	if len(calls) == 0 {
		return nil, nil
	}
	return &calls[0], nil
}

// List retrieves calls matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Call, error) {
	var conditions []string

	if filter.StateCode != "" {
		conditions = append(conditions, fmt.Sprintf(`state_code: {_eq: %q}`, strings.ToUpper(filter.StateCode)))
	}
	if filter.PromptKey != "" {
		conditions = append(conditions, fmt.Sprintf(`prompt_key: {_eq: %q}`, filter.PromptKey))
	}
	if filter.Provider != "" {
		conditions = append(conditions, fmt.Sprintf(`provider: {_eq: %q}`, filter.Provider))
	}
	if filter.Model != "" {
		conditions = append(conditions, fmt.Sprintf(`model: {_eq: %q}`, filter.Model))
	}
	if filter.Success != nil {
		conditions = append(conditions, fmt.Sprintf(`success: {_eq: %t}`, *filter.Success))
	}
	if filter.After != nil {
		conditions = append(conditions, fmt.Sprintf(`created_at: {_gt: %q}`, filter.After.Format(time.RFC3339)))
	}
	if filter.Before != nil {
		conditions = append(conditions, fmt.Sprintf(`created_at: {_lt: %q}`, filter.Before.Format(time.RFC3339)))
	}

	var args []string
	if len(conditions) > 0 {
		args = append(args, fmt.Sprintf("filter: {%s}", strings.Join(conditions, ", ")))
	}
	args = append(args, "order: {created_at: DESC}")
	if filter.Limit > 0 {
		args = append(args, fmt.Sprintf("limit: %d", filter.Limit))
	}
	if filter.Offset > 0 {
		args = append(args, fmt.Sprintf("offset: %d", filter.Offset))
	}

	query := fmt.Sprintf(`{
		LLMCall(%s) {%s
		}
	}`, strings.Join(args, ", "), callFields)

	resp, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}

	return parseCalls(resp.Data), nil
}

// parseCalls parses LLMCall entries from GraphQL response data.
func parseCalls(data map[string]any) []Call {
	docs, ok := data["LLMCall"].([]any)
	if !ok {
		return nil
	}

	calls := make([]Call, 0, len(docs))
	for _, d := range docs {
		doc, ok := d.(map[string]any)
		if !ok {
			continue
		}

		call := Call{}
		if v, ok := doc["request_id"].(string); ok {
			call.RequestID = v
		}
		if v, ok := doc["created_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				call.CreatedAt = t
			}
		}
		if v, ok := doc["state_code"].(string); ok {
			call.StateCode = v
		}
		if v, ok := doc["prompt_key"].(string); ok {
			call.PromptKey = v
		}
		if v, ok := doc["provider"].(string); ok {
			call.Provider = v
		}
		if v, ok := doc["model"].(string); ok {
			call.Model = v
		}
		if v, ok := doc["temperature"].(float64); ok {
			call.Temperature = &v
		}
		if v, ok := doc["prompt_tokens"].(float64); ok {
			call.PromptTokens = int(v)
		}
		if v, ok := doc["completion_tokens"].(float64); ok {
			call.CompletionTokens = int(v)
		}
		if v, ok := doc["total_tokens"].(float64); ok {
			call.TotalTokens = int(v)
		}
		if v, ok := doc["execution_time_ms"].(float64); ok {
			call.ExecutionTimeMs = int(v)
		}
		if v, ok := doc["response"].(string); ok {
			call.Response = v
		}
		if v, ok := doc["success"].(bool); ok {
			call.Success = v
		}
		if v, ok := doc["error_type"].(string); ok {
			call.ErrorType = v
		}
		if v, ok := doc["error_message"].(string); ok {
			call.ErrorMessage = v
		}

		calls = append(calls, call)
	}
	return calls
}
