package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cedesk/cedesk/internal/contract"
	"github.com/cedesk/cedesk/internal/llmcall"
	"github.com/cedesk/cedesk/internal/providers"
)

// PromptKey identifies the extraction prompt in recorded LLM calls.
const PromptKey = "extract.requirement"

// ErrStoreFailed indicates the persistence upsert failed. This is terminal
// for the request; no partial record is left behind.
var ErrStoreFailed = errors.New("failed to save extracted data")

// Store persists normalized requirement records keyed by state code.
type Store interface {
	// Upsert fully replaces any existing record for the state code.
	Upsert(ctx context.Context, rec *PersistedRequirement) (string, error)
}

// Config is the immutable pipeline configuration.
type Config struct {
	DefaultModel  string
	AllowedModels []string
	Temperature   float64
	MaxTokens     int
	Review        ReviewConfig
}

// DefaultConfig returns the production pipeline configuration.
func DefaultConfig() Config {
	return Config{
		DefaultModel:  "gpt-4.1-mini",
		AllowedModels: []string{"gpt-4.1-mini", "gpt-4.1", "gpt-4o", "gpt-4o-mini"},
		Temperature:   0.1,
		MaxTokens:     4096,
		Review:        DefaultReviewConfig(),
	}
}

// Pipeline runs the extraction flow end to end for one request.
type Pipeline struct {
	cfg      Config
	client   providers.LLMClient
	store    Store
	recorder *llmcall.Recorder
	logger   *slog.Logger
}

// New creates a pipeline. The recorder may be nil (no call audit trail).
func New(cfg Config, client providers.LLMClient, store Store, recorder *llmcall.Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		client:   client,
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// ResolveModel returns the requested model if allow-listed, else the default.
func (p *Pipeline) ResolveModel(name string) string {
	if name == "" {
		return p.cfg.DefaultModel
	}
	for _, m := range p.cfg.AllowedModels {
		if m == name {
			return name
		}
	}
	p.logger.Warn("requested model not allow-listed, using default",
		"requested", name, "default", p.cfg.DefaultModel)
	return p.cfg.DefaultModel
}

// Run executes the full pipeline for one request. Parse failures and shape
// violations degrade to a review-flagged, best-effort record; only input,
// provider, and store errors abort the request.
func (p *Pipeline) Run(ctx context.Context, req ExtractionRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model := p.ResolveModel(req.ModelName)
	chatReq := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: contract.SystemPrompt()},
			{Role: "user", Content: contract.UserPrompt(contract.UserPromptData{
				StateCode:  req.StateCode,
				StateName:  req.StateName,
				SourceText: req.SourceText,
			})},
		},
		Model:       model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		ResponseFormat: &providers.ResponseFormat{
			Name:   contract.SchemaName,
			Schema: contract.CoreSchema,
		},
		RequestID: uuid.New().String(),
	}

	chatRes, err := p.client.Chat(ctx, chatReq)
	if p.recorder != nil && chatRes != nil {
		p.recorder.Record(chatRes, llmcall.RecordOptions{
			StateCode:   req.StateCode,
			PromptKey:   PromptKey,
			Temperature: &p.cfg.Temperature,
		})
	}
	if err != nil {
		return nil, err
	}

	parsed := ParseModelOutput(chatRes.Content)

	violations := []string{}
	if parsed.Failed {
		violations = append(violations, "response: not valid JSON: "+parsed.Reason)
	} else {
		violations = append(violations, Violations(parsed.Value)...)
		if err := contract.Validate(parsed.Value); err != nil {
			violations = append(violations, "schema: "+err.Error())
		}
	}

	value := parsed.Value
	if value == nil {
		value = map[string]any{}
	}

	var extractedCode string
	if s := strField(value, "state_code"); s != nil {
		extractedCode = *s
	}

	needsReview := p.cfg.Review.NeedsReview(ReviewSignals{
		ParseFailed:        parsed.Failed,
		Violations:         violations,
		Confidence:         numField(value, "extraction_confidence"),
		RequestStateCode:   req.StateCode,
		ExtractedStateCode: extractedCode,
		SourceText:         req.SourceText,
		ModelFlagged:       boolField(value, "needs_human_review"),
	})

	modelUsed := chatRes.ModelUsed
	if modelUsed == "" {
		modelUsed = model
	}
	rec := NormalizeRecord(value, req, needsReview, modelUsed, time.Now())

	if _, err := p.store.Upsert(ctx, rec); err != nil {
		p.logger.Error("requirement upsert failed", "state_code", rec.StateCode, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	p.logger.Info("requirement extracted",
		"state_code", rec.StateCode,
		"model", modelUsed,
		"needs_human_review", needsReview,
		"violations", len(violations))

	// The raw value is returned with the normalized state code.
	value["state_code"] = rec.StateCode

	return &Result{
		Data:             rec,
		Raw:              value,
		NeedsHumanReview: needsReview,
		Violations:       violations,
	}, nil
}
