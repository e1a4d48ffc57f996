// Package sources maintains the library of statute and regulation source
// documents that extractions are run against. Text sources are stored
// as-is; PDF sources are validated and measured with pdfcpu before their
// metadata is recorded.
package sources

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/cedesk/cedesk/internal/defra"
)

// Collection is the DefraDB collection source documents live in.
const Collection = "SourceDocument"

// Document is one stored source document.
type Document struct {
	DocID         string    `json:"doc_id"`
	StateCode     string    `json:"state_code"`
	Title         string    `json:"title"`
	URL           string    `json:"url,omitempty"`
	EffectiveDate string    `json:"effective_date,omitempty"`
	ContentType   string    `json:"content_type"`
	PageCount     int       `json:"page_count,omitempty"`
	SizeBytes     int       `json:"size_bytes"`
	SHA256        string    `json:"sha256"`
	Text          string    `json:"text,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// AddTextRequest describes a plain-text source to store.
type AddTextRequest struct {
	StateCode     string
	Title         string
	URL           string
	EffectiveDate string
	Text          string
}

// AddPDFRequest describes a PDF source to store. Path must point at a
// file readable by the server.
type AddPDFRequest struct {
	StateCode     string
	Title         string
	URL           string
	EffectiveDate string
	Path          string
}

// Library reads and writes source documents.
type Library struct {
	client *defra.Client
	logger *slog.Logger
}

// NewLibrary creates a source document library.
func NewLibrary(client *defra.Client, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{client: client, logger: logger}
}

// AddText stores a plain-text source. Re-adding identical content for the
// same document is deduplicated by content hash.
func (l *Library) AddText(ctx context.Context, req AddTextRequest) (*Document, error) {
	code := strings.ToUpper(strings.TrimSpace(req.StateCode))
	if code == "" {
		return nil, fmt.Errorf("state code is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	sum := sha256.Sum256([]byte(req.Text))
	doc := Document{
		StateCode:     code,
		Title:         req.Title,
		URL:           req.URL,
		EffectiveDate: req.EffectiveDate,
		ContentType:   "text/plain",
		SizeBytes:     len(req.Text),
		SHA256:        hex.EncodeToString(sum[:]),
		Text:          req.Text,
		UploadedAt:    time.Now().UTC(),
	}
	return l.store(ctx, doc)
}

// AddPDF validates a PDF with pdfcpu, records its page count and content
// hash, and stores its metadata. The PDF body itself stays on disk.
func (l *Library) AddPDF(ctx context.Context, req AddPDFRequest) (*Document, error) {
	code := strings.ToUpper(strings.TrimSpace(req.StateCode))
	if code == "" {
		return nil, fmt.Errorf("state code is required")
	}

	data, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	rs := bytes.NewReader(data)
	if err := api.Validate(rs, nil); err != nil {
		return nil, fmt.Errorf("not a valid PDF: %w", err)
	}
	if _, err := rs.Seek(0, 0); err != nil {
		return nil, err
	}
	pageCount, err := api.PageCount(rs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	title := req.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(req.Path), filepath.Ext(req.Path))
	}

	sum := sha256.Sum256(data)
	doc := Document{
		StateCode:     code,
		Title:         title,
		URL:           req.URL,
		EffectiveDate: req.EffectiveDate,
		ContentType:   "application/pdf",
		PageCount:     pageCount,
		SizeBytes:     len(data),
		SHA256:        hex.EncodeToString(sum[:]),
		UploadedAt:    time.Now().UTC(),
	}
	return l.store(ctx, doc)
}

func (l *Library) store(ctx context.Context, doc Document) (*Document, error) {
	if existing, err := l.findByHash(ctx, doc.SHA256); err != nil {
		return nil, err
	} else if existing != nil {
		l.logger.Info("source already stored", "sha256", doc.SHA256, "doc_id", existing.DocID)
		return existing, nil
	}

	input := map[string]any{
		"state_code":   doc.StateCode,
		"title":        doc.Title,
		"content_type": doc.ContentType,
		"size_bytes":   doc.SizeBytes,
		"sha256":       doc.SHA256,
		"uploaded_at":  doc.UploadedAt,
	}
	if doc.URL != "" {
		input["url"] = doc.URL
	}
	if doc.EffectiveDate != "" {
		input["effective_date"] = doc.EffectiveDate
	}
	if doc.PageCount > 0 {
		input["page_count"] = doc.PageCount
	}
	if doc.Text != "" {
		input["text"] = doc.Text
	}

	docID, err := l.client.Create(ctx, Collection, input)
	if err != nil {
		return nil, fmt.Errorf("failed to store source: %w", err)
	}

	doc.DocID = docID
	l.logger.Info("source stored",
		"doc_id", docID,
		"state", doc.StateCode,
		"type", doc.ContentType,
		"bytes", doc.SizeBytes)
	return &doc, nil
}

// Get retrieves a source document by its DefraDB document ID. Returns nil
// if not found.
func (l *Library) Get(ctx context.Context, docID string) (*Document, error) {
	if err := defra.ValidateID(docID); err != nil {
		return nil, fmt.Errorf("invalid document ID: %w", err)
	}

	query := fmt.Sprintf(`{
		SourceDocument(filter: {_docID: {_eq: %q}}) {%s
		}
	}`, docID, documentFields)

	docs, err := l.query(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

// List retrieves source documents, optionally filtered by state code,
// newest first.
func (l *Library) List(ctx context.Context, stateCode string) ([]Document, error) {
	var args []string
	if stateCode != "" {
		args = append(args, fmt.Sprintf(`filter: {state_code: {_eq: %q}}`, strings.ToUpper(stateCode)))
	}
	args = append(args, "order: {uploaded_at: DESC}")

	query := fmt.Sprintf(`{
		SourceDocument(%s) {%s
		}
	}`, strings.Join(args, ", "), documentFields)

	return l.query(ctx, query)
}

func (l *Library) findByHash(ctx context.Context, sum string) (*Document, error) {
	query := fmt.Sprintf(`{
		SourceDocument(filter: {sha256: {_eq: %q}}) {%s
		}
	}`, sum, documentFields)

	docs, err := l.query(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

const documentFields = `
			_docID
			state_code
			title
			url
			effective_date
			content_type
			page_count
			size_bytes
			sha256
			text
			uploaded_at`

func (l *Library) query(ctx context.Context, query string) ([]Document, error) {
	resp, err := l.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("graphql error: %s", errMsg)
	}

	raw, ok := resp.Data[Collection].([]any)
	if !ok {
		return nil, nil
	}

	docs := make([]Document, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}

		var doc Document
		if v, ok := m["_docID"].(string); ok {
			doc.DocID = v
		}
		if v, ok := m["state_code"].(string); ok {
			doc.StateCode = v
		}
		if v, ok := m["title"].(string); ok {
			doc.Title = v
		}
		if v, ok := m["url"].(string); ok {
			doc.URL = v
		}
		if v, ok := m["effective_date"].(string); ok {
			doc.EffectiveDate = v
		}
		if v, ok := m["content_type"].(string); ok {
			doc.ContentType = v
		}
		if v, ok := m["page_count"].(float64); ok {
			doc.PageCount = int(v)
		}
		if v, ok := m["size_bytes"].(float64); ok {
			doc.SizeBytes = int(v)
		}
		if v, ok := m["sha256"].(string); ok {
			doc.SHA256 = v
		}
		if v, ok := m["text"].(string); ok {
			doc.Text = v
		}
		if v, ok := m["uploaded_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				doc.UploadedAt = t
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
