package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cedesk/cedesk/internal/api"
	"github.com/cedesk/cedesk/internal/sources"
	"github.com/cedesk/cedesk/internal/svcctx"
)

// AddSourceRequest is the request body for POST /api/sources. Exactly one
// of Text or PDFPath should be set; PDFPath must be readable by the server
// process.
type AddSourceRequest struct {
	StateCode     string `json:"state_code"`
	Title         string `json:"title,omitempty"`
	URL           string `json:"url,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
	Text          string `json:"text,omitempty"`
	PDFPath       string `json:"pdf_path,omitempty"`
}

// ListSourcesResponse is the response for listing source documents.
type ListSourcesResponse struct {
	Sources []sources.Document `json:"sources"`
	Count   int                `json:"count"`
}

// AddSourceEndpoint handles POST /api/sources.
type AddSourceEndpoint struct{}

func (e *AddSourceEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sources", e.handler
}

func (e *AddSourceEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Add a source document to the library
//	@Tags		sources
//	@Accept		json
//	@Produce	json
//	@Param		request	body		AddSourceRequest	true	"Source to add"
//	@Success	200		{object}	sources.Document
//	@Failure	400		{object}	ErrorResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/sources [post]
func (e *AddSourceEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	library := svcctx.SourceLibraryFrom(r.Context())
	if library == nil {
		writeError(w, http.StatusServiceUnavailable, "source library not initialized")
		return
	}

	var req AddSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		doc *sources.Document
		err error
	)
	switch {
	case req.Text != "" && req.PDFPath != "":
		writeError(w, http.StatusBadRequest, "provide text or pdf_path, not both")
		return
	case req.PDFPath != "":
		doc, err = library.AddPDF(r.Context(), sources.AddPDFRequest{
			StateCode:     req.StateCode,
			Title:         req.Title,
			URL:           req.URL,
			EffectiveDate: req.EffectiveDate,
			Path:          req.PDFPath,
		})
	default:
		doc, err = library.AddText(r.Context(), sources.AddTextRequest{
			StateCode:     req.StateCode,
			Title:         req.Title,
			URL:           req.URL,
			EffectiveDate: req.EffectiveDate,
			Text:          req.Text,
		})
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.PDFPath != "" {
		archivePDF(r.Context(), req.PDFPath, doc.SHA256)
	}

	writeJSON(w, http.StatusOK, doc)
}

// archivePDF keeps a stable copy of an uploaded PDF in the home sources
// directory, keyed by content hash so re-uploads are idempotent.
func archivePDF(ctx context.Context, srcPath, sum string) {
	h := svcctx.HomeFrom(ctx)
	if h == nil || sum == "" {
		return
	}
	dst := h.SourcePDFPath(sum)
	if _, err := os.Stat(dst); err == nil {
		return
	}
	if err := h.EnsureExists(); err != nil {
		return
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return
	}
	_ = os.WriteFile(dst, data, 0o644)
}

func (e *AddSourceEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		title         string
		url           string
		effectiveDate string
		textFile      string
		pdfPath       string
	)
	cmd := &cobra.Command{
		Use:   "add <state-code>",
		Short: "Add a source document to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := AddSourceRequest{
				StateCode:     strings.ToUpper(args[0]),
				Title:         title,
				URL:           url,
				EffectiveDate: effectiveDate,
				PDFPath:       pdfPath,
			}
			if textFile != "" {
				data, err := os.ReadFile(textFile)
				if err != nil {
					return fmt.Errorf("reading %s: %w", textFile, err)
				}
				req.Text = string(data)
			}
			if req.Text == "" && req.PDFPath == "" {
				return fmt.Errorf("either --text-file or --pdf is required")
			}

			client := api.NewClient(getServerURL())
			var doc sources.Document
			if err := client.Post(cmd.Context(), "/api/sources", req, &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&url, "url", "", "Source URL")
	cmd.Flags().StringVar(&effectiveDate, "effective-date", "", "Effective date of the source")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Path to a plain-text source file")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Server-local path to a PDF source")
	return cmd
}

// ListSourcesEndpoint handles GET /api/sources.
type ListSourcesEndpoint struct{}

func (e *ListSourcesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sources", e.handler
}

func (e *ListSourcesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List source documents
//	@Tags		sources
//	@Produce	json
//	@Param		state	query		string	false	"Filter by two-letter state code"
//	@Success	200		{object}	ListSourcesResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/sources [get]
func (e *ListSourcesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	library := svcctx.SourceLibraryFrom(r.Context())
	if library == nil {
		writeError(w, http.StatusServiceUnavailable, "source library not initialized")
		return
	}

	docs, err := library.List(r.Context(), r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ListSourcesResponse{Sources: docs, Count: len(docs)})
}

func (e *ListSourcesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List source documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/sources"
			if state != "" {
				path += "?state=" + strings.ToUpper(state)
			}
			client := api.NewClient(getServerURL())
			var resp ListSourcesResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "Filter by two-letter state code")
	return cmd
}
