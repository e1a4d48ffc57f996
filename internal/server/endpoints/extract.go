package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cedesk/cedesk/internal/api"
	"github.com/cedesk/cedesk/internal/extract"
	"github.com/cedesk/cedesk/internal/llmcall"
	"github.com/cedesk/cedesk/internal/providers"
	"github.com/cedesk/cedesk/internal/svcctx"
)

// ExtractEndpoint handles POST /api/requirements/extract.
type ExtractEndpoint struct{}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/requirements/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract CE requirements from source text
//	@Description	Run the extraction pipeline for one state's statute text and persist the result
//	@Tags			requirements
//	@Accept			json
//	@Produce		json
//	@Param			request	body		extract.ExtractionRequest	true	"Extraction request"
//	@Success		200		{object}	extract.Result
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/requirements/extract [post]
func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req extract.ExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Reject incomplete requests before touching provider state so a bad
	// request reads as 400 even when credentials are also missing.
	if err := req.Validate(); err != nil {
		writePipelineError(w, err)
		return
	}

	registry := svcctx.RegistryFrom(r.Context())
	if registry == nil {
		writeError(w, http.StatusServiceUnavailable, "provider registry not initialized")
		return
	}
	client, err := registry.GetLLM(providers.OpenAIName)
	if err != nil {
		// Credentials were absent at startup so no client registered.
		writeError(w, http.StatusInternalServerError, providers.ErrMissingAPIKey.Error())
		return
	}

	store := svcctx.RequirementStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "requirement store not initialized")
		return
	}

	cfg := extract.DefaultConfig()
	if cm := svcctx.ConfigManagerFrom(r.Context()); cm != nil {
		cfg = cm.Get().ToPipelineConfig()
	}

	recorder := llmcall.NewRecorder(svcctx.DefraSinkFrom(r.Context()))
	pipeline := extract.New(cfg, client, store, recorder, svcctx.LoggerFrom(r.Context()))

	result, err := pipeline.Run(r.Context(), req)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writePipelineError maps pipeline errors onto the HTTP error contract.
func writePipelineError(w http.ResponseWriter, err error) {
	var missing *extract.MissingFieldError
	if errors.As(err, &missing) {
		writeError(w, http.StatusBadRequest, missing.Error())
		return
	}

	if errors.Is(err, providers.ErrMissingAPIKey) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		// Provider status passes through verbatim; transport failures have
		// no status and surface as a bad gateway.
		status := apiErr.StatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		writeError(w, status, apiErr.Message)
		return
	}

	if errors.Is(err, extract.ErrStoreFailed) {
		writeError(w, http.StatusInternalServerError, "Failed to save extracted data")
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var stateName, sourceFile, sourceTitle, sourceURL, effectiveDate, model string

	cmd := &cobra.Command{
		Use:   "extract <state-code>",
		Short: "Extract CE requirements for a state",
		Long: `Extract continuing education requirements from statute text.

Source text is read from --source-file or stdin.

Examples:
  cedesk api requirements extract CA --source-file ca_bpc.txt
  cat wa_wac.txt | cedesk api requirements extract WA --state-name Washington`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text []byte
			var err error
			if sourceFile != "" {
				text, err = os.ReadFile(sourceFile)
			} else {
				text, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read source text: %w", err)
			}
			if len(strings.TrimSpace(string(text))) == 0 {
				return fmt.Errorf("no source text provided")
			}

			client := api.NewClient(getServerURL())
			var result extract.Result
			err = client.Post(cmd.Context(), "/api/requirements/extract", extract.ExtractionRequest{
				StateCode:     args[0],
				StateName:     stateName,
				SourceText:    string(text),
				SourceTitle:   sourceTitle,
				SourceURL:     sourceURL,
				EffectiveDate: effectiveDate,
				ModelName:     model,
			}, &result)
			if err != nil {
				return err
			}
			return api.Output(result)
		},
	}

	cmd.Flags().StringVar(&stateName, "state-name", "", "Full state name for the prompt")
	cmd.Flags().StringVar(&sourceFile, "source-file", "", "File containing the statute text (default: stdin)")
	cmd.Flags().StringVar(&sourceTitle, "source-title", "", "Title of the source document")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "URL of the source document")
	cmd.Flags().StringVar(&effectiveDate, "effective-date", "", "Effective date of the source")
	cmd.Flags().StringVar(&model, "model", "", "Model to use (must be allow-listed)")

	return cmd
}
