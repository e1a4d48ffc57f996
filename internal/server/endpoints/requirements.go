package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cedesk/cedesk/internal/api"
	"github.com/cedesk/cedesk/internal/extract"
	"github.com/cedesk/cedesk/internal/svcctx"
)

// ListRequirementsResponse is the response for listing requirement records.
type ListRequirementsResponse struct {
	Requirements []extract.PersistedRequirement `json:"requirements"`
	Count        int                            `json:"count"`
}

// ListRequirementsEndpoint handles GET /api/requirements.
type ListRequirementsEndpoint struct{}

func (e *ListRequirementsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/requirements", e.handler
}

func (e *ListRequirementsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List all extracted requirement records
//	@Tags		requirements
//	@Produce	json
//	@Success	200	{object}	ListRequirementsResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/requirements [get]
func (e *ListRequirementsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.RequirementStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "requirement store not initialized")
		return
	}

	recs, err := store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ListRequirementsResponse{
		Requirements: recs,
		Count:        len(recs),
	})
}

func (e *ListRequirementsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all extracted requirement records",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListRequirementsResponse
			if err := client.Get(cmd.Context(), "/api/requirements", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetRequirementEndpoint handles GET /api/requirements/{state}.
type GetRequirementEndpoint struct{}

func (e *GetRequirementEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/requirements/{state}", e.handler
}

func (e *GetRequirementEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get the requirement record for a state
//	@Tags		requirements
//	@Produce	json
//	@Param		state	path		string	true	"Two-letter state code"
//	@Success	200		{object}	extract.PersistedRequirement
//	@Failure	404		{object}	ErrorResponse
//	@Failure	500		{object}	ErrorResponse
//	@Router		/api/requirements/{state} [get]
func (e *GetRequirementEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.RequirementStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "requirement store not initialized")
		return
	}

	state := r.PathValue("state")
	rec, err := store.Get(r.Context(), state)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no requirements for state: %s", strings.ToUpper(state)))
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (e *GetRequirementEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <state-code>",
		Short: "Get the requirement record for a state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rec extract.PersistedRequirement
			if err := client.Get(cmd.Context(), "/api/requirements/"+args[0], &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
}

// DeleteRequirementEndpoint handles DELETE /api/requirements/{state}.
type DeleteRequirementEndpoint struct{}

func (e *DeleteRequirementEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/requirements/{state}", e.handler
}

func (e *DeleteRequirementEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Delete the requirement record for a state
//	@Tags		requirements
//	@Produce	json
//	@Param		state	path	string	true	"Two-letter state code"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/api/requirements/{state} [delete]
func (e *DeleteRequirementEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.RequirementStoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "requirement store not initialized")
		return
	}

	state := r.PathValue("state")
	deleted, err := store.Delete(r.Context(), state)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no requirements for state: %s", strings.ToUpper(state)))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteRequirementEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <state-code>",
		Short: "Delete the requirement record for a state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/requirements/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted requirements for %s\n", strings.ToUpper(args[0]))
			return nil
		},
	}
}
