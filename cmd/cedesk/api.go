package main

import (
	"github.com/spf13/cobra"

	"github.com/cedesk/cedesk/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running cedesk server via HTTP.

These commands require a running server (cedesk serve).
Use --server to specify a custom server URL.

Examples:
  cedesk api health                              # Check server health
  cedesk api requirements extract CA < ca.txt    # Run an extraction
  cedesk api requirements get CA                 # Get a state's record`,
}

var requirementsCmd = &cobra.Command{
	Use:   "requirements",
	Short: "Requirement record commands",
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Source document library commands",
}

var llmcallsCmd = &cobra.Command{
	Use:   "llmcalls",
	Short: "LLM call history commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Requirements as subcommand group
	for _, ep := range endpoints.RequirementCommands() {
		requirementsCmd.AddCommand(ep.Command(getServerURL))
	}

	// Sources as subcommand group
	for _, ep := range endpoints.SourceCommands() {
		sourcesCmd.AddCommand(ep.Command(getServerURL))
	}

	// LLM calls as subcommand group
	for _, ep := range endpoints.LLMCallCommands() {
		llmcallsCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(requirementsCmd)
	apiCmd.AddCommand(sourcesCmd)
	apiCmd.AddCommand(llmcallsCmd)
	rootCmd.AddCommand(apiCmd)
}
