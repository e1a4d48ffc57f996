package main

import (
	"github.com/spf13/cobra"

	"github.com/cedesk/cedesk/internal/api"
	"github.com/cedesk/cedesk/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "cedesk",
	Short: "Continuing education requirement extraction service",
	Long: `Cedesk extracts structured continuing education (CE) requirements from
state statute and regulation text using LLM-backed extraction.

The pipeline includes:
  - Prompted extraction against a strict JSON output schema
  - Shape validation with accumulated violations
  - Automatic human-review flagging for low-trust extractions
  - One persisted record per state, replaced on re-extraction`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.cedesk/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "cedesk home directory (default: ~/.cedesk)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
