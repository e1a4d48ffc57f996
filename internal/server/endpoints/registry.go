package endpoints

import (
	"github.com/cedesk/cedesk/internal/api"
	"github.com/cedesk/cedesk/internal/defra"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	DefraManager *defra.DockerManager
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DefraManager: cfg.DefraManager},

		// Extraction endpoint
		&ExtractEndpoint{},

		// Requirement record endpoints
		&ListRequirementsEndpoint{},
		&GetRequirementEndpoint{},
		&DeleteRequirementEndpoint{},

		// Source document endpoints
		&AddSourceEndpoint{},
		&ListSourcesEndpoint{},

		// LLM call history endpoints
		&ListLLMCallsEndpoint{},
		&GetLLMCallEndpoint{},
	}
}

// RequirementCommands returns endpoints for requirement record operations.
// This groups requirement-related commands under "requirements" subcommand.
func RequirementCommands() []api.Endpoint {
	return []api.Endpoint{
		&ExtractEndpoint{},
		&ListRequirementsEndpoint{},
		&GetRequirementEndpoint{},
		&DeleteRequirementEndpoint{},
	}
}

// SourceCommands returns endpoints for source library operations.
// This groups source-related commands under "sources" subcommand.
func SourceCommands() []api.Endpoint {
	return []api.Endpoint{
		&AddSourceEndpoint{},
		&ListSourcesEndpoint{},
	}
}

// LLMCallCommands returns endpoints for LLM call history operations.
// This groups llmcall-related commands under "llmcalls" subcommand.
func LLMCallCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListLLMCallsEndpoint{},
		&GetLLMCallEndpoint{},
	}
}
