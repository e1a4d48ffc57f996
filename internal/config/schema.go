package config

// Config holds cedesk configuration.
// Stored at: ~/.cedesk/config.yaml
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Defra      DefraConfig      `mapstructure:"defra" yaml:"defra"`
	OpenAI     OpenAIConfig     `mapstructure:"openai" yaml:"openai"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the HTTP listen port (default: 8080)
	Port string `mapstructure:"port" yaml:"port"`
}

// DefraConfig holds DefraDB container configuration.
type DefraConfig struct {
	// ContainerName is the Docker container name (default: cedesk-defra)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: sourcenetwork/defradb:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 9181)
	Port string `mapstructure:"port" yaml:"port"`
	// URL overrides the derived URL for an externally managed instance
	URL string `mapstructure:"url" yaml:"url"`
}

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	// APIKey supports ${ENV_VAR} syntax
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// ExtractionConfig tunes the extraction pipeline.
type ExtractionConfig struct {
	DefaultModel          string   `mapstructure:"default_model" yaml:"default_model"`
	AllowedModels         []string `mapstructure:"allowed_models" yaml:"allowed_models"`
	Temperature           float64  `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens             int      `mapstructure:"max_tokens" yaml:"max_tokens"`
	ConfidenceThreshold   float64  `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	DiscretionaryPatterns []string `mapstructure:"discretionary_patterns" yaml:"discretionary_patterns"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Defra: DefraConfig{
			ContainerName: "cedesk-defra",
			Image:         "sourcenetwork/defradb:latest",
			Port:          "9181",
		},
		OpenAI: OpenAIConfig{
			APIKey:         "${OPENAI_API_KEY}",
			TimeoutSeconds: 120,
		},
		Extraction: ExtractionConfig{
			DefaultModel:        "gpt-4.1-mini",
			AllowedModels:       []string{"gpt-4.1-mini", "gpt-4.1", "gpt-4o", "gpt-4o-mini"},
			Temperature:         0.1,
			MaxTokens:           4096,
			ConfidenceThreshold: 0.75,
		},
	}
}

// DefraURL returns the DefraDB API URL, honoring an explicit override.
func (c *Config) DefraURL() string {
	if c.Defra.URL != "" {
		return c.Defra.URL
	}
	port := c.Defra.Port
	if port == "" {
		port = "9181"
	}
	return "http://localhost:" + port
}
