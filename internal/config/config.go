// Package config loads and hot-reloads cedesk configuration from
// ~/.cedesk/config.yaml and CEDESK_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/cedesk/cedesk/internal/extract"
	"github.com/cedesk/cedesk/internal/providers"
)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("server", defaults.Server)
	viper.SetDefault("defra", defaults.Defra)
	viper.SetDefault("openai", defaults.OpenAI)
	viper.SetDefault("extraction", defaults.Extraction)

	// Environment variables with CEDESK_ prefix
	viper.SetEnvPrefix("CEDESK")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.cedesk")
	}

	// Config file is optional
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the config for providers.Registry,
// resolving ${ENV_VAR} references in the API key.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	timeout := time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
	return providers.RegistryConfig{
		OpenAI: providers.OpenAIConfig{
			APIKey:       ResolveEnvVars(c.OpenAI.APIKey),
			BaseURL:      c.OpenAI.BaseURL,
			DefaultModel: c.Extraction.DefaultModel,
			Timeout:      timeout,
		},
	}
}

// ToPipelineConfig converts the config for the extraction pipeline.
func (c *Config) ToPipelineConfig() extract.Config {
	cfg := extract.DefaultConfig()
	if c.Extraction.DefaultModel != "" {
		cfg.DefaultModel = c.Extraction.DefaultModel
	}
	if len(c.Extraction.AllowedModels) > 0 {
		cfg.AllowedModels = c.Extraction.AllowedModels
	}
	if c.Extraction.Temperature > 0 {
		cfg.Temperature = c.Extraction.Temperature
	}
	if c.Extraction.MaxTokens > 0 {
		cfg.MaxTokens = c.Extraction.MaxTokens
	}

	threshold := c.Extraction.ConfidenceThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = extract.DefaultConfidenceThreshold
	}
	if len(c.Extraction.DiscretionaryPatterns) > 0 {
		cfg.Review = extract.NewReviewConfig(threshold, c.Extraction.DiscretionaryPatterns)
	} else {
		cfg.Review = extract.DefaultReviewConfig()
		cfg.Review.ConfidenceThreshold = threshold
	}

	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# cedesk configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENAI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
