package config

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Load reads and parses the configuration file and environment variables
func Load(ctx context.Context, configPath string) (*Config, *Secrets, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse TOML
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Additional input validation on user-controllable fields
	if err := cfg.ValidateInputs(); err != nil {
		return nil, nil, fmt.Errorf("input validation failed: %w", err)
	}

	// Load secrets from environment
	secrets, err := LoadSecrets(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	return &cfg, secrets, nil
}

// Default returns a configuration with all defaults applied and no config
// file. Callers still need secrets from LoadSecrets.
func Default() *Config {
	cfg := &Config{
		Models: map[string]ModelConfig{
			RoleAssistant: {Provider: ProviderOpenAI, BaseURL: "https://api.openai.com/v1", ModelName: "gpt-4o-mini"},
			RoleJudge:     {Provider: ProviderGemini, ModelName: "gemini-2.0-flash"},
		},
	}
	applyDefaults(cfg)
	return cfg
}
