package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Secrets holds sensitive credentials loaded from environment variables.
// Provider-specific keys take precedence; API_KEY is the fallback for any
// OpenAI-compatible endpoint without a dedicated variable.
type Secrets struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GenericAPIKey   string `env:"API_KEY"`
}

// LoadSecrets loads sensitive credentials from environment variables
func LoadSecrets(ctx context.Context) (*Secrets, error) {
	var secrets Secrets
	if err := envconfig.Process(ctx, &secrets); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &secrets, nil
}

// APIKeyFor returns the API key for the given provider, falling back to the
// generic API_KEY. An empty result is valid for local servers without auth.
func (s *Secrets) APIKeyFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		if s.OpenAIAPIKey != "" {
			return s.OpenAIAPIKey
		}
	case ProviderGemini:
		if s.GeminiAPIKey != "" {
			return s.GeminiAPIKey
		}
	case ProviderAnthropic:
		if s.AnthropicAPIKey != "" {
			return s.AnthropicAPIKey
		}
	}
	return s.GenericAPIKey
}
