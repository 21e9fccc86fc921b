// Package llm provides a uniform text-generation interface over the
// supported model backends. The backend set is closed: a generator is bound
// to one provider at construction and requests never select providers.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evalgate/evalgate/internal/config"
)

// Request is a single generation call.
type Request struct {
	System   string // optional system prompt
	Prompt   string // user prompt
	JSONMode bool   // ask the backend for structured JSON output where supported
}

// Response carries the generated text.
type Response struct {
	Text string
}

// Generator produces one completion per call. Implementations are safe for
// concurrent use and handle their own rate limiting and retries.
type Generator interface {
	Submit(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// New constructs the generator for a model config. The provider was
// validated at config load, so an unknown value here is a programming error
// surfaced as a plain error.
func New(ctx context.Context, role string, cfg config.ModelConfig, secrets *config.Secrets, logger *slog.Logger) (Generator, error) {
	apiKey := secrets.APIKeyFor(cfg.Provider)
	log := logger.With("component", "llm", "role", role, "provider", cfg.Provider)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return newCompatGenerator(cfg, apiKey, log), nil
	case config.ProviderGemini:
		return newGeminiGenerator(ctx, cfg, apiKey, log)
	case config.ProviderAnthropic:
		return newAnthropicGenerator(cfg, apiKey, log), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q for role %s", cfg.Provider, role)
	}
}
