package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/evalgate/evalgate/internal/api"
	"github.com/evalgate/evalgate/internal/config"
)

// geminiGenerator talks to the Gemini API through the official genai SDK.
type geminiGenerator struct {
	client  *genai.Client
	cfg     config.ModelConfig
	limiter *api.RateLimiterPool
	logger  *slog.Logger
}

func newGeminiGenerator(ctx context.Context, cfg config.ModelConfig, apiKey string, logger *slog.Logger) (*geminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiGenerator{
		client:  client,
		cfg:     cfg,
		limiter: api.NewRateLimiterPool(),
		logger:  logger,
	}, nil
}

func (g *geminiGenerator) Model() string {
	return g.cfg.ModelName
}

func (g *geminiGenerator) Submit(ctx context.Context, req Request) (*Response, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature:     ptr(float32(g.cfg.Temperature)),
		MaxOutputTokens: int32(g.cfg.MaxOutputTokens),
	}
	if g.cfg.TopP > 0 {
		genCfg.TopP = ptr(float32(g.cfg.TopP))
	}
	if req.System != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if g.cfg.UseJSONMode || req.JSONMode {
		genCfg.ResponseMIMEType = "application/json"
	}

	wait := func(waitCtx context.Context) error {
		return g.limiter.Wait(waitCtx, g.cfg.ModelName, g.cfg.RateLimitPerMinute)
	}

	call := func(callCtx context.Context) (string, error) {
		chat, err := g.client.Chats.Create(callCtx, g.cfg.ModelName, genCfg, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create chat with model %q: %w", g.cfg.ModelName, err)
		}

		resp, err := chat.Send(callCtx, &genai.Part{Text: req.Prompt})
		if err != nil {
			return "", err
		}

		return extractGeminiText(resp)
	}

	text, err := submitWithRetry(ctx, g.logger, g.cfg, wait, call, isRetryableGeminiError, isRetryableGeminiError)
	if err != nil {
		return nil, err
	}

	return &Response{Text: text}, nil
}

// extractGeminiText collects text parts from the first candidate, skipping
// thought parts so only the answer is returned.
func extractGeminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no content generated - no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("no content generated - candidate has no parts")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Thought {
			continue
		}
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	if sb.Len() == 0 {
		return "", errors.New("no content generated - no text parts")
	}

	return sb.String(), nil
}

// isRetryableGeminiError matches on message text because the SDK does not
// expose structured status codes for all transports.
func isRetryableGeminiError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Resource exhausted") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "Overloaded") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "quota exceeded") ||
		strings.Contains(errStr, "Internal error") ||
		strings.Contains(errStr, "server error")
}

func ptr[T any](v T) *T {
	return &v
}
