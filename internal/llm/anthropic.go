package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/evalgate/evalgate/internal/api"
	"github.com/evalgate/evalgate/internal/config"
)

// anthropicGenerator talks to the Anthropic API through the official SDK.
// There is no JSON response mode; the prompt templates carry the schema.
type anthropicGenerator struct {
	client  anthropic.Client
	cfg     config.ModelConfig
	limiter *api.RateLimiterPool
	logger  *slog.Logger
}

func newAnthropicGenerator(cfg config.ModelConfig, apiKey string, logger *slog.Logger) *anthropicGenerator {
	return &anthropicGenerator{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		cfg:     cfg,
		limiter: api.NewRateLimiterPool(),
		logger:  logger,
	}
}

func (g *anthropicGenerator) Model() string {
	return g.cfg.ModelName
}

func (g *anthropicGenerator) Submit(ctx context.Context, req Request) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.cfg.ModelName),
		MaxTokens: int64(g.cfg.MaxOutputTokens),
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(req.Prompt),
			},
		}},
	}
	params.Temperature = anthropic.Float(g.cfg.Temperature)
	if g.cfg.TopP > 0 {
		params.TopP = anthropic.Float(g.cfg.TopP)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	wait := func(waitCtx context.Context) error {
		return g.limiter.Wait(waitCtx, g.cfg.ModelName, g.cfg.RateLimitPerMinute)
	}

	call := func(callCtx context.Context) (string, error) {
		message, err := g.client.Messages.New(callCtx, params)
		if err != nil {
			return "", err
		}
		return extractAnthropicText(message)
	}

	text, err := submitWithRetry(ctx, g.logger, g.cfg, wait, call, isRetryableAnthropicError, isAnthropicRateLimited)
	if err != nil {
		return nil, err
	}

	return &Response{Text: text}, nil
}

// extractAnthropicText concatenates text blocks, skipping thinking blocks.
func extractAnthropicText(message *anthropic.Message) (string, error) {
	if message == nil || len(message.Content) == 0 {
		return "", errors.New("no content generated - empty message")
	}

	var sb strings.Builder
	for _, content := range message.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}

	if sb.Len() == 0 {
		return "", errors.New("no content generated - no text blocks")
	}

	return sb.String(), nil
}

func isRetryableAnthropicError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 503, 504, 529:
			return true
		}
	}
	return false
}

func isAnthropicRateLimited(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode == 529
	}
	return false
}
