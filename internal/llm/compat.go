package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evalgate/evalgate/internal/api"
	"github.com/evalgate/evalgate/internal/config"
)

// compatGenerator speaks the OpenAI chat completions protocol. Retry and
// rate limiting live in the api client, not here.
type compatGenerator struct {
	client *api.Client
	cfg    config.ModelConfig
	apiKey string
	logger *slog.Logger
}

func newCompatGenerator(cfg config.ModelConfig, apiKey string, logger *slog.Logger) *compatGenerator {
	return &compatGenerator{
		client: api.NewClient(logger),
		cfg:    cfg,
		apiKey: apiKey,
		logger: logger,
	}
}

func (g *compatGenerator) Model() string {
	return g.cfg.ModelName
}

func (g *compatGenerator) Submit(ctx context.Context, req Request) (*Response, error) {
	mc := g.cfg
	mc.UseJSONMode = g.cfg.UseJSONMode || req.JSONMode

	messages := make([]api.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

	resp, err := g.client.ChatCompletion(ctx, mc, g.apiKey, messages)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model %s returned no choices", g.cfg.ModelName)
	}

	return &Response{Text: resp.Choices[0].Message.Content}, nil
}
