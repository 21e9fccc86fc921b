package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/internal/metrics"
	"github.com/evalgate/evalgate/internal/util"
	"github.com/evalgate/evalgate/pkg/models"
)

// InputGenerator produces mock test inputs for a feature from a generator
// model. Entries the model returns for the wrong feature or with missing
// fields are dropped rather than failing the batch.
type InputGenerator struct {
	gen       llm.Generator
	mgr       *Manager
	cfg       *config.Config
	feature   string
	fc        config.FeatureConfig
	collector *metrics.Collector
	logger    *slog.Logger
}

func NewInputGenerator(gen llm.Generator, mgr *Manager, cfg *config.Config, feature string, collector *metrics.Collector, logger *slog.Logger) (*InputGenerator, error) {
	fc, err := cfg.Feature(feature)
	if err != nil {
		return nil, err
	}
	return &InputGenerator{
		gen:       gen,
		mgr:       mgr,
		cfg:       cfg,
		feature:   feature,
		fc:        fc,
		collector: collector,
		logger:    logger.With("component", "input_generator", "feature", feature),
	}, nil
}

// Generate asks the generator model for numPatterns inputs, validates them,
// persists the surviving set, and returns it with the saved path.
func (g *InputGenerator) Generate(ctx context.Context, numPatterns int) ([]models.TestInput, string, error) {
	if numPatterns < 1 {
		numPatterns = config.DefaultNumPatterns
	}

	prompt, err := util.RenderTemplate(g.cfg.PromptTemplates.InputGeneration, map[string]interface{}{
		"NumPatterns": numPatterns,
		"Feature":     g.feature,
		"Description": g.fc.Description,
		"Guidance":    g.guidanceBlock(),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to render input generation prompt: %w", err)
	}

	g.logger.Info("Generating mock inputs", "count", numPatterns, "model", g.gen.Model())
	resp, err := g.gen.Submit(ctx, llm.Request{Prompt: prompt, JSONMode: true})
	if err != nil {
		return nil, "", fmt.Errorf("input generation call failed: %w", err)
	}

	var raw []models.TestInput
	if err := util.UnmarshalResponse(resp.Text, &raw); err != nil {
		return nil, "", fmt.Errorf("failed to parse generated inputs: %w", err)
	}

	inputs := g.sanitize(raw)
	if len(inputs) == 0 {
		return nil, "", fmt.Errorf("model returned no usable inputs for feature %s", g.feature)
	}
	if len(inputs) < numPatterns {
		g.logger.Warn("Model returned fewer usable inputs than requested",
			"requested", numPatterns, "usable", len(inputs))
	}

	path, err := g.mgr.SaveInputs(inputs)
	if err != nil {
		return nil, "", err
	}
	if g.collector != nil {
		g.collector.RecordInputsGenerated(g.feature, len(inputs))
	}
	return inputs, path, nil
}

// sanitize drops invalid or wrong-feature entries, backfills the prompt id
// from config, and de-duplicates input ids so every result keys uniquely.
func (g *InputGenerator) sanitize(raw []models.TestInput) []models.TestInput {
	seen := make(map[string]bool, len(raw))
	inputs := make([]models.TestInput, 0, len(raw))

	for _, in := range raw {
		if in.Feature != g.feature {
			g.logger.Warn("Dropping input with mismatched feature",
				"input_id", in.InputID, "feature", in.Feature)
			continue
		}
		if !in.Valid() {
			g.logger.Warn("Dropping invalid input", "input_id", in.InputID)
			continue
		}
		if in.PromptID == "" {
			in.PromptID = g.fc.PromptID
		}
		if seen[in.InputID] {
			in.InputID = uniqueID(in.InputID, seen)
			g.logger.Warn("Renamed duplicate input id", "input_id", in.InputID)
		}
		seen[in.InputID] = true
		inputs = append(inputs, in)
	}
	return inputs
}

func (g *InputGenerator) guidanceBlock() string {
	if len(g.fc.InputGuidance) == 0 {
		return "- Cover typical, edge-case, and adversarial usage."
	}
	lines := make([]string, len(g.fc.InputGuidance))
	for i, hint := range g.fc.InputGuidance {
		lines[i] = "- " + hint
	}
	return strings.Join(lines, "\n")
}

func uniqueID(id string, seen map[string]bool) string {
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", id, i)
		if !seen[candidate] {
			return candidate
		}
	}
}
