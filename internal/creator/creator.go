// Package creator runs feature inputs through the assistant model and
// assembles the raw dataset for a phase. One run produces one dataset file
// plus an api_call_summary artifact; per-input failures are tallied, and the
// run only fails outright when no input succeeds.
package creator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/dataset"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/internal/metrics"
	"github.com/evalgate/evalgate/internal/util"
	"github.com/evalgate/evalgate/pkg/models"
	"github.com/schollz/progressbar/v3"
)

// Creator drives dataset creation for one feature. gen must be the
// assistant-role model, configured as LL1 or LL2 depending on the phase.
type Creator struct {
	gen       llm.Generator
	mgr       *dataset.Manager
	cfg       *config.Config
	fc        config.FeatureConfig
	feature   string
	collector *metrics.Collector
	logger    *slog.Logger
}

// New builds a creator for one feature
func New(gen llm.Generator, mgr *dataset.Manager, cfg *config.Config, feature string, collector *metrics.Collector, logger *slog.Logger) (*Creator, error) {
	fc, err := cfg.Feature(feature)
	if err != nil {
		return nil, err
	}
	return &Creator{
		gen:       gen,
		mgr:       mgr,
		cfg:       cfg,
		fc:        fc,
		feature:   feature,
		collector: collector,
		logger:    logger.With("component", "creator", "feature", feature),
	}, nil
}

// CreateDataset calls the assistant once per input and writes the raw
// dataset for the given role. Inputs that fail keep no results entry; their
// errors land in the returned summary. The dataset file is only written when
// at least one call succeeded.
func (c *Creator) CreateDataset(ctx context.Context, inputs []models.TestInput, role models.DatasetType) (string, *models.CallSummary, error) {
	version := versionFor(role)
	c.logger.Info("Creating dataset through the assistant",
		"inputs", len(inputs), "role", role, "llm_version", version, "model", c.gen.Model())

	summary := &models.CallSummary{
		TotalInputs: len(inputs),
		StartTime:   time.Now().UTC(),
	}
	results := make(map[string]*models.TestResult, len(inputs))

	bar := progressbar.Default(int64(len(inputs)), "Calling assistant")
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return "", summary, fmt.Errorf("dataset creation cancelled: %w", err)
		}
		c.logger.Debug("Processing input", "index", i+1, "total", len(inputs), "input_id", in.InputID)

		if !in.Valid() {
			c.recordFailure(summary, in.InputID, fmt.Sprintf("Invalid input data for %s", in.InputID))
			_ = bar.Add(1)
			continue
		}

		start := time.Now()
		resp, err := c.gen.Submit(ctx, llm.Request{System: c.fc.SystemPrompt, Prompt: in.Prompt})
		elapsed := time.Since(start)
		if c.collector != nil {
			c.collector.RecordLLMCall(config.RoleAssistant, c.gen.Model(), elapsed, err == nil)
		}
		if err != nil {
			c.recordFailure(summary, in.InputID, "API error: "+err.Error())
			_ = bar.Add(1)
			continue
		}

		results[in.InputID] = &models.TestResult{
			InputID:      in.InputID,
			Feature:      in.Feature,
			UserInput:    in.Prompt,
			APIInput:     in.Prompt,
			Config:       in.Config,
			APIOutput:    resp.Text,
			GUIOutput:    util.StripThinkTags(resp.Text),
			LLMVersion:   version,
			Timestamp:    time.Now().UTC(),
			ResponseTime: elapsed.Seconds(),
		}
		summary.SuccessfulCalls++
		c.logger.Debug("Input processed", "input_id", in.InputID, "response_time", elapsed.Seconds())
		_ = bar.Add(1)
	}
	summary.EndTime = time.Now().UTC()

	if len(results) == 0 {
		return "", summary, fmt.Errorf("all %d assistant calls failed for feature %s", len(inputs), c.feature)
	}

	df := &models.DatasetFile{
		Metadata: models.DatasetMetadata{
			Feature:           c.feature,
			LLMVersion:        version,
			DatasetType:       role,
			CreationTimestamp: time.Now().UTC(),
			TotalResults:      len(results),
		},
		Inputs:  inputs,
		Results: results,
	}

	rawType := dataset.RawType(role)
	path, err := c.mgr.SaveDataset(rawType, version, df)
	if err != nil {
		return "", summary, err
	}
	c.mgr.Cleanup(rawType, c.cfg.Workflow.KeepFiles)
	c.saveCallSummary(summary, version)

	c.logger.Info("Dataset created",
		"path", path,
		"successful", summary.SuccessfulCalls,
		"failed", summary.FailedCalls)
	return path, summary, nil
}

func (c *Creator) recordFailure(summary *models.CallSummary, inputID, msg string) {
	c.logger.Warn("Input failed", "input_id", inputID, "error", msg)
	summary.FailedCalls++
	summary.Errors = append(summary.Errors, models.CallError{InputID: inputID, Error: msg})
}

// saveCallSummary persists the run accounting next to the dataset. Failure
// here is logged only; the dataset itself is already safe.
func (c *Creator) saveCallSummary(summary *models.CallSummary, version string) {
	path := c.mgr.GenerateFilename(dataset.TypeCallSummary, version)
	if err := c.mgr.SaveJSON(path, summary); err != nil {
		c.logger.Warn("Could not save call summary", "error", err)
		return
	}
	c.mgr.Cleanup(dataset.TypeCallSummary, c.cfg.Workflow.KeepFiles)
}

func versionFor(role models.DatasetType) string {
	if role == models.DatasetTypeTarget {
		return models.VersionTarget
	}
	return models.VersionBaseline
}
