package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/internal/util"
	"github.com/evalgate/evalgate/pkg/models"
)

const (
	// truncatedSampleSize is how many results per side survive the prompt
	// truncation fallback.
	truncatedSampleSize = 3
	// truncatedOutputRunes caps each sampled output in the fallback prompt.
	truncatedOutputRunes = 2000
)

// requiredVerdictFields are the top-level keys a judge response must carry.
// A response missing any of them is replaced by the default verdict.
var requiredVerdictFields = []string{
	"consistency_scores",
	"accuracy_scores",
	"performance_metrics",
	"analysis",
	"recommendations",
	"final_recommendation",
	"confidence_level",
	"detailed_explanation",
}

// Adapter runs the judge-driven comparison: both datasets go to the LL3
// model in one prompt and the structured verdict comes back. Every failure
// mode degrades to models.DefaultVerdict, never to an error, so phase 3
// always ends with a result on disk.
type Adapter struct {
	gen    llm.Generator
	cfg    *config.Config
	logger *slog.Logger
}

// NewAdapter builds the judge-driven comparison adapter. gen must be the
// judge-role model.
func NewAdapter(gen llm.Generator, cfg *config.Config, logger *slog.Logger) *Adapter {
	return &Adapter{
		gen:    gen,
		cfg:    cfg,
		logger: logger.With("component", "judge"),
	}
}

// CompareDatasets asks the judge for a verdict over the dataset pair. When
// the rendered prompt exceeds the judge model's prompt budget, the datasets
// are replaced with their metadata plus a small result sample.
func (a *Adapter) CompareDatasets(ctx context.Context, baseline, target *models.DatasetFile, feature string, mode models.TestMode) *models.JudgeVerdict {
	prompt, err := a.comparisonPrompt(baseline, target, feature, mode, false)
	if err != nil {
		a.logger.Error("Could not build comparison prompt", "error", err)
		return models.DefaultVerdict("could not build comparison prompt: " + err.Error())
	}

	maxChars := a.cfg.Models[config.RoleJudge].MaxPromptChars
	if maxChars > 0 && len(prompt) > maxChars {
		a.logger.Warn("Comparison prompt over budget, sending dataset samples instead",
			"chars", len(prompt), "limit", maxChars)
		prompt, err = a.comparisonPrompt(baseline, target, feature, mode, true)
		if err != nil {
			a.logger.Error("Could not build truncated comparison prompt", "error", err)
			return models.DefaultVerdict("could not build comparison prompt: " + err.Error())
		}
	}

	a.logger.Info("Requesting judge verdict",
		"feature", feature, "mode", mode, "prompt_chars", len(prompt))

	resp, err := a.gen.Submit(ctx, llm.Request{Prompt: prompt, JSONMode: true})
	if err != nil {
		a.logger.Error("Judge call failed", "error", err)
		return models.DefaultVerdict("judge call failed: " + err.Error())
	}
	return a.parseVerdict(resp.Text)
}

// parseVerdict enforces the response contract: valid JSON with every
// required field present and correctly typed.
func (a *Adapter) parseVerdict(raw string) *models.JudgeVerdict {
	var fields map[string]json.RawMessage
	if err := util.UnmarshalResponse(raw, &fields); err != nil {
		a.logger.Error("Judge response was not valid JSON", "error", err)
		return models.DefaultVerdict("judge response was not valid JSON: " + err.Error())
	}
	for _, field := range requiredVerdictFields {
		if _, ok := fields[field]; !ok {
			a.logger.Error("Judge response missing required field", "field", field)
			return models.DefaultVerdict(fmt.Sprintf("judge response missing field %q", field))
		}
	}

	cleaned, err := json.Marshal(fields)
	if err != nil {
		return models.DefaultVerdict("judge response could not be normalized: " + err.Error())
	}
	var verdict models.JudgeVerdict
	if err := json.Unmarshal(cleaned, &verdict); err != nil {
		a.logger.Error("Judge response fields had wrong types", "error", err)
		return models.DefaultVerdict("judge response fields had wrong types: " + err.Error())
	}
	return &verdict
}

func (a *Adapter) comparisonPrompt(baseline, target *models.DatasetFile, feature string, mode models.TestMode, truncate bool) (string, error) {
	baselineJSON, err := datasetJSON(baseline, truncate)
	if err != nil {
		return "", err
	}
	targetJSON, err := datasetJSON(target, truncate)
	if err != nil {
		return "", err
	}
	return util.RenderTemplate(a.cfg.PromptTemplates.Comparison, map[string]interface{}{
		"Feature":      feature,
		"TestMode":     string(mode),
		"BaselineData": baselineJSON,
		"TargetData":   targetJSON,
	})
}

func datasetJSON(df *models.DatasetFile, truncate bool) (string, error) {
	var v any = df
	if truncate {
		v = truncatedView(df)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize dataset: %w", err)
	}
	return string(data), nil
}

// truncatedView keeps the metadata and a deterministic sample of results so
// oversized datasets still give the judge something concrete to compare.
func truncatedView(df *models.DatasetFile) map[string]any {
	ids := make([]string, 0, len(df.Results))
	for id := range df.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > truncatedSampleSize {
		ids = ids[:truncatedSampleSize]
	}

	sample := make(map[string]*models.TestResult, len(ids))
	for _, id := range ids {
		r := *df.Results[id]
		r.APIOutput = util.TruncateString(r.APIOutput, truncatedOutputRunes)
		r.GUIOutput = util.TruncateString(r.GUIOutput, truncatedOutputRunes)
		sample[id] = &r
	}

	return map[string]any{
		"metadata":       df.Metadata,
		"total_results":  len(df.Results),
		"results_sample": sample,
		"note":           "dataset truncated to fit the judge prompt budget",
	}
}

// ToComparisonResult shapes a judge verdict into the comparison result
// contract shared with the analytic strategy. Scores and the recommendation
// come from the verdict; the summary counts are computed locally since they
// are facts about the files, not judgments.
func (a *Adapter) ToComparisonResult(verdict *models.JudgeVerdict, baseline, target *models.DatasetFile, feature string, mode models.TestMode) *models.ComparisonResult {
	summary := models.ComparisonSummary{
		BaselineCount: len(baseline.Results),
		TargetCount:   len(target.Results),
	}
	common := len(models.CommonInputIDs(baseline, target))
	if mode == models.TestModeConsistency {
		summary.CommonInputs = common
		if summary.BaselineCount > 0 {
			summary.ComparisonCoverage = float64(common) / float64(summary.BaselineCount)
		}
	} else {
		summary.InputOverlap = common
	}

	pm := verdict.PerformanceMetrics
	performance := &models.PerformanceComparison{
		BaselineAvgTime: pm["baseline_avg_time"],
		TargetAvgTime:   pm["target_avg_time"],
		TimeDifference:  pm["time_difference"],
	}

	return &models.ComparisonResult{
		Metadata: models.ComparisonMetadata{
			Feature:        feature,
			ComparisonMode: mode,
			Timestamp:      time.Now(),
			Strategy:       models.StrategyJudge,
			BaselineInfo:   baseline.Metadata,
			TargetInfo:     target.Metadata,
		},
		Summary:     summary,
		Quality:     models.QualityComparison{Criteria: map[string]models.CriterionComparison{}},
		Performance: performance,
		Insights:    orEmpty(verdict.Analysis.KeyDifferences),
		Recommendation: models.Recommendation{
			Decision:   verdict.CanonicalDecision(),
			Confidence: verdict.CanonicalConfidence(),
			Reasons:    explanationReasons(verdict),
			Risks:      orEmpty(verdict.Analysis.Concerns),
			Benefits:   orEmpty(verdict.Analysis.Improvements),
		},
		Verdict: verdict,
	}
}

func explanationReasons(verdict *models.JudgeVerdict) []string {
	if verdict.DetailedExplanation == "" {
		return []string{}
	}
	return []string{verdict.DetailedExplanation}
}

// orEmpty keeps list fields JSON-friendly: [] instead of null
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
