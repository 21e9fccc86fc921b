// Package report renders a comparison result into a markdown report under
// the feature's reports directory. The renderer re-reads both dataset files
// so the report can show per-input detail; a missing dataset degrades to a
// warning, never a failed report.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/dataset"
	"github.com/evalgate/evalgate/pkg/models"
)

// scoreLabels maps verdict score keys to display names. Unknown keys fall
// back to the raw key.
var scoreLabels = map[string]string{
	"output_stability":       "Output Stability",
	"behavior_consistency":   "Behavior Consistency",
	"style_consistency":      "Style Consistency",
	"functional_correctness": "Functional Correctness",
	"code_quality":           "Code Quality",
	"test_coverage":          "Test Coverage",
}

var decisionEmoji = map[models.Decision]string{
	models.DecisionRecommendLL2:     "🚀",
	models.DecisionConsiderLL2:      "👍",
	models.DecisionKeepLL1:          "🛡️",
	models.DecisionNeedsMoreTesting: "🔄",
}

var confidenceEmoji = map[string]string{
	models.ConfidenceHigh:   "💪",
	models.ConfidenceMedium: "👍",
	models.ConfidenceLow:    "🤔",
}

// Renderer writes comparison reports for one feature
type Renderer struct {
	mgr    *dataset.Manager
	cfg    *config.Config
	logger *slog.Logger
}

// NewRenderer builds a report renderer bound to a feature's dataset manager
func NewRenderer(mgr *dataset.Manager, cfg *config.Config, logger *slog.Logger) *Renderer {
	return &Renderer{
		mgr:    mgr,
		cfg:    cfg,
		logger: logger.With("component", "report"),
	}
}

// Render writes the markdown report and returns its path
func (r *Renderer) Render(feature string, result *models.ComparisonResult, baselineRec, targetRec *models.DatasetRecord) (string, error) {
	baselineDF := r.loadDataset(baselineRec)
	targetDF := r.loadDataset(targetRec)

	var b strings.Builder
	r.writeHeader(&b, feature, result)
	r.writeDatasets(&b, baselineRec, targetRec, baselineDF, targetDF)
	r.writeScores(&b, result)
	r.writePerformance(&b, result)
	r.writeAnalysis(&b, result)
	r.writeRecommendations(&b, result)
	r.writeFinalAssessment(&b, result)
	r.writeModelConfigs(&b, baselineRec, targetRec)
	r.writePerInputResults(&b, baselineDF, targetDF)

	reportsDir := filepath.Join(r.mgr.Dir(), "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	name := fmt.Sprintf("comparison_report_%s_%s.md", feature, time.Now().Format("20060102_150405"))
	path := filepath.Join(reportsDir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	r.logger.Info("Report written", "path", path)
	return path, nil
}

// loadDataset re-reads a recorded dataset file. Nil on any failure; the
// report then falls back to the record's counts.
func (r *Renderer) loadDataset(rec *models.DatasetRecord) *models.DatasetFile {
	if rec == nil || rec.Filename == "" {
		return nil
	}
	df, err := r.mgr.LoadDataset(rec.Filename)
	if err != nil {
		r.logger.Warn("Could not load dataset for report", "path", rec.Filename, "error", err)
		return nil
	}
	return df
}

func (r *Renderer) writeHeader(b *strings.Builder, feature string, result *models.ComparisonResult) {
	fmt.Fprintf(b, "# Comparison Report: %s\n\n", feature)
	fmt.Fprintf(b, "- Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(b, "- Test mode: %s\n", result.Metadata.ComparisonMode)
	fmt.Fprintf(b, "- Strategy: %s\n\n", result.Metadata.Strategy)
}

func (r *Renderer) writeDatasets(b *strings.Builder, baselineRec, targetRec *models.DatasetRecord, baselineDF, targetDF *models.DatasetFile) {
	b.WriteString("## Datasets\n\n")
	fmt.Fprintf(b, "📌 Baseline (LL1) results: %d\n\n", recordCount(baselineRec, baselineDF))
	fmt.Fprintf(b, "🎯 Target (LL2) results: %d\n\n", recordCount(targetRec, targetDF))

	writeEvalLine := func(label string, df *models.DatasetFile) {
		if df == nil || df.Metadata.Evaluation == nil {
			return
		}
		ev := df.Metadata.Evaluation
		fmt.Fprintf(b, "- %s judge scores: avg %.2f (min %.2f, max %.2f) over %d results\n",
			label, ev.AverageScore, ev.MinScore, ev.MaxScore, ev.TotalEvaluated)
	}
	writeEvalLine("Baseline", baselineDF)
	writeEvalLine("Target", targetDF)
	b.WriteString("\n")
}

func recordCount(rec *models.DatasetRecord, df *models.DatasetFile) int {
	if df != nil {
		return len(df.Results)
	}
	if rec != nil {
		return rec.NumInputs
	}
	return 0
}

func (r *Renderer) writeScores(b *strings.Builder, result *models.ComparisonResult) {
	if result.Verdict != nil {
		r.writeVerdictScores(b, result.Verdict)
		return
	}
	r.writeAnalyticScores(b, result)
}

func (r *Renderer) writeVerdictScores(b *strings.Builder, verdict *models.JudgeVerdict) {
	b.WriteString("## Scores\n\n")
	b.WriteString("🎯 Consistency metrics:\n\n")
	writeScoreLines(b, verdict.ConsistencyScores, models.ConsistencyScoreKeys)
	b.WriteString("\n✅ Accuracy metrics:\n\n")
	writeScoreLines(b, verdict.AccuracyScores, models.AccuracyScoreKeys)
	b.WriteString("\n")
}

func writeScoreLines(b *strings.Builder, scores map[string]float64, keys []string) {
	for _, key := range keys {
		v := scores[key]
		label, ok := scoreLabels[key]
		if !ok {
			label = key
		}
		fmt.Fprintf(b, "- %s %s: %.2f\n", scoreEmoji(v), label, v)
	}
}

func (r *Renderer) writeAnalyticScores(b *strings.Builder, result *models.ComparisonResult) {
	b.WriteString("## Quality comparison\n\n")

	if len(result.Quality.Criteria) > 0 {
		b.WriteString("| Criterion | LL1 mean | LL2 mean | Change | % | Improved |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		names := make([]string, 0, len(result.Quality.Criteria))
		for name := range result.Quality.Criteria {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cc := result.Quality.Criteria[name]
			mark := "❌"
			if cc.Improved {
				mark = "✅"
			}
			fmt.Fprintf(b, "| %s | %.2f | %.2f | %+.2f | %+.1f%% | %s |\n",
				name, cc.BaselineMean, cc.TargetMean, cc.Difference, cc.PercentChange, mark)
		}
		b.WriteString("\n")
	}

	if overall := result.Quality.Overall; overall != nil {
		fmt.Fprintf(b, "Overall score: LL1 %.2f (±%.2f) → LL2 %.2f (±%.2f)\n\n",
			overall.BaselineMean, overall.BaselineStd, overall.TargetMean, overall.TargetStd)
		sig := overall.Significance
		if sig.Significant {
			b.WriteString("The difference is significant under the built-in heuristic estimate.\n\n")
		} else {
			b.WriteString("The difference is not significant under the built-in heuristic estimate.\n\n")
		}
	}

	if cons := result.Consistency; cons != nil {
		b.WriteString("🎯 Consistency metrics:\n\n")
		fmt.Fprintf(b, "- Overall consistency: %.1f%%\n", cons.OverallConsistency*100)
		fmt.Fprintf(b, "- High consistency rate: %.1f%%\n", cons.HighConsistencyRate*100)
		fmt.Fprintf(b, "- Significant variations: %d\n", cons.SignificantVariations)
		for _, v := range cons.VariationDetails {
			fmt.Fprintf(b, "  - ⚠️ %s: similarity %.2f (lengths %d vs %d)\n",
				v.InputID, v.Similarity, v.BaselineLength, v.TargetLength)
		}
		b.WriteString("\n")
	}
}

func (r *Renderer) writePerformance(b *strings.Builder, result *models.ComparisonResult) {
	perf := result.Performance
	if perf == nil {
		return
	}
	b.WriteString("## Performance\n\n")
	fmt.Fprintf(b, "- ⏱️ Baseline avg time: %.3fs\n", perf.BaselineAvgTime)
	fmt.Fprintf(b, "- ⏱️ Target avg time: %.3fs\n", perf.TargetAvgTime)
	fmt.Fprintf(b, "- %s Time difference: %+.3fs\n", timeEmoji(perf.TimeDifference), perf.TimeDifference)
	if perf.BaselineP95 > 0 || perf.TargetP95 > 0 {
		fmt.Fprintf(b, "- p95: %.3fs → %.3fs\n", perf.BaselineP95, perf.TargetP95)
	}
	b.WriteString("\n")
}

func (r *Renderer) writeAnalysis(b *strings.Builder, result *models.ComparisonResult) {
	if verdict := result.Verdict; verdict != nil {
		b.WriteString("## Analysis\n\n")
		writeBulleted(b, "Key differences", "•", verdict.Analysis.KeyDifferences)
		writeBulleted(b, "Improvements", "✅", verdict.Analysis.Improvements)
		writeBulleted(b, "Regressions", "❌", verdict.Analysis.Regressions)
		writeBulleted(b, "Concerns", "⚠️", verdict.Analysis.Concerns)
		return
	}
	if len(result.Insights) > 0 {
		b.WriteString("## Insights\n\n")
		for _, insight := range result.Insights {
			fmt.Fprintf(b, "• %s\n", insight)
		}
		b.WriteString("\n")
	}
}

func writeBulleted(b *strings.Builder, title, marker string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "%s %s\n", marker, item)
	}
	b.WriteString("\n")
}

// writeRecommendations lists the judge's numbered action items. The analytic
// path has no free-form recommendations; its reasoning lands in the final
// assessment instead.
func (r *Renderer) writeRecommendations(b *strings.Builder, result *models.ComparisonResult) {
	if result.Verdict == nil || len(result.Verdict.Recommendations) == 0 {
		return
	}
	b.WriteString("## Recommendations\n\n")
	for i, item := range result.Verdict.Recommendations {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
	b.WriteString("\n")
}

func (r *Renderer) writeFinalAssessment(b *strings.Builder, result *models.ComparisonResult) {
	rec := result.Recommendation
	b.WriteString("## Final assessment\n\n")
	fmt.Fprintf(b, "%s Decision: %s\n\n", emojiOr(decisionEmoji[rec.Decision]), rec.Decision)
	fmt.Fprintf(b, "%s Confidence level: %s\n\n", emojiOr(confidenceEmoji[rec.Confidence]), rec.Confidence)

	if result.Verdict != nil && result.Verdict.DetailedExplanation != "" {
		fmt.Fprintf(b, "%s\n\n", result.Verdict.DetailedExplanation)
		return
	}
	writeBulleted(b, "Why", "•", rec.Reasons)
	writeBulleted(b, "Risks", "⚠️", rec.Risks)
	writeBulleted(b, "Benefits", "✅", rec.Benefits)
}

func emojiOr(e string) string {
	if e == "" {
		return "❓"
	}
	return e
}

func (r *Renderer) writeModelConfigs(b *strings.Builder, baselineRec, targetRec *models.DatasetRecord) {
	b.WriteString("## Model configurations\n\n")
	writeConfigLine := func(label string, rec *models.DatasetRecord) {
		if rec == nil || rec.LLMConfig == nil {
			fmt.Fprintf(b, "- %s: unknown\n", label)
			return
		}
		fmt.Fprintf(b, "- %s: %s (%s)\n", label, rec.LLMConfig.Model, rec.LLMConfig.Type)
	}
	writeConfigLine("LL1 (baseline)", baselineRec)
	writeConfigLine("LL2 (target)", targetRec)

	judge := r.cfg.Models[config.RoleJudge]
	if judge.ModelName != "" {
		fmt.Fprintf(b, "- LL3 (judge): %s (%s)\n", judge.ModelName, judge.Provider)
	} else {
		b.WriteString("- LL3 (judge): unknown\n")
	}
	b.WriteString("\n")
}

// writePerInputResults emits the per-input appendix over the common input
// set. Needs both datasets on disk; silently absent otherwise.
func (r *Renderer) writePerInputResults(b *strings.Builder, baselineDF, targetDF *models.DatasetFile) {
	if baselineDF == nil || targetDF == nil {
		return
	}
	common := models.CommonInputIDs(baselineDF, targetDF)
	if len(common) == 0 {
		return
	}

	b.WriteString("## Per-input results\n\n")
	b.WriteString("| Input | LL1 score | LL2 score | LL1 time | LL2 time |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, id := range common {
		fmt.Fprintf(b, "| %s | %s | %s | %.2fs | %.2fs |\n",
			id,
			overallScoreCell(baselineDF.Results[id]),
			overallScoreCell(targetDF.Results[id]),
			baselineDF.Results[id].ResponseTime,
			targetDF.Results[id].ResponseTime)
	}
	b.WriteString("\n")
}

func overallScoreCell(res *models.TestResult) string {
	if res == nil || res.LL3Evaluation == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", res.LL3Evaluation.OverallScore)
}

// Judge verdict scores run 0-10
func scoreEmoji(v float64) string {
	switch {
	case v >= 8:
		return "🟢"
	case v >= 6:
		return "🟡"
	default:
		return "🔴"
	}
}

func timeEmoji(diff float64) string {
	switch {
	case diff < 0:
		return "🟢"
	case diff > 0:
		return "🔴"
	default:
		return "⚪"
	}
}
