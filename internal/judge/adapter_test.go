package judge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/pkg/models"
)

const validVerdictJSON = `{
  "consistency_scores": {"output_stability": 8.5, "behavior_consistency": 8.0, "style_consistency": 7.5},
  "accuracy_scores": {"functional_correctness": 9.0, "code_quality": 8.0, "test_coverage": 7.0},
  "performance_metrics": {"baseline_avg_time": 1.5, "target_avg_time": 1.2, "time_difference": -0.3},
  "analysis": {
    "key_differences": ["LL2 answers are longer"],
    "improvements": ["Better coverage of edge cases"],
    "regressions": [],
    "concerns": ["Slightly slower on large inputs"]
  },
  "recommendations": ["Promote LL2 after a wider accuracy run"],
  "final_recommendation": "PROMOTE_LL2",
  "confidence_level": "High",
  "detailed_explanation": "LL2 outperforms LL1 on every quality dimension."
}`

func comparisonDataset(role models.DatasetType, version string, ids ...string) *models.DatasetFile {
	results := make(map[string]*models.TestResult, len(ids))
	for _, id := range ids {
		r := testResult(id, "output for "+id)
		r.LLMVersion = version
		results[id] = r
	}
	return &models.DatasetFile{
		Metadata: models.DatasetMetadata{
			Feature:           "summarize",
			LLMVersion:        version,
			DatasetType:       role,
			CreationTimestamp: time.Now().UTC(),
			TotalResults:      len(results),
		},
		Results: results,
	}
}

func TestCompareDatasets(t *testing.T) {
	stub := &stubModel{respond: func(llm.Request) (string, error) {
		return validVerdictJSON, nil
	}}
	a := NewAdapter(stub, testConfig(), testLogger())

	baseline := comparisonDataset(models.DatasetTypeBaseline, models.VersionBaseline, "gen_001", "gen_002", "gen_003")
	target := comparisonDataset(models.DatasetTypeTarget, models.VersionTarget, "gen_001", "gen_002", "gen_003")

	verdict := a.CompareDatasets(context.Background(), baseline, target, "summarize", models.TestModeConsistency)

	if verdict.FinalRecommendation != models.JudgePromoteLL2 {
		t.Errorf("FinalRecommendation = %q, want PROMOTE_LL2", verdict.FinalRecommendation)
	}
	if got := verdict.ConsistencyScores["output_stability"]; got != 8.5 {
		t.Errorf("output_stability = %v, want 8.5", got)
	}
	if got := verdict.PerformanceMetrics["time_difference"]; got != -0.3 {
		t.Errorf("time_difference = %v, want -0.3", got)
	}

	req := stub.lastReq()
	if !req.JSONMode {
		t.Error("comparison call should request JSON mode")
	}
	for _, want := range []string{
		`"summarize" feature`,
		"Test mode: consistency",
		"output for gen_001",
		"output for gen_003",
	} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("comparison prompt missing %q", want)
		}
	}
}

func TestCompareDatasetsDefaultOnMissingField(t *testing.T) {
	// Well-formed JSON, but final_recommendation is absent.
	incomplete := strings.Replace(validVerdictJSON,
		`"final_recommendation": "PROMOTE_LL2",`, "", 1)

	stub := &stubModel{respond: func(llm.Request) (string, error) {
		return incomplete, nil
	}}
	a := NewAdapter(stub, testConfig(), testLogger())

	baseline := comparisonDataset(models.DatasetTypeBaseline, models.VersionBaseline, "gen_001")
	target := comparisonDataset(models.DatasetTypeTarget, models.VersionTarget, "gen_001")

	got := a.CompareDatasets(context.Background(), baseline, target, "summarize", models.TestModeConsistency)
	want := models.DefaultVerdict(`judge response missing field "final_recommendation"`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("verdict mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareDatasetsDefaultOnCallError(t *testing.T) {
	stub := &stubModel{respond: func(llm.Request) (string, error) {
		return "", errors.New("backend down")
	}}
	a := NewAdapter(stub, testConfig(), testLogger())

	baseline := comparisonDataset(models.DatasetTypeBaseline, models.VersionBaseline, "gen_001")
	target := comparisonDataset(models.DatasetTypeTarget, models.VersionTarget, "gen_001")

	got := a.CompareDatasets(context.Background(), baseline, target, "summarize", models.TestModeAccuracy)
	want := models.DefaultVerdict("judge call failed: backend down")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("verdict mismatch (-want +got):\n%s", diff)
	}
	if len(got.ConsistencyScores) != len(models.ConsistencyScoreKeys) {
		t.Errorf("default verdict has %d consistency scores, want %d",
			len(got.ConsistencyScores), len(models.ConsistencyScoreKeys))
	}
}

func TestCompareDatasetsDefaultOnGarbage(t *testing.T) {
	stub := &stubModel{respond: func(llm.Request) (string, error) {
		return "the judge rambled instead of returning JSON", nil
	}}
	a := NewAdapter(stub, testConfig(), testLogger())

	baseline := comparisonDataset(models.DatasetTypeBaseline, models.VersionBaseline, "gen_001")
	target := comparisonDataset(models.DatasetTypeTarget, models.VersionTarget, "gen_001")

	got := a.CompareDatasets(context.Background(), baseline, target, "summarize", models.TestModeConsistency)
	if got.FinalRecommendation != models.JudgeFurtherTesting {
		t.Errorf("FinalRecommendation = %q, want FURTHER_TESTING", got.FinalRecommendation)
	}
	if !strings.Contains(got.DetailedExplanation, "not valid JSON") {
		t.Errorf("explanation = %q, want JSON failure reason", got.DetailedExplanation)
	}
}

func TestCompareDatasetsDefaultOnWrongType(t *testing.T) {
	badType := strings.Replace(validVerdictJSON,
		`"final_recommendation": "PROMOTE_LL2",`,
		`"final_recommendation": 42,`, 1)

	stub := &stubModel{respond: func(llm.Request) (string, error) {
		return badType, nil
	}}
	a := NewAdapter(stub, testConfig(), testLogger())

	baseline := comparisonDataset(models.DatasetTypeBaseline, models.VersionBaseline, "gen_001")
	target := comparisonDataset(models.DatasetTypeTarget, models.VersionTarget, "gen_001")

	got := a.CompareDatasets(context.Background(), baseline, target, "summarize", models.TestModeConsistency)
	if got.FinalRecommendation != models.JudgeFurtherTesting {
		t.Errorf("FinalRecommendation = %q, want FURTHER_TESTING", got.FinalRecommendation)
	}
	if !strings.Contains(got.DetailedExplanation, "wrong types") {
		t.Errorf("explanation = %q, want type failure reason", got.DetailedExplanation)
	}
}

func TestCompareDatasetsTruncation(t *testing.T) {
	cfg := testConfig()
	judgeModel := cfg.Models[config.RoleJudge]
	judgeModel.MaxPromptChars = 600
	cfg.Models[config.RoleJudge] = judgeModel

	baseline := comparisonDataset(models.DatasetTypeBaseline, models.VersionBaseline, "gen_001")
	baseline.Results["gen_001"].APIOutput = strings.Repeat("x", 2500) + "ENDMARKER"
	target := comparisonDataset(models.DatasetTypeTarget, models.VersionTarget, "gen_001")

	stub := &stubModel{respond: func(llm.Request) (string, error) {
		return validVerdictJSON, nil
	}}
	a := NewAdapter(stub, cfg, testLogger())

	verdict := a.CompareDatasets(context.Background(), baseline, target, "summarize", models.TestModeConsistency)
	if verdict.FinalRecommendation != models.JudgePromoteLL2 {
		t.Errorf("FinalRecommendation = %q, want PROMOTE_LL2", verdict.FinalRecommendation)
	}

	prompt := stub.lastPrompt()
	if !strings.Contains(prompt, "results_sample") {
		t.Error("truncated prompt should carry a results sample")
	}
	if !strings.Contains(prompt, "dataset truncated to fit the judge prompt budget") {
		t.Error("truncated prompt should carry the truncation note")
	}
	if strings.Contains(prompt, "ENDMARKER") {
		t.Error("oversized output should have been cut before its end")
	}
}

func TestToComparisonResult(t *testing.T) {
	verdict := &models.JudgeVerdict{
		ConsistencyScores:  map[string]float64{"output_stability": 8},
		AccuracyScores:     map[string]float64{"functional_correctness": 9},
		PerformanceMetrics: map[string]float64{"baseline_avg_time": 1.5, "target_avg_time": 1.2, "time_difference": -0.3},
		Analysis: models.VerdictAnalysis{
			KeyDifferences: []string{"LL2 answers are longer"},
			Improvements:   []string{"Better coverage of edge cases"},
			Concerns:       []string{"Slightly slower on large inputs"},
		},
		Recommendations:     []string{"Promote LL2"},
		FinalRecommendation: models.JudgePromoteLL2,
		ConfidenceLevel:     "High",
		DetailedExplanation: "LL2 outperforms LL1.",
	}

	baseline := comparisonDataset(models.DatasetTypeBaseline, models.VersionBaseline, "gen_001", "gen_002", "gen_003")
	target := comparisonDataset(models.DatasetTypeTarget, models.VersionTarget, "gen_001", "gen_002")

	a := NewAdapter(&stubModel{}, testConfig(), testLogger())
	result := a.ToComparisonResult(verdict, baseline, target, "summarize", models.TestModeConsistency)

	if result.Metadata.Strategy != models.StrategyJudge {
		t.Errorf("Strategy = %q, want judge", result.Metadata.Strategy)
	}
	if result.Metadata.BaselineInfo.LLMVersion != models.VersionBaseline {
		t.Errorf("BaselineInfo.LLMVersion = %q, want LL1", result.Metadata.BaselineInfo.LLMVersion)
	}
	if result.Summary.CommonInputs != 2 {
		t.Errorf("CommonInputs = %d, want 2", result.Summary.CommonInputs)
	}
	if want := 2.0 / 3.0; result.Summary.ComparisonCoverage != want {
		t.Errorf("ComparisonCoverage = %v, want %v", result.Summary.ComparisonCoverage, want)
	}
	if result.Recommendation.Decision != models.DecisionRecommendLL2 {
		t.Errorf("Decision = %q, want RECOMMEND_LL2", result.Recommendation.Decision)
	}
	if result.Recommendation.Confidence != models.ConfidenceHigh {
		t.Errorf("Confidence = %q, want high", result.Recommendation.Confidence)
	}
	if diff := cmp.Diff([]string{"LL2 outperforms LL1."}, result.Recommendation.Reasons); diff != "" {
		t.Errorf("Reasons mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Slightly slower on large inputs"}, result.Recommendation.Risks); diff != "" {
		t.Errorf("Risks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Better coverage of edge cases"}, result.Recommendation.Benefits); diff != "" {
		t.Errorf("Benefits mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"LL2 answers are longer"}, result.Insights); diff != "" {
		t.Errorf("Insights mismatch (-want +got):\n%s", diff)
	}
	if result.Performance == nil || result.Performance.BaselineAvgTime != 1.5 {
		t.Errorf("Performance = %+v, want baseline_avg_time 1.5", result.Performance)
	}
	if result.Verdict != verdict {
		t.Error("raw verdict should be attached to the result")
	}
}

func TestToComparisonResultAccuracyMode(t *testing.T) {
	verdict := models.DefaultVerdict("judge unavailable")
	baseline := comparisonDataset(models.DatasetTypeBaseline, models.VersionBaseline, "gen_001", "gen_002")
	target := comparisonDataset(models.DatasetTypeTarget, models.VersionTarget, "gen_002", "gen_101")

	a := NewAdapter(&stubModel{}, testConfig(), testLogger())
	result := a.ToComparisonResult(verdict, baseline, target, "summarize", models.TestModeAccuracy)

	if result.Summary.InputOverlap != 1 {
		t.Errorf("InputOverlap = %d, want 1", result.Summary.InputOverlap)
	}
	if result.Summary.CommonInputs != 0 || result.Summary.ComparisonCoverage != 0 {
		t.Error("consistency-mode summary fields should stay zero in accuracy mode")
	}
	if result.Recommendation.Decision != models.DecisionNeedsMoreTesting {
		t.Errorf("Decision = %q, want NEEDS_MORE_TESTING", result.Recommendation.Decision)
	}
	if result.Recommendation.Confidence != models.ConfidenceLow {
		t.Errorf("Confidence = %q, want low", result.Recommendation.Confidence)
	}
	if result.Insights == nil || len(result.Insights) != 0 {
		t.Errorf("Insights = %v, want empty non-nil slice", result.Insights)
	}
}
