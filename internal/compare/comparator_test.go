package compare

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/evalgate/evalgate/pkg/models"
)

func testComparator() *Comparator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New([]string{"accuracy", "completeness"}, logger)
}

func evalResult(output string, overall float64, scores map[string]float64, responseTime float64) *models.TestResult {
	return &models.TestResult{
		APIOutput:    output,
		ResponseTime: responseTime,
		LL3Evaluation: &models.LLMEvaluation{
			Scores:       scores,
			OverallScore: overall,
		},
	}
}

func dataset(results map[string]*models.TestResult) *models.DatasetFile {
	return &models.DatasetFile{
		Metadata: models.DatasetMetadata{Feature: "generate_code", TotalResults: len(results)},
		Results:  results,
	}
}

// pairedDatasets builds baseline/target sets over the same input ids, with
// uniform overall scores and outputs per side.
func pairedDatasets(n int, baselineOverall, targetOverall float64, baselineOut, targetOut string) (*models.DatasetFile, *models.DatasetFile) {
	baseline := make(map[string]*models.TestResult, n)
	target := make(map[string]*models.TestResult, n)
	for i := 0; i < n; i++ {
		id := "gen_00" + string(rune('1'+i))
		// Small per-input jitter keeps the sample variance nonzero
		jitter := float64(i%2) * 0.2
		scores := func(v float64) map[string]float64 {
			return map[string]float64{"accuracy": v, "completeness": v}
		}
		baseline[id] = evalResult(baselineOut, baselineOverall+jitter, scores(baselineOverall), 1.0)
		target[id] = evalResult(targetOut, targetOverall+jitter, scores(targetOverall), 1.2)
	}
	return dataset(baseline), dataset(target)
}

func TestTokenSetSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the quick brown fox", "the quick brown fox", 1.0},
		{"both empty", "", "", 1.0},
		{"empty vs nonempty", "", "something", 0.0},
		{"nonempty vs empty", "something", "", 0.0},
		{"whitespace only pair", "   ", " \t ", 1.0},
		{"disjoint", "alpha beta", "gamma delta", 0.0},
		{"partial overlap", "the quick brown fox", "the quick red fox", 0.6},
		{"case insensitive", "Hello World", "hello world", 1.0},
		{"repetition ignored", "go go go", "go", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenSetSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("TokenSetSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got, rev := TokenSetSimilarity(tt.a, tt.b), TokenSetSimilarity(tt.b, tt.a); got != rev {
				t.Errorf("similarity not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestMean(t *testing.T) {
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
	values := []float64{2, 4, 9}
	got := Mean(values)
	if got != 5 {
		t.Errorf("Mean() = %v, want 5", got)
	}
	if got < values[0] || got > values[2] {
		t.Errorf("Mean() = %v outside [min, max]", got)
	}
}

func TestSampleStd(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single value", []float64{5}, 0},
		{"spread", []float64{2, 4, 6}, 2},
		{"constant", []float64{3, 3, 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SampleStd(tt.values); got != tt.want {
				t.Errorf("SampleStd(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestP95(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{1.5}, 1.5},
		{"ten values", []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := P95(tt.values); got != tt.want {
				t.Errorf("P95(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestSignificance(t *testing.T) {
	t.Run("too few samples", func(t *testing.T) {
		est := Significance([]float64{5}, []float64{6, 7})
		if est.Significant || est.PValue != nil {
			t.Errorf("Significance() = %+v, want not significant with nil p-value", est)
		}
		if est.Method != SignificanceMethod {
			t.Errorf("Method = %q, want %q", est.Method, SignificanceMethod)
		}
	})

	t.Run("zero variance", func(t *testing.T) {
		est := Significance([]float64{5, 5, 5}, []float64{5, 5, 5})
		if est.Significant || est.PValue != nil {
			t.Errorf("Significance() = %+v, want not significant with nil p-value", est)
		}
	})

	t.Run("clearly different", func(t *testing.T) {
		est := Significance([]float64{1, 2, 1, 2}, []float64{9, 8, 9, 8})
		if !est.Significant {
			t.Errorf("Significance() = %+v, want significant", est)
		}
		if est.PValue == nil || *est.PValue >= 0.05 {
			t.Errorf("p-value = %v, want < 0.05", est.PValue)
		}
		if est.TStatistic == nil || *est.TStatistic <= 0 {
			t.Errorf("t-statistic = %v, want positive for target above baseline", est.TStatistic)
		}
	})

	t.Run("marginal difference", func(t *testing.T) {
		est := Significance([]float64{5, 6, 5, 6}, []float64{5.1, 6.1, 5, 6})
		if est.Significant {
			t.Errorf("Significance() = %+v, want not significant", est)
		}
		if est.PValue == nil {
			t.Fatal("p-value should be set when samples are large enough")
		}
	})
}

func TestExtractScores(t *testing.T) {
	results := map[string]*models.TestResult{
		"a": evalResult("x", 8.0, map[string]float64{"accuracy": 7.0}, 1.0),
		"b": evalResult("y", 6.0, map[string]float64{"accuracy": 5.0}, 1.0),
		"c": {APIOutput: "no evaluation"},
		"d": nil,
	}

	scores := ExtractScores(results)
	if len(scores["accuracy"]) != 2 {
		t.Errorf("accuracy scores = %v, want 2 entries", scores["accuracy"])
	}
	if len(scores[OverallScoreKey]) != 2 {
		t.Errorf("overall scores = %v, want 2 entries", scores[OverallScoreKey])
	}
	if got := Mean(scores[OverallScoreKey]); got != 7.0 {
		t.Errorf("overall mean = %v, want 7.0", got)
	}
}

func TestCompareIdenticalOutputs(t *testing.T) {
	baseline, target := pairedDatasets(3, 7.0, 7.0, "same output text", "same output text")

	result := testComparator().Compare(baseline, target, "generate_code", models.TestModeConsistency)

	if result.Summary.CommonInputs != 3 || result.Summary.ComparisonCoverage != 1.0 {
		t.Errorf("summary = %+v, want 3 common inputs with full coverage", result.Summary)
	}
	if result.Consistency == nil {
		t.Fatal("consistency metrics missing in consistency mode")
	}
	if result.Consistency.OverallConsistency != 1.0 {
		t.Errorf("overall_consistency = %v, want 1.0", result.Consistency.OverallConsistency)
	}
	if result.Consistency.SignificantVariations != 0 {
		t.Errorf("significant_variations = %d, want 0", result.Consistency.SignificantVariations)
	}
	if result.Consistency.HighConsistencyRate != 1.0 {
		t.Errorf("high_consistency_rate = %v, want 1.0", result.Consistency.HighConsistencyRate)
	}
	if result.Output == nil || result.Output.Similarity == nil {
		t.Fatal("output comparison missing in consistency mode")
	}
	if result.Output.Similarity.MeanSimilarity != 1.0 || result.Output.Similarity.HighSimilarityCount != 3 {
		t.Errorf("similarity = %+v, want all identical", result.Output.Similarity)
	}
	if result.Output.Length.SameLength != 3 {
		t.Errorf("length comparison = %+v, want 3 same-length", result.Output.Length)
	}

	// Identical scores and perfect consistency: inconclusive by design
	if result.Recommendation.Decision != models.DecisionNeedsMoreTesting {
		t.Errorf("decision = %s, want %s", result.Recommendation.Decision, models.DecisionNeedsMoreTesting)
	}

	foundHighConsistency := false
	for _, insight := range result.Insights {
		if strings.Contains(insight, "High consistency") {
			foundHighConsistency = true
		}
	}
	if !foundHighConsistency {
		t.Errorf("insights = %v, want a high-consistency observation", result.Insights)
	}
}

func TestCompareRecommendationLadder(t *testing.T) {
	tests := []struct {
		name           string
		baselineScore  float64
		targetScore    float64
		baselineOut    string
		targetOut      string
		wantDecision   models.Decision
		wantConfidence string
	}{
		{
			name:          "clear improvement with consistent outputs",
			baselineScore: 7.0, targetScore: 8.0,
			baselineOut: "identical answer", targetOut: "identical answer",
			wantDecision: models.DecisionRecommendLL2, wantConfidence: models.ConfidenceHigh,
		},
		{
			name:          "small improvement with consistent outputs",
			baselineScore: 7.0, targetScore: 7.2,
			baselineOut: "identical answer", targetOut: "identical answer",
			wantDecision: models.DecisionConsiderLL2, wantConfidence: models.ConfidenceMedium,
		},
		{
			name:          "quality regression",
			baselineScore: 7.0, targetScore: 5.5,
			baselineOut: "identical answer", targetOut: "identical answer",
			wantDecision: models.DecisionKeepLL1, wantConfidence: models.ConfidenceHigh,
		},
		{
			name:          "improvement but divergent outputs",
			baselineScore: 7.0, targetScore: 7.2,
			baselineOut: "alpha beta gamma", targetOut: "delta epsilon zeta",
			wantDecision: models.DecisionKeepLL1, wantConfidence: models.ConfidenceHigh,
		},
		{
			name:          "no movement",
			baselineScore: 7.0, targetScore: 7.0,
			baselineOut: "identical answer", targetOut: "identical answer",
			wantDecision: models.DecisionNeedsMoreTesting, wantConfidence: models.ConfidenceLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseline, target := pairedDatasets(4, tt.baselineScore, tt.targetScore, tt.baselineOut, tt.targetOut)
			result := testComparator().Compare(baseline, target, "generate_code", models.TestModeConsistency)

			if result.Recommendation.Decision != tt.wantDecision {
				t.Errorf("decision = %s, want %s", result.Recommendation.Decision, tt.wantDecision)
			}
			if result.Recommendation.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %s, want %s", result.Recommendation.Confidence, tt.wantConfidence)
			}
			if len(result.Recommendation.Reasons) == 0 {
				t.Error("recommendation carries no reasons")
			}
		})
	}
}

func TestCompareAccuracyMode(t *testing.T) {
	baseline := dataset(map[string]*models.TestResult{
		"old_001": evalResult("answer one", 6.0, map[string]float64{"accuracy": 6.0}, 1.0),
		"old_002": evalResult("answer two", 6.4, map[string]float64{"accuracy": 6.4}, 1.0),
	})
	target := dataset(map[string]*models.TestResult{
		"new_001": evalResult("fresh one", 7.0, map[string]float64{"accuracy": 7.0}, 1.0),
		"new_002": evalResult("fresh two", 7.4, map[string]float64{"accuracy": 7.4}, 1.0),
	})

	result := testComparator().Compare(baseline, target, "generate_code", models.TestModeAccuracy)

	if result.Output != nil {
		t.Error("output comparison should be nil in accuracy mode")
	}
	if result.Consistency != nil {
		t.Error("consistency metrics should be nil in accuracy mode")
	}
	if result.Summary.InputOverlap != 0 || result.Summary.CommonInputs != 0 {
		t.Errorf("summary = %+v, want zero overlap reported as input_overlap", result.Summary)
	}
	// Fresh prompts carry no consistency signal; quality movement decides
	if result.Recommendation.Decision != models.DecisionRecommendLL2 {
		t.Errorf("decision = %s, want %s", result.Recommendation.Decision, models.DecisionRecommendLL2)
	}
}

func TestCompareQualityCriteria(t *testing.T) {
	baseline, target := pairedDatasets(4, 6.0, 7.5, "same", "same")
	result := testComparator().Compare(baseline, target, "generate_code", models.TestModeConsistency)

	cc, ok := result.Quality.Criteria["accuracy"]
	if !ok {
		t.Fatalf("criteria comparison missing accuracy: %+v", result.Quality.Criteria)
	}
	if cc.Difference != 1.5 || !cc.Improved {
		t.Errorf("accuracy comparison = %+v, want +1.5 improved", cc)
	}
	if got := cc.PercentChange; got != 25.0 {
		t.Errorf("percent change = %v, want 25.0", got)
	}

	improvement := result.Quality.Improvement
	if improvement.ImprovedCriteria != 2 || improvement.DegradedCriteria != 0 || improvement.ImprovementRate != 1.0 {
		t.Errorf("improvement analysis = %+v, want both criteria improved", improvement)
	}

	if result.Quality.Overall == nil {
		t.Fatal("overall comparison missing")
	}
	if result.Quality.Overall.Significance.Method != SignificanceMethod {
		t.Errorf("significance method = %q, want %q", result.Quality.Overall.Significance.Method, SignificanceMethod)
	}
}

func TestComparePerformance(t *testing.T) {
	baseline, target := pairedDatasets(3, 7.0, 7.0, "same", "same")
	result := testComparator().Compare(baseline, target, "generate_code", models.TestModeConsistency)

	perf := result.Performance
	if perf == nil {
		t.Fatal("performance comparison missing")
	}
	if diff := perf.TimeDifference; diff < 0.19 || diff > 0.21 {
		t.Errorf("time_difference = %v, want ~0.2", diff)
	}
	if perf.BaselineAvgTime != 1.0 {
		t.Errorf("baseline_avg_time = %v, want 1.0", perf.BaselineAvgTime)
	}
}

func TestCompareVariationDetailsCapped(t *testing.T) {
	baseline := make(map[string]*models.TestResult)
	target := make(map[string]*models.TestResult)
	ids := []string{"gen_001", "gen_002", "gen_003", "gen_004", "gen_005", "gen_006", "gen_007"}
	for _, id := range ids {
		baseline[id] = evalResult("alpha beta", 7.0, nil, 1.0)
		target[id] = evalResult("gamma delta", 7.0, nil, 1.0)
	}

	result := testComparator().Compare(dataset(baseline), dataset(target), "generate_code", models.TestModeConsistency)

	cm := result.Consistency
	if cm.SignificantVariations != len(ids) {
		t.Errorf("significant_variations = %d, want %d", cm.SignificantVariations, len(ids))
	}
	if len(cm.VariationDetails) != 5 {
		t.Fatalf("variation details = %d entries, want capped at 5", len(cm.VariationDetails))
	}
	if cm.VariationDetails[0].InputID != "gen_001" {
		t.Errorf("details not ordered by input id: first = %s", cm.VariationDetails[0].InputID)
	}
}

func TestCompareNoEvaluations(t *testing.T) {
	baseline := dataset(map[string]*models.TestResult{
		"gen_001": {APIOutput: "raw output", ResponseTime: 1.0},
	})
	target := dataset(map[string]*models.TestResult{
		"gen_001": {APIOutput: "raw output", ResponseTime: 1.0},
	})

	result := testComparator().Compare(baseline, target, "generate_code", models.TestModeConsistency)

	if result.Quality.Overall != nil {
		t.Error("overall comparison should be nil without evaluations")
	}
	if len(result.Quality.Criteria) != 0 {
		t.Errorf("criteria comparison = %+v, want empty", result.Quality.Criteria)
	}
	if result.Recommendation.Decision != models.DecisionNeedsMoreTesting {
		t.Errorf("decision = %s, want %s", result.Recommendation.Decision, models.DecisionNeedsMoreTesting)
	}
}
