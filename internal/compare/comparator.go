package compare

import (
	"fmt"
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"github.com/evalgate/evalgate/pkg/models"
)

// Comparator computes the analytic comparison between a baseline and a
// target dataset. All metrics are derived locally from the two files; no
// model is consulted.
type Comparator struct {
	criteria []string
	logger   *slog.Logger
}

// New returns a Comparator scoring the given rubric criteria
func New(criteria []string, logger *slog.Logger) *Comparator {
	return &Comparator{
		criteria: criteria,
		logger:   logger.With("component", "comparator"),
	}
}

// Compare produces the full comparison result for the dataset pair.
// Output and consistency sections only exist in consistency mode, where
// both sides ran the same inputs.
func (c *Comparator) Compare(baseline, target *models.DatasetFile, feature string, mode models.TestMode) *models.ComparisonResult {
	c.logger.Info("Comparing datasets", "feature", feature, "mode", mode)

	result := &models.ComparisonResult{
		Metadata: models.ComparisonMetadata{
			Feature:        feature,
			ComparisonMode: mode,
			Timestamp:      time.Now(),
			Strategy:       models.StrategyAnalytic,
			BaselineInfo:   baseline.Metadata,
			TargetInfo:     target.Metadata,
		},
		Summary:     c.summary(baseline, target, mode),
		Quality:     c.quality(baseline, target),
		Output:      c.outputs(baseline, target, mode),
		Performance: c.performance(baseline, target),
	}
	if mode == models.TestModeConsistency {
		result.Consistency = c.consistency(baseline, target)
	}

	result.Insights = c.insights(result)
	result.Recommendation = c.recommendation(result, mode)
	return result
}

func (c *Comparator) summary(baseline, target *models.DatasetFile, mode models.TestMode) models.ComparisonSummary {
	s := models.ComparisonSummary{
		BaselineCount: len(baseline.Results),
		TargetCount:   len(target.Results),
	}
	common := len(models.CommonInputIDs(baseline, target))
	if mode == models.TestModeConsistency {
		s.CommonInputs = common
		if s.BaselineCount > 0 {
			s.ComparisonCoverage = float64(common) / float64(s.BaselineCount)
		}
	} else {
		// Different prompt sets are expected here, overlap is informational
		s.InputOverlap = common
	}
	return s
}

func (c *Comparator) quality(baseline, target *models.DatasetFile) models.QualityComparison {
	baselineScores := ExtractScores(baseline.Results)
	targetScores := ExtractScores(target.Results)

	qc := models.QualityComparison{
		Criteria: make(map[string]models.CriterionComparison),
	}

	improved := 0
	for _, criterion := range c.criteria {
		bScores := baselineScores[criterion]
		tScores := targetScores[criterion]
		if len(bScores) == 0 || len(tScores) == 0 {
			continue
		}

		bMean, tMean := Mean(bScores), Mean(tScores)
		pctChange := 0.0
		if bMean > 0 {
			pctChange = (tMean - bMean) / bMean * 100
		}
		cc := models.CriterionComparison{
			BaselineMean:  bMean,
			TargetMean:    tMean,
			Difference:    tMean - bMean,
			PercentChange: pctChange,
			Improved:      tMean > bMean,
		}
		qc.Criteria[criterion] = cc
		if cc.Improved {
			improved++
		}
	}

	bOverall := baselineScores[OverallScoreKey]
	tOverall := targetScores[OverallScoreKey]
	if len(bOverall) > 0 && len(tOverall) > 0 {
		qc.Overall = &models.OverallComparison{
			BaselineMean: Mean(bOverall),
			TargetMean:   Mean(tOverall),
			BaselineStd:  SampleStd(bOverall),
			TargetStd:    SampleStd(tOverall),
			Significance: Significance(bOverall, tOverall),
		}
	}

	if n := len(c.criteria); n > 0 {
		qc.Improvement = models.ImprovementAnalysis{
			ImprovedCriteria: improved,
			DegradedCriteria: n - improved,
			ImprovementRate:  float64(improved) / float64(n),
		}
	}
	return qc
}

func (c *Comparator) outputs(baseline, target *models.DatasetFile, mode models.TestMode) *models.OutputComparison {
	if mode != models.TestModeConsistency {
		return nil
	}

	common := models.CommonInputIDs(baseline, target)
	similarities := make([]float64, 0, len(common))
	lengthDiffs := make([]float64, 0, len(common))

	for _, id := range common {
		bOut := baseline.Results[id].APIOutput
		tOut := target.Results[id].APIOutput
		similarities = append(similarities, TokenSetSimilarity(bOut, tOut))
		lengthDiffs = append(lengthDiffs, float64(utf8.RuneCountInString(tOut)-utf8.RuneCountInString(bOut)))
	}

	out := &models.OutputComparison{}
	if len(similarities) > 0 {
		minSim, maxSim := similarities[0], similarities[0]
		high := 0
		for _, s := range similarities {
			minSim = math.Min(minSim, s)
			maxSim = math.Max(maxSim, s)
			if s > HighSimilarityThreshold {
				high++
			}
		}
		out.Similarity = &models.SimilarityMetrics{
			MeanSimilarity:      Mean(similarities),
			MinSimilarity:       minSim,
			MaxSimilarity:       maxSim,
			HighSimilarityCount: high,
		}

		longer, shorter, same := 0, 0, 0
		for _, d := range lengthDiffs {
			switch {
			case d > 0:
				longer++
			case d < 0:
				shorter++
			default:
				same++
			}
		}
		out.Length = &models.LengthComparison{
			MeanDifference: Mean(lengthDiffs),
			LongerOutputs:  longer,
			ShorterOutputs: shorter,
			SameLength:     same,
		}
	}
	return out
}

func (c *Comparator) performance(baseline, target *models.DatasetFile) *models.PerformanceComparison {
	bTimes := responseTimes(baseline.Results)
	tTimes := responseTimes(target.Results)
	if len(bTimes) == 0 || len(tTimes) == 0 {
		return nil
	}
	return &models.PerformanceComparison{
		BaselineAvgTime: Mean(bTimes),
		TargetAvgTime:   Mean(tTimes),
		TimeDifference:  Mean(tTimes) - Mean(bTimes),
		BaselineP95:     P95(bTimes),
		TargetP95:       P95(tTimes),
	}
}

func (c *Comparator) consistency(baseline, target *models.DatasetFile) *models.ConsistencyMetrics {
	common := models.CommonInputIDs(baseline, target)

	scores := make([]float64, 0, len(common))
	variations := make([]models.VariationDetail, 0)

	for _, id := range common {
		bOut := baseline.Results[id].APIOutput
		tOut := target.Results[id].APIOutput
		sim := TokenSetSimilarity(bOut, tOut)
		scores = append(scores, sim)

		if sim < HighConsistencyThreshold {
			variations = append(variations, models.VariationDetail{
				InputID:        id,
				Similarity:     sim,
				BaselineLength: utf8.RuneCountInString(bOut),
				TargetLength:   utf8.RuneCountInString(tOut),
			})
		}
	}

	cm := &models.ConsistencyMetrics{
		SignificantVariations: len(variations),
		VariationDetails:      variations,
	}
	if len(cm.VariationDetails) > 5 {
		cm.VariationDetails = cm.VariationDetails[:5]
	}
	if len(scores) > 0 {
		high := 0
		for _, s := range scores {
			if s > HighConsistencyThreshold {
				high++
			}
		}
		cm.OverallConsistency = Mean(scores)
		cm.ConsistencyStd = SampleStd(scores)
		cm.HighConsistencyRate = float64(high) / float64(len(scores))
	}
	return cm
}

// insights derives the ordered observation list by fixed threshold rules.
// The thresholds are policy constants, not calculated statistics.
func (c *Comparator) insights(result *models.ComparisonResult) []string {
	insights := make([]string, 0, 4)

	if overall := result.Quality.Overall; overall != nil {
		if overall.TargetMean > overall.BaselineMean {
			insights = append(insights, fmt.Sprintf(
				"LL2 shows %.1f point improvement in overall quality score",
				overall.TargetMean-overall.BaselineMean))
		} else {
			insights = append(insights, fmt.Sprintf(
				"LL2 shows %.1f point degradation in overall quality score",
				overall.BaselineMean-overall.TargetMean))
		}
	}

	if cm := result.Consistency; cm != nil {
		if cm.OverallConsistency > 0.9 {
			insights = append(insights, fmt.Sprintf(
				"High consistency between LL1 and LL2 outputs (%.1f%%)",
				cm.OverallConsistency*100))
		} else if cm.OverallConsistency < 0.7 {
			insights = append(insights, fmt.Sprintf(
				"Low consistency between LL1 and LL2 outputs (%.1f%%) - significant variations detected",
				cm.OverallConsistency*100))
		}
	}

	if perf := result.Performance; perf != nil && math.Abs(perf.TimeDifference) > 0.5 {
		if perf.TimeDifference > 0 {
			insights = append(insights, fmt.Sprintf(
				"LL2 is %.1fs slower on average than LL1", perf.TimeDifference))
		} else {
			insights = append(insights, fmt.Sprintf(
				"LL2 is %.1fs faster on average than LL1", -perf.TimeDifference))
		}
	}

	improvement := result.Quality.Improvement
	if total := improvement.ImprovedCriteria + improvement.DegradedCriteria; total > 0 {
		insights = append(insights, fmt.Sprintf(
			"%d/%d evaluation criteria showed improvement with LL2",
			improvement.ImprovedCriteria, total))
	}
	return insights
}

// recommendation walks the decision ladder over (score improvement,
// consistency). Accuracy mode carries no consistency signal, so its ladder
// rests on quality movement alone.
func (c *Comparator) recommendation(result *models.ComparisonResult, mode models.TestMode) models.Recommendation {
	rec := models.Recommendation{
		Reasons:  []string{},
		Risks:    []string{},
		Benefits: []string{},
	}

	var baselineMean, targetMean float64
	if overall := result.Quality.Overall; overall != nil {
		baselineMean, targetMean = overall.BaselineMean, overall.TargetMean
	}
	improvement := targetMean - baselineMean

	if mode != models.TestModeConsistency {
		switch {
		case improvement > 0.5:
			rec.Decision = models.DecisionRecommendLL2
			rec.Confidence = models.ConfidenceHigh
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("Significant quality improvement (%.1f points)", improvement))
			rec.Benefits = append(rec.Benefits, "Better quality outputs")
		case improvement > 0:
			rec.Decision = models.DecisionConsiderLL2
			rec.Confidence = models.ConfidenceMedium
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("Moderate quality improvement (%.1f points)", improvement))
			rec.Risks = append(rec.Risks, "Improvement may not hold across a larger prompt set")
		case improvement < -0.5:
			rec.Decision = models.DecisionKeepLL1
			rec.Confidence = models.ConfidenceHigh
			rec.Reasons = append(rec.Reasons, "Quality degradation detected")
			rec.Risks = append(rec.Risks, "LL2 may produce lower quality outputs")
		default:
			rec.Decision = models.DecisionNeedsMoreTesting
			rec.Confidence = models.ConfidenceLow
			rec.Reasons = append(rec.Reasons, "Inconclusive results - marginal differences detected")
			rec.Risks = append(rec.Risks, "More comprehensive testing needed for confident decision")
		}
		return rec
	}

	consistency := 0.0
	if result.Consistency != nil {
		consistency = result.Consistency.OverallConsistency
	}

	switch {
	case improvement > 0.5 && consistency > 0.8:
		rec.Decision = models.DecisionRecommendLL2
		rec.Confidence = models.ConfidenceHigh
		rec.Reasons = append(rec.Reasons,
			fmt.Sprintf("Significant quality improvement (%.1f points)", improvement),
			fmt.Sprintf("High output consistency (%.1f%%)", consistency*100))
		rec.Benefits = append(rec.Benefits, "Better quality outputs while maintaining consistency")
	case improvement > 0 && consistency > 0.7:
		rec.Decision = models.DecisionConsiderLL2
		rec.Confidence = models.ConfidenceMedium
		rec.Reasons = append(rec.Reasons,
			fmt.Sprintf("Moderate quality improvement (%.1f points)", improvement),
			fmt.Sprintf("Acceptable output consistency (%.1f%%)", consistency*100))
		rec.Risks = append(rec.Risks, "Some output variations may affect user experience")
	case improvement < -0.5 || consistency < 0.6:
		rec.Decision = models.DecisionKeepLL1
		rec.Confidence = models.ConfidenceHigh
		rec.Reasons = append(rec.Reasons, "Quality degradation or low consistency detected")
		rec.Risks = append(rec.Risks, "LL2 may produce inconsistent or lower quality outputs")
	default:
		rec.Decision = models.DecisionNeedsMoreTesting
		rec.Confidence = models.ConfidenceLow
		rec.Reasons = append(rec.Reasons, "Inconclusive results - marginal differences detected")
		rec.Risks = append(rec.Risks, "More comprehensive testing needed for confident decision")
	}
	return rec
}

func responseTimes(results map[string]*models.TestResult) []float64 {
	times := make([]float64, 0, len(results))
	for _, r := range results {
		if r == nil || r.Error != "" {
			continue
		}
		times = append(times, r.ResponseTime)
	}
	return times
}
