package models

import "time"

// Decision is the canonical recommendation vocabulary. The judge-driven
// comparison path maps its own verdict strings onto this set (see
// JudgeVerdict.CanonicalDecision) so display logic branches on one
// enumeration only.
type Decision string

const (
	DecisionRecommendLL2     Decision = "RECOMMEND_LL2"
	DecisionConsiderLL2      Decision = "CONSIDER_LL2"
	DecisionKeepLL1          Decision = "KEEP_LL1"
	DecisionNeedsMoreTesting Decision = "NEEDS_MORE_TESTING"
)

// Confidence levels attached to recommendations
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Comparison strategies. Analytic computes every metric locally; judge
// delegates scoring and the recommendation to the LLM judge.
const (
	StrategyAnalytic = "analytic"
	StrategyJudge    = "judge"
)

// ComparisonMetadata identifies what was compared and when
type ComparisonMetadata struct {
	Feature        string          `json:"feature"`
	ComparisonMode TestMode        `json:"comparison_mode"`
	Timestamp      time.Time       `json:"timestamp"`
	Strategy       string          `json:"strategy"`
	BaselineInfo   DatasetMetadata `json:"baseline_info"`
	TargetInfo     DatasetMetadata `json:"target_info"`
}

// ComparisonSummary reports result counts and input overlap. Coverage is
// only meaningful in consistency mode, where both sides ran the same inputs.
type ComparisonSummary struct {
	BaselineCount int `json:"baseline_count"`
	TargetCount   int `json:"target_count"`
	// Consistency mode
	CommonInputs       int     `json:"common_inputs,omitempty"`
	ComparisonCoverage float64 `json:"comparison_coverage,omitempty"`
	// Accuracy mode: raw overlap is informational, not a correctness signal
	InputOverlap int `json:"input_overlap,omitempty"`
}

// CriterionComparison compares one evaluation criterion across datasets
type CriterionComparison struct {
	BaselineMean  float64 `json:"baseline_mean"`
	TargetMean    float64 `json:"target_mean"`
	Difference    float64 `json:"difference"`
	PercentChange float64 `json:"percent_change"`
	Improved      bool    `json:"improved"`
}

// SignificanceEstimate is a coarse two-sample comparison. It is a fixed-form
// heuristic, not a t-distribution lookup; Method always says so.
type SignificanceEstimate struct {
	Significant bool     `json:"significant"`
	PValue      *float64 `json:"p_value"`
	TStatistic  *float64 `json:"t_statistic,omitempty"`
	Method      string   `json:"method"`
}

// OverallComparison compares the overall-score distributions
type OverallComparison struct {
	BaselineMean float64              `json:"baseline_mean"`
	TargetMean   float64              `json:"target_mean"`
	BaselineStd  float64              `json:"baseline_std"`
	TargetStd    float64              `json:"target_std"`
	Significance SignificanceEstimate `json:"statistical_significance"`
}

// ImprovementAnalysis tallies per-criterion movement
type ImprovementAnalysis struct {
	ImprovedCriteria int     `json:"improved_criteria"`
	DegradedCriteria int     `json:"degraded_criteria"`
	ImprovementRate  float64 `json:"improvement_rate"`
}

// QualityComparison aggregates judge-score movement between datasets
type QualityComparison struct {
	Criteria    map[string]CriterionComparison `json:"criteria_comparison"`
	Overall     *OverallComparison             `json:"overall_comparison"`
	Improvement ImprovementAnalysis            `json:"improvement_analysis"`
}

// SimilarityMetrics summarizes pairwise output similarity over common inputs
type SimilarityMetrics struct {
	MeanSimilarity      float64 `json:"mean_similarity"`
	MinSimilarity       float64 `json:"min_similarity"`
	MaxSimilarity       float64 `json:"max_similarity"`
	HighSimilarityCount int     `json:"high_similarity_count"`
}

// LengthComparison counts signed output-length movement over common inputs
type LengthComparison struct {
	MeanDifference float64 `json:"mean_difference"`
	LongerOutputs  int     `json:"longer_outputs"`
	ShorterOutputs int     `json:"shorter_outputs"`
	SameLength     int     `json:"same_length"`
}

// OutputComparison holds pairwise output metrics. Nil in accuracy mode,
// where the two sides ran different inputs.
type OutputComparison struct {
	Similarity *SimilarityMetrics `json:"similarity_metrics,omitempty"`
	Length     *LengthComparison  `json:"length_comparison,omitempty"`
}

// PerformanceComparison compares response times. P95 values come from a
// sorted-index lookup, not interpolation, so they are coarse on small sets.
type PerformanceComparison struct {
	BaselineAvgTime float64 `json:"baseline_avg_time"`
	TargetAvgTime   float64 `json:"target_avg_time"`
	TimeDifference  float64 `json:"time_difference"`
	BaselineP95     float64 `json:"baseline_p95"`
	TargetP95       float64 `json:"target_p95"`
}

// VariationDetail records one low-similarity input pair for inspection
type VariationDetail struct {
	InputID        string  `json:"input_id"`
	Similarity     float64 `json:"similarity"`
	BaselineLength int     `json:"baseline_length"`
	TargetLength   int     `json:"target_length"`
}

// ConsistencyMetrics measures output stability across the common input set
type ConsistencyMetrics struct {
	OverallConsistency    float64           `json:"overall_consistency"`
	ConsistencyStd        float64           `json:"consistency_std"`
	HighConsistencyRate   float64           `json:"high_consistency_rate"`
	SignificantVariations int               `json:"significant_variations"`
	VariationDetails      []VariationDetail `json:"variation_details"`
}

// Recommendation is the comparator's decision plus its reasoning
type Recommendation struct {
	Decision   Decision `json:"decision"`
	Confidence string   `json:"confidence"`
	Reasons    []string `json:"reasons"`
	Risks      []string `json:"risks"`
	Benefits   []string `json:"benefits"`
}

// ComparisonResult is the full structured output of a dataset comparison,
// persisted as its own JSON artifact.
type ComparisonResult struct {
	Metadata       ComparisonMetadata     `json:"metadata"`
	Summary        ComparisonSummary      `json:"summary"`
	Quality        QualityComparison      `json:"quality_comparison"`
	Output         *OutputComparison      `json:"output_comparison"`
	Performance    *PerformanceComparison `json:"performance_comparison"`
	Consistency    *ConsistencyMetrics    `json:"consistency_metrics"`
	Insights       []string               `json:"insights"`
	Recommendation Recommendation         `json:"recommendation"`
	// Verdict carries the raw judge output when the judge-driven strategy
	// produced this result.
	Verdict *JudgeVerdict `json:"judge_verdict,omitempty"`
}
