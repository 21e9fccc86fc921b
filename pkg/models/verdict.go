package models

// Judge-path recommendation strings. These differ from the canonical
// Decision vocabulary for historical reasons; the raw string is preserved in
// the verdict and mapped via CanonicalDecision for display and persistence.
const (
	JudgePromoteLL2     = "PROMOTE_LL2"
	JudgeKeepLL1        = "KEEP_LL1"
	JudgeFurtherTesting = "FURTHER_TESTING"
)

// VerdictAnalysis is the judge's qualitative breakdown
type VerdictAnalysis struct {
	KeyDifferences []string `json:"key_differences"`
	Improvements   []string `json:"improvements"`
	Regressions    []string `json:"regressions"`
	Concerns       []string `json:"concerns"`
}

// JudgeVerdict is the structured response the judge model must return for a
// whole-dataset comparison. All eight top-level fields are required; a
// response missing any of them degrades to DefaultVerdict.
type JudgeVerdict struct {
	ConsistencyScores   map[string]float64 `json:"consistency_scores"`
	AccuracyScores      map[string]float64 `json:"accuracy_scores"`
	PerformanceMetrics  map[string]float64 `json:"performance_metrics"`
	Analysis            VerdictAnalysis    `json:"analysis"`
	Recommendations     []string           `json:"recommendations"`
	FinalRecommendation string             `json:"final_recommendation"`
	ConfidenceLevel     string             `json:"confidence_level"`
	DetailedExplanation string             `json:"detailed_explanation"`
}

// Expected score keys in judge verdicts
var (
	ConsistencyScoreKeys = []string{"output_stability", "behavior_consistency", "style_consistency"}
	AccuracyScoreKeys    = []string{"functional_correctness", "code_quality", "test_coverage"}
	PerformanceKeys      = []string{"baseline_avg_time", "target_avg_time", "time_difference"}
)

// DefaultVerdict is the conservative all-zero verdict substituted whenever
// the judge call fails, times out, or violates the response contract. The
// comparison pipeline must always produce a result, so this never errors.
func DefaultVerdict(reason string) *JudgeVerdict {
	zeros := func(keys []string) map[string]float64 {
		m := make(map[string]float64, len(keys))
		for _, k := range keys {
			m[k] = 0
		}
		return m
	}
	return &JudgeVerdict{
		ConsistencyScores:  zeros(ConsistencyScoreKeys),
		AccuracyScores:     zeros(AccuracyScoreKeys),
		PerformanceMetrics: zeros(PerformanceKeys),
		Analysis: VerdictAnalysis{
			KeyDifferences: []string{},
			Improvements:   []string{},
			Regressions:    []string{},
			Concerns:       []string{"Automated evaluation was not available for this run"},
		},
		Recommendations:     []string{"Re-run the comparison once the judge backend is reachable"},
		FinalRecommendation: JudgeFurtherTesting,
		ConfidenceLevel:     "Low",
		DetailedExplanation: "Judge evaluation unavailable: " + reason,
	}
}

// CanonicalDecision maps the judge vocabulary onto the canonical Decision
// set. Unknown strings map to NEEDS_MORE_TESTING.
func (v *JudgeVerdict) CanonicalDecision() Decision {
	switch v.FinalRecommendation {
	case JudgePromoteLL2:
		return DecisionRecommendLL2
	case JudgeKeepLL1:
		return DecisionKeepLL1
	case JudgeFurtherTesting:
		return DecisionNeedsMoreTesting
	default:
		return DecisionNeedsMoreTesting
	}
}

// CanonicalConfidence lowercases the judge confidence level into the
// canonical vocabulary ("Moderate" becomes "medium").
func (v *JudgeVerdict) CanonicalConfidence() string {
	switch v.ConfidenceLevel {
	case "High", "high":
		return ConfidenceHigh
	case "Moderate", "moderate", "Medium", "medium":
		return ConfidenceMedium
	case "Low", "low":
		return ConfidenceLow
	default:
		return ConfidenceLow
	}
}
