package compare

import "github.com/evalgate/evalgate/pkg/models"

// OverallScoreKey indexes the judge's overall score alongside the
// per-criterion arrays in an extracted score map.
const OverallScoreKey = "overall"

// ExtractScores collects the judge's scores across a result map, keyed by
// criterion plus OverallScoreKey. Results without an evaluation contribute
// nothing.
func ExtractScores(results map[string]*models.TestResult) map[string][]float64 {
	scores := make(map[string][]float64)
	for _, result := range results {
		if result == nil || result.LL3Evaluation == nil {
			continue
		}
		eval := result.LL3Evaluation
		for criterion, score := range eval.Scores {
			scores[criterion] = append(scores[criterion], score)
		}
		scores[OverallScoreKey] = append(scores[OverallScoreKey], eval.OverallScore)
	}
	return scores
}
