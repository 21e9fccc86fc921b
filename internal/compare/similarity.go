// Package compare implements the analytic dataset comparison: score
// aggregation, output similarity, performance and consistency metrics,
// threshold-rule insights, and the final recommendation.
package compare

import "strings"

// HighSimilarityThreshold counts an output pair as "high similarity"
const HighSimilarityThreshold = 0.8

// HighConsistencyThreshold separates stable pairs from significant variations
const HighConsistencyThreshold = 0.9

// TokenSetSimilarity returns the Jaccard similarity of the two texts'
// lowercase token sets, in [0, 1]. Word order and repetition do not count;
// only the vocabulary overlap does.
//
// Empty inputs follow fixed rules: two empty strings are identical (1.0),
// an empty string never matches a non-empty one (0.0), and two texts whose
// token sets are both empty (whitespace only) are identical (1.0).
func TokenSetSimilarity(text1, text2 string) float64 {
	if text1 == "" || text2 == "" {
		if text1 == text2 {
			return 1.0
		}
		return 0.0
	}

	set1 := tokenSet(text1)
	set2 := tokenSet(text2)

	union := len(set2)
	intersection := 0
	for tok := range set1 {
		if _, ok := set2[tok]; ok {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		set[tok] = struct{}{}
	}
	return set
}
