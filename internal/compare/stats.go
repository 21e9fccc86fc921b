package compare

import (
	"math"
	"sort"

	"github.com/evalgate/evalgate/pkg/models"
)

// SignificanceMethod labels the two-sample estimate in persisted results.
// It is a fixed-form approximation, not a t-distribution lookup.
const SignificanceMethod = "heuristic"

// Mean returns the arithmetic mean, or 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStd returns the sample standard deviation (n-1 divisor), or 0 when
// fewer than two values exist.
func SampleStd(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// P95 returns the 95th-percentile value by sorted-index lookup. No
// interpolation, so it is a coarse estimator on small sets.
func P95(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Significance estimates whether two score samples differ, using a pooled
// standard error and a linear p-value approximation. Too-small samples and
// zero-variance pairs report not significant with no p-value.
func Significance(scores1, scores2 []float64) models.SignificanceEstimate {
	est := models.SignificanceEstimate{Method: SignificanceMethod}
	if len(scores1) < 2 || len(scores2) < 2 {
		return est
	}

	mean1, mean2 := Mean(scores1), Mean(scores2)
	std1, std2 := SampleStd(scores1), SampleStd(scores2)
	n1, n2 := float64(len(scores1)), float64(len(scores2))

	se := math.Sqrt(std1*std1/n1 + std2*std2/n2)
	if se == 0 {
		return est
	}

	tStat := (mean2 - mean1) / se
	pValue := 2 * (1 - math.Min(0.99, math.Abs(tStat)/4))

	est.Significant = pValue < 0.05
	est.PValue = &pValue
	est.TStatistic = &tStat
	return est
}
