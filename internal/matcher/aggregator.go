package matcher

import (
	"math"

	"talentmatch/pkg/models"
)

// Aggregate folds per-component scores into a single weighted final score in
// [0, 1], rounded to three decimals. Components missing from scores count as
// zero; out-of-range component scores are clamped before weighting. The
// returned breakdown records the raw score, weight and weighted contribution
// of every weighted component.
func Aggregate(scores map[string]float64, weights map[string]float64) (float64, map[string]models.ScoreBreakdown) {
	breakdown := make(map[string]models.ScoreBreakdown, len(weights))

	totalScore := 0.0
	totalWeight := 0.0
	for component, weight := range weights {
		raw := clamp01(scores[component])
		totalScore += raw * weight
		totalWeight += weight

		breakdown[component] = models.ScoreBreakdown{
			RawScore:      raw,
			Weight:        weight,
			WeightedScore: round3(raw * weight),
		}
	}

	if totalWeight <= 0 {
		return 0.0, breakdown
	}

	return round3(totalScore / totalWeight), breakdown
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
