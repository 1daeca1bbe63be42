// Package ranking aggregates engine signals into a single score and orders
// candidate profiles for a source profile.
package ranking

import (
	"math"

	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/signals"
)

type Score struct {
	Overall    float64 `json:"overallScore"`
	Confidence float64 `json:"confidence"`
}

// Aggregate computes the weighted mean of the emitted signals and the share of
// applicable fields that produced one.
func Aggregate(eval signals.Evaluation) Score {
	var contribution, weight float64
	for _, s := range eval.Signals {
		contribution += s.Contribution
		weight += s.Weight
	}

	var out Score
	if weight > 0 {
		out.Overall = round2(math.Min(100, contribution/weight))
	}
	if eval.ApplicableFields > 0 {
		out.Confidence = round2(float64(len(eval.Signals)) / float64(eval.ApplicableFields))
	}
	return out
}

// Passes reports whether s clears both minimums. Zero thresholds always pass.
func Passes(s Score, t models.Thresholds) bool {
	return s.Overall >= t.MinimumOverallScore && s.Confidence >= t.MinimumConfidence
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
