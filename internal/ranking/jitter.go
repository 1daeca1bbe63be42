package ranking

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// JitterPolicy adds a bounded, seeded perturbation to the rank score so that
// near-ties rotate between runs with different seeds. The offset depends only
// on the seed and the pair, never on scheduling, so a fixed seed always yields
// the same order. Overall scores and signals are never touched.
type JitterPolicy struct {
	Enabled   bool    `json:"enabled"`
	Seed      int64   `json:"seed"`
	Amplitude float64 `json:"amplitude"`
}

// Offset returns a value in [-Amplitude, Amplitude], or 0 when disabled.
func (j JitterPolicy) Offset(sourceID, candidateID string) float64 {
	if !j.Enabled || j.Amplitude <= 0 {
		return 0
	}
	h := xxhash.New()
	_, _ = h.WriteString(strconv.FormatInt(j.Seed, 10))
	_, _ = h.WriteString("\x1f" + sourceID + "\x1f" + candidateID)
	unit := float64(h.Sum64()>>11) / float64(1<<53) // [0,1)
	return (unit*2 - 1) * j.Amplitude
}

// Apply returns the rank score for overall.
func (j JitterPolicy) Apply(overall float64, sourceID, candidateID string) float64 {
	return round2(overall + j.Offset(sourceID, candidateID))
}
