package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// LevenshteinSimilarity is 1 - distance/maxLen over the normalized inputs.
// Blank input on either side yields 0.
func LevenshteinSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	maxLen := utf8.RuneCountInString(na)
	if l := utf8.RuneCountInString(nb); l > maxLen {
		maxLen = l
	}
	dist := levenshtein.ComputeDistance(na, nb)
	return clamp01(1 - float64(dist)/float64(maxLen))
}
