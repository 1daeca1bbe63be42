// Package similarity holds the stateless comparison primitives used by the
// signal calculators, plus the cache that memoizes them.
package similarity

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds case, applies NFKC and collapses whitespace.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// Casers keep state, so a fresh one per call keeps this safe for concurrent use.
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(folded), " ")
}

// NormalizeSet returns the sorted, de-duplicated normalized values of list.
func NormalizeSet(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, item := range list {
		n := Normalize(item)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
