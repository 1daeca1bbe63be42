package similarity

// DefaultTokenOverlap is the token Jaccard at which a need and a capability
// count as related even when their normalized strings differ.
const DefaultTokenOverlap = 0.5

// Complement is the outcome of directional need/capability matching.
type Complement struct {
	Ratio      float64
	SatisfiedA []string // A's needs met by B's capabilities
	SatisfiedB []string // B's needs met by A's capabilities
	TotalNeeds int
}

// Complementarity runs a maximum bipartite matching from each side's needs to
// the other side's capabilities. Every capability serves at most one need per
// direction. The ratio is the matched need count over all needs on both sides,
// so needs fully covered in both directions score 1.
func Complementarity(needsA, capsA, needsB, capsB []string, minOverlap float64) Complement {
	na, nb := NormalizeSet(needsA), NormalizeSet(needsB)
	out := Complement{TotalNeeds: len(na) + len(nb)}
	if out.TotalNeeds == 0 {
		return out
	}
	out.SatisfiedA = maxMatching(na, NormalizeSet(capsB), minOverlap)
	out.SatisfiedB = maxMatching(nb, NormalizeSet(capsA), minOverlap)
	out.Ratio = clamp01(float64(len(out.SatisfiedA)+len(out.SatisfiedB)) / float64(out.TotalNeeds))
	return out
}

// maxMatching returns the needs covered by a maximum matching, in input order.
func maxMatching(needs, caps []string, minOverlap float64) []string {
	if len(needs) == 0 || len(caps) == 0 {
		return nil
	}

	capTokens := make([][]string, len(caps))
	for j, c := range caps {
		capTokens[j] = NormalizeSet(Tokenize(c))
	}
	adj := make([][]int, len(needs))
	for i, n := range needs {
		nt := NormalizeSet(Tokenize(n))
		for j, c := range caps {
			if related(n, c, nt, capTokens[j], minOverlap) {
				adj[i] = append(adj[i], j)
			}
		}
	}

	owner := make([]int, len(caps))
	for j := range owner {
		owner[j] = -1
	}
	var augment func(i int, seen []bool) bool
	augment = func(i int, seen []bool) bool {
		for _, j := range adj[i] {
			if seen[j] {
				continue
			}
			seen[j] = true
			if owner[j] < 0 || augment(owner[j], seen) {
				owner[j] = i
				return true
			}
		}
		return false
	}

	matched := make([]bool, len(needs))
	for i := range needs {
		if len(adj[i]) == 0 {
			continue
		}
		augment(i, make([]bool, len(caps)))
	}
	for _, i := range owner {
		if i >= 0 {
			matched[i] = true
		}
	}

	var out []string
	for i, n := range needs {
		if matched[i] {
			out = append(out, n)
		}
	}
	return out
}

func related(need, capability string, needTokens, capTokens []string, minOverlap float64) bool {
	if need == capability {
		return true
	}
	if minOverlap <= 0 || len(needTokens) == 0 || len(capTokens) == 0 {
		return false
	}
	ratio, _ := jaccardSorted(needTokens, capTokens)
	return ratio >= minOverlap
}
