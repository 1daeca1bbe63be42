package similarity

import "strings"

// DefaultDistanceScores is indexed by ordinal distance; anything further than
// the last entry takes the last value.
var DefaultDistanceScores = []float64{1.0, 0.85, 0.55, 0.3, 0.1}

// OrdinalMatrix is a precomputed compatibility table over ordered categories.
// Adjacent categories score high even though the scale is not linear.
type OrdinalMatrix struct {
	levels []string
	index  map[string]int
	scores [][]float64
}

// NewOrdinalMatrix builds the table for levels (lowest first). aliases maps
// alternative spellings to a level; overrides replaces single cells (both
// orientations).
func NewOrdinalMatrix(levels []string, aliases map[string]string, overrides map[[2]string]float64) *OrdinalMatrix {
	m := &OrdinalMatrix{
		levels: make([]string, len(levels)),
		index:  make(map[string]int, len(levels)+len(aliases)),
		scores: make([][]float64, len(levels)),
	}
	for i, l := range levels {
		key := ordinalKey(l)
		m.levels[i] = key
		m.index[key] = i
	}
	for alias, target := range aliases {
		if i, ok := m.index[ordinalKey(target)]; ok {
			m.index[ordinalKey(alias)] = i
		}
	}
	for i := range levels {
		m.scores[i] = make([]float64, len(levels))
		for j := range levels {
			d := i - j
			if d < 0 {
				d = -d
			}
			if d >= len(DefaultDistanceScores) {
				d = len(DefaultDistanceScores) - 1
			}
			m.scores[i][j] = DefaultDistanceScores[d]
		}
	}
	for pair, v := range overrides {
		i, okA := m.index[ordinalKey(pair[0])]
		j, okB := m.index[ordinalKey(pair[1])]
		if okA && okB {
			m.scores[i][j] = clamp01(v)
			m.scores[j][i] = clamp01(v)
		}
	}
	return m
}

// Level resolves v (or one of its aliases) to its canonical level name.
func (m *OrdinalMatrix) Level(v string) (string, bool) {
	i, ok := m.index[ordinalKey(v)]
	if !ok {
		return "", false
	}
	return m.levels[i], true
}

// Score looks up the compatibility of a and b. Unknown categories report false.
func (m *OrdinalMatrix) Score(a, b string) (float64, bool) {
	i, okA := m.index[ordinalKey(a)]
	j, okB := m.index[ordinalKey(b)]
	if !okA || !okB {
		return 0, false
	}
	return m.scores[i][j], true
}

func (m *OrdinalMatrix) Levels() []string {
	return append([]string(nil), m.levels...)
}

func ordinalKey(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(Normalize(s), "_", "-"), " ", "-")
}

var SizeMatrix = NewOrdinalMatrix(
	[]string{"micro", "small", "medium", "large", "enterprise"},
	map[string]string{
		"solo":        "micro",
		"startup":     "small",
		"sme":         "medium",
		"mid-size":    "medium",
		"midsize":     "medium",
		"big":         "large",
		"corporate":   "enterprise",
		"corporation": "enterprise",
	},
	nil,
)

var StageMatrix = NewOrdinalMatrix(
	[]string{"idea", "pre-seed", "seed", "series-a", "series-b", "growth", "mature"},
	map[string]string{
		"preseed":     "pre-seed",
		"concept":     "idea",
		"seriesa":     "series-a",
		"seriesb":     "series-b",
		"series-c":    "growth",
		"series-d":    "growth",
		"scale-up":    "growth",
		"scaleup":     "growth",
		"ipo":         "mature",
		"public":      "mature",
		"established": "mature",
	},
	nil,
)
