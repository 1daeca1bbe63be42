package signals

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/similarity"
)

const (
	foundedYearDecay = 5.0 // years
	fundingDateDecay = 1.0 // years
	magnitudeDecay   = 1.0 // orders of magnitude
	daysPerYear      = 365.25
	maxSharedListed  = 5
)

type pair struct {
	a, b          *models.Profile
	rules         models.ContextRules
	minTextLength int
}

// calculator emits at most one signal for a profile pair. applicable reports
// whether both sides carry usable data for the field; it feeds confidence.
type calculator interface {
	field() string
	kind() models.SignalKind
	applicable(p pair) bool
	calculate(e *Engine, p pair) (models.Signal, bool)
}

func defaultCalculators() []calculator {
	return []calculator{
		dateCalc{name: models.FieldFoundedYear, k: foundedYearDecay, value: foundedYear, explain: explainFounded},
		dateCalc{name: models.FieldLastFundingDate, k: fundingDateDecay, value: fundingYears, explain: explainFunding},

		listCalc{name: models.FieldIndustry, values: func(p *models.Profile) []string { return p.Industry }},
		listCalc{name: models.FieldPlatforms, values: func(p *models.Profile) []string { return p.Platforms }},
		listCalc{name: models.FieldTechnologies, values: func(p *models.Profile) []string { return p.Technologies }},
		listCalc{name: models.FieldMarkets, values: func(p *models.Profile) []string { return p.Markets }},

		bipartiteCalc{},

		magnitudeCalc{name: models.FieldEmployees, value: func(p *models.Profile) (float64, bool) {
			if p.Employees == nil || *p.Employees < 0 {
				return 0, false
			}
			return float64(*p.Employees), true
		}},
		magnitudeCalc{name: models.FieldRevenue, value: floatField(func(p *models.Profile) *float64 { return p.Revenue })},
		magnitudeCalc{name: models.FieldLastFundingAmount, value: floatField(func(p *models.Profile) *float64 { return p.LastFundingAmount })},

		ordinalCalc{name: models.FieldSize, matrix: similarity.SizeMatrix, value: func(p *models.Profile) string { return p.Size }},
		ordinalCalc{name: models.FieldStage, matrix: similarity.StageMatrix, value: func(p *models.Profile) string { return p.Stage }},

		stringCalc{name: models.FieldCompanyName, value: func(p *models.Profile) string { return p.Name }},
		stringCalc{name: models.FieldLocation, value: func(p *models.Profile) string { return p.Location() }},

		textCalc{name: models.FieldPitch, value: func(p *models.Profile) string { return p.Pitch }},
		textCalc{name: models.FieldDescription, value: func(p *models.Profile) string { return p.Description }},
		textCalc{name: models.FieldLookingFor, value: func(p *models.Profile) string { return p.LookingFor }},

		platformBoostCalc{},
		marketSynergyCalc{},
		stageCompatibilityCalc{},
	}
}

// ==========================
// Date proximity
// ==========================

type dateCalc struct {
	name    string
	k       float64
	value   func(*models.Profile) (years float64, display interface{}, ok bool)
	explain func(a, b interface{}, years float64) string
}

func (c dateCalc) field() string           { return c.name }
func (c dateCalc) kind() models.SignalKind { return models.KindDateProximity }

func (c dateCalc) applicable(p pair) bool {
	_, _, okA := c.value(p.a)
	_, _, okB := c.value(p.b)
	return okA && okB
}

func (c dateCalc) calculate(_ *Engine, p pair) (models.Signal, bool) {
	ya, da, okA := c.value(p.a)
	yb, db, okB := c.value(p.b)
	if !okA || !okB {
		return models.Signal{}, false
	}
	distance := math.Abs(ya - yb)
	return models.Signal{
		Score:       100 * similarity.ExpDecay(distance, c.k),
		ValueA:      da,
		ValueB:      db,
		Explanation: c.explain(da, db, distance),
	}, true
}

func foundedYear(p *models.Profile) (float64, interface{}, bool) {
	if p.FoundedYear == nil || *p.FoundedYear <= 0 {
		return 0, nil, false
	}
	return float64(*p.FoundedYear), *p.FoundedYear, true
}

func fundingYears(p *models.Profile) (float64, interface{}, bool) {
	if p.LastFundingDate == nil || p.LastFundingDate.IsZero() {
		return 0, nil, false
	}
	t := p.LastFundingDate.UTC()
	return float64(t.Unix()) / (daysPerYear * 24 * 3600), t.Format(time.DateOnly), true
}

func explainFounded(a, b interface{}, years float64) string {
	if years == 0 {
		return fmt.Sprintf("perfect match: both founded in %v", a)
	}
	return fmt.Sprintf("founded %v vs %v (%.0f years apart)", a, b, years)
}

func explainFunding(a, b interface{}, years float64) string {
	days := math.Round(years * daysPerYear)
	if days == 0 {
		return fmt.Sprintf("perfect match: both last funded on %v", a)
	}
	return fmt.Sprintf("last funded %v vs %v (%.0f days apart)", a, b, days)
}

// ==========================
// List Jaccard
// ==========================

type listCalc struct {
	name   string
	values func(*models.Profile) []string
}

func (c listCalc) field() string           { return c.name }
func (c listCalc) kind() models.SignalKind { return models.KindListJaccard }

// Empty lists on either side are skipped outright rather than scored 0.
func (c listCalc) applicable(p pair) bool {
	return models.HasItems(c.values(p.a)) && models.HasItems(c.values(p.b))
}

func (c listCalc) calculate(_ *Engine, p pair) (models.Signal, bool) {
	if !c.applicable(p) {
		return models.Signal{}, false
	}
	setA, setB := similarity.NormalizeSet(c.values(p.a)), similarity.NormalizeSet(c.values(p.b))
	ratio, shared := similarity.Jaccard(setA, setB)
	if len(shared) == 0 {
		return models.Signal{}, false
	}
	union := len(setA) + len(setB) - len(shared)
	return models.Signal{
		Score:  100 * ratio,
		ValueA: c.values(p.a),
		ValueB: c.values(p.b),
		Explanation: fmt.Sprintf("shared %s: %s (%d of %d)",
			c.name, listPreview(shared), len(shared), union),
	}, true
}

// ==========================
// Capability / need matching
// ==========================

type bipartiteCalc struct{}

func (bipartiteCalc) field() string           { return models.FieldCapabilitiesNeeds }
func (bipartiteCalc) kind() models.SignalKind { return models.KindBipartiteMatching }

func (bipartiteCalc) applicable(p pair) bool {
	return (models.HasItems(p.a.Needs) && models.HasItems(p.b.Capabilities)) ||
		(models.HasItems(p.b.Needs) && models.HasItems(p.a.Capabilities))
}

func (c bipartiteCalc) calculate(e *Engine, p pair) (models.Signal, bool) {
	if !c.applicable(p) {
		return models.Signal{}, false
	}
	comp := similarity.Complementarity(p.a.Needs, p.a.Capabilities, p.b.Needs, p.b.Capabilities, e.tokenOverlap)
	if comp.Ratio == 0 {
		return models.Signal{}, false
	}

	var parts []string
	if len(comp.SatisfiedA) > 0 {
		parts = append(parts, fmt.Sprintf("A needs %s covered by B", listPreview(comp.SatisfiedA)))
	}
	if len(comp.SatisfiedB) > 0 {
		parts = append(parts, fmt.Sprintf("B needs %s covered by A", listPreview(comp.SatisfiedB)))
	}
	return models.Signal{
		Score:       100 * comp.Ratio,
		ValueA:      map[string][]string{"needs": p.a.Needs, "capabilities": p.a.Capabilities},
		ValueB:      map[string][]string{"needs": p.b.Needs, "capabilities": p.b.Capabilities},
		Explanation: fmt.Sprintf("%s (%d of %d needs met)", strings.Join(parts, "; "), len(comp.SatisfiedA)+len(comp.SatisfiedB), comp.TotalNeeds),
	}, true
}

// ==========================
// Numeric magnitudes
// ==========================

type magnitudeCalc struct {
	name  string
	value func(*models.Profile) (float64, bool)
}

func (c magnitudeCalc) field() string           { return c.name }
func (c magnitudeCalc) kind() models.SignalKind { return models.KindNumericZExp }

func (c magnitudeCalc) applicable(p pair) bool {
	_, okA := c.value(p.a)
	_, okB := c.value(p.b)
	return okA && okB
}

func (c magnitudeCalc) calculate(_ *Engine, p pair) (models.Signal, bool) {
	va, okA := c.value(p.a)
	vb, okB := c.value(p.b)
	if !okA || !okB {
		return models.Signal{}, false
	}
	d := similarity.LogDistance(va, vb)
	explanation := fmt.Sprintf("%s %s vs %s", c.name, formatAmount(va), formatAmount(vb))
	if d == 0 {
		explanation = fmt.Sprintf("perfect match: %s %s on both sides", c.name, formatAmount(va))
	} else {
		explanation += fmt.Sprintf(" (%.1fx apart)", math.Pow(10, d))
	}
	return models.Signal{
		Score:       100 * similarity.ExpDecay(d, magnitudeDecay),
		ValueA:      va,
		ValueB:      vb,
		Explanation: explanation,
	}, true
}

func floatField(get func(*models.Profile) *float64) func(*models.Profile) (float64, bool) {
	return func(p *models.Profile) (float64, bool) {
		v := get(p)
		if v == nil || *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return 0, false
		}
		return *v, true
	}
}

// ==========================
// Ordinal categories
// ==========================

type ordinalCalc struct {
	name   string
	matrix *similarity.OrdinalMatrix
	value  func(*models.Profile) string
}

func (c ordinalCalc) field() string           { return c.name }
func (c ordinalCalc) kind() models.SignalKind { return models.KindNumericZExp }

func (c ordinalCalc) applicable(p pair) bool {
	_, okA := c.matrix.Level(c.value(p.a))
	_, okB := c.matrix.Level(c.value(p.b))
	return okA && okB
}

func (c ordinalCalc) calculate(_ *Engine, p pair) (models.Signal, bool) {
	score, ok := c.matrix.Score(c.value(p.a), c.value(p.b))
	if !ok {
		return models.Signal{}, false
	}
	la, _ := c.matrix.Level(c.value(p.a))
	lb, _ := c.matrix.Level(c.value(p.b))
	explanation := fmt.Sprintf("%s %s vs %s", c.name, la, lb)
	if la == lb {
		explanation = fmt.Sprintf("perfect match: both %s %s", c.name, la)
	}
	return models.Signal{
		Score:       100 * score,
		ValueA:      c.value(p.a),
		ValueB:      c.value(p.b),
		Explanation: explanation,
	}, true
}

// ==========================
// Edit distance
// ==========================

type stringCalc struct {
	name  string
	value func(*models.Profile) string
}

func (c stringCalc) field() string           { return c.name }
func (c stringCalc) kind() models.SignalKind { return models.KindStringLevenshtein }

func (c stringCalc) applicable(p pair) bool {
	return models.HasText(c.value(p.a)) && models.HasText(c.value(p.b))
}

func (c stringCalc) calculate(e *Engine, p pair) (models.Signal, bool) {
	if !c.applicable(p) {
		return models.Signal{}, false
	}
	va, vb := c.value(p.a), c.value(p.b)
	na, nb := similarity.Normalize(va), similarity.Normalize(vb)
	ratio := e.cache.SymmetricScore("levenshtein", na, nb, func() float64 {
		return similarity.LevenshteinSimilarity(na, nb)
	})
	explanation := fmt.Sprintf("%s %q vs %q are %.0f%% similar", c.name, va, vb, 100*ratio)
	if na == nb {
		explanation = fmt.Sprintf("perfect match: identical %s %q", c.name, va)
	}
	return models.Signal{
		Score:       100 * ratio,
		ValueA:      va,
		ValueB:      vb,
		Explanation: explanation,
	}, true
}

// ==========================
// Free text
// ==========================

type textCalc struct {
	name  string
	value func(*models.Profile) string
}

func (c textCalc) field() string           { return c.name }
func (c textCalc) kind() models.SignalKind { return models.KindTextTFIDF }

// Text below the length threshold is not comparable and is treated like absent text.
func (c textCalc) applicable(p pair) bool {
	return longEnough(c.value(p.a), p.minTextLength) && longEnough(c.value(p.b), p.minTextLength)
}

func (c textCalc) calculate(e *Engine, p pair) (models.Signal, bool) {
	if !c.applicable(p) {
		return models.Signal{}, false
	}
	va, vb := e.vector(c.value(p.a)), e.vector(c.value(p.b))
	ratio := similarity.Cosine(va, vb)
	if ratio == 0 {
		return models.Signal{}, false
	}
	shared := similarity.Intersect(va.Terms, vb.Terms)
	return models.Signal{
		Score:       100 * ratio,
		ValueA:      c.value(p.a),
		ValueB:      c.value(p.b),
		Explanation: fmt.Sprintf("%s texts share terms: %s", c.name, listPreview(shared)),
	}, true
}

func longEnough(text string, min int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= min
}

// ==========================
// Formatting helpers
// ==========================

func listPreview(items []string) string {
	if len(items) <= maxSharedListed {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:maxSharedListed], ", ") + fmt.Sprintf(" and %d more", len(items)-maxSharedListed)
}

func formatAmount(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e4:
		return fmt.Sprintf("%.0fk", v/1e3)
	}
	return fmt.Sprintf("%.0f", v)
}
