package signals

import (
	"fmt"
	"math"

	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/similarity"
)

// Context boosts sit on top of an overlap that already exists: the base score
// comes from the list or ordinal primitive and the configured multiplier
// replaces a fixed decay. A boost only counts toward confidence when a
// configured rule matches the pair; otherwise it is neither applicable nor emitted.

type platformBoostCalc struct{}

func (platformBoostCalc) field() string           { return models.FieldPlatformBoost }
func (platformBoostCalc) kind() models.SignalKind { return models.KindContextBoost }

type platformHit struct {
	ratio      float64
	multiplier float64
	platform   string
}

// match finds the strongest rule on a shared platform.
func (platformBoostCalc) match(p pair) (platformHit, bool) {
	if len(p.rules.PlatformBoosts) == 0 || !models.HasItems(p.a.Platforms) || !models.HasItems(p.b.Platforms) {
		return platformHit{}, false
	}
	ratio, shared := similarity.Jaccard(p.a.Platforms, p.b.Platforms)
	hit, found := platformHit{ratio: ratio}, false
	for _, platform := range shared {
		if v, ok := p.rules.PlatformBoost(platform); ok && (!found || v > hit.multiplier) {
			hit.multiplier, hit.platform, found = v, platform, true
		}
	}
	return hit, found
}

func (c platformBoostCalc) applicable(p pair) bool {
	_, ok := c.match(p)
	return ok
}

func (c platformBoostCalc) calculate(_ *Engine, p pair) (models.Signal, bool) {
	hit, ok := c.match(p)
	if !ok {
		return models.Signal{}, false
	}
	return models.Signal{
		Score:       boosted(hit.ratio, hit.multiplier),
		ValueA:      p.a.Platforms,
		ValueB:      p.b.Platforms,
		Explanation: fmt.Sprintf("platform boost x%.2f on shared platform %s", hit.multiplier, hit.platform),
	}, true
}

type marketSynergyCalc struct{}

func (marketSynergyCalc) field() string           { return models.FieldMarketSynergy }
func (marketSynergyCalc) kind() models.SignalKind { return models.KindContextBoost }

type marketHit struct {
	ratio      float64
	multiplier float64
	from, to   string
}

// match requires a shared market and a synergy rule between any two markets.
func (marketSynergyCalc) match(p pair) (marketHit, bool) {
	if len(p.rules.MarketSynergies) == 0 || !models.HasItems(p.a.Markets) || !models.HasItems(p.b.Markets) {
		return marketHit{}, false
	}
	setA, setB := similarity.NormalizeSet(p.a.Markets), similarity.NormalizeSet(p.b.Markets)
	ratio, shared := similarity.Jaccard(setA, setB)
	if len(shared) == 0 {
		return marketHit{}, false
	}

	hit, found := marketHit{ratio: ratio}, false
	for _, ma := range setA {
		for _, mb := range setB {
			if v, ok := p.rules.MarketSynergy(ma, mb); ok && (!found || v > hit.multiplier) {
				hit.multiplier, hit.from, hit.to, found = v, ma, mb, true
			}
		}
	}
	return hit, found
}

func (c marketSynergyCalc) applicable(p pair) bool {
	_, ok := c.match(p)
	return ok
}

func (c marketSynergyCalc) calculate(_ *Engine, p pair) (models.Signal, bool) {
	hit, ok := c.match(p)
	if !ok {
		return models.Signal{}, false
	}
	return models.Signal{
		Score:       boosted(hit.ratio, hit.multiplier),
		ValueA:      p.a.Markets,
		ValueB:      p.b.Markets,
		Explanation: fmt.Sprintf("market synergy x%.2f between %s and %s", hit.multiplier, hit.from, hit.to),
	}, true
}

type stageCompatibilityCalc struct{}

func (stageCompatibilityCalc) field() string           { return models.FieldStageCompatibility }
func (stageCompatibilityCalc) kind() models.SignalKind { return models.KindContextBoost }

type stageHit struct {
	multiplier float64
	la, lb     string
}

// match looks the rule up by canonical level first, then by the raw values.
func (stageCompatibilityCalc) match(p pair) (stageHit, bool) {
	if len(p.rules.StageCompatibility) == 0 {
		return stageHit{}, false
	}
	la, okA := similarity.StageMatrix.Level(p.a.Stage)
	lb, okB := similarity.StageMatrix.Level(p.b.Stage)
	if !okA || !okB {
		return stageHit{}, false
	}
	mult, ok := p.rules.StageCompatibilityFor(la, lb)
	if !ok {
		mult, ok = p.rules.StageCompatibilityFor(similarity.Normalize(p.a.Stage), similarity.Normalize(p.b.Stage))
	}
	if !ok {
		return stageHit{}, false
	}
	return stageHit{multiplier: mult, la: la, lb: lb}, true
}

func (c stageCompatibilityCalc) applicable(p pair) bool {
	_, ok := c.match(p)
	return ok
}

func (c stageCompatibilityCalc) calculate(_ *Engine, p pair) (models.Signal, bool) {
	hit, ok := c.match(p)
	if !ok {
		return models.Signal{}, false
	}
	base, _ := similarity.StageMatrix.Score(p.a.Stage, p.b.Stage)
	return models.Signal{
		Score:       boosted(base, hit.multiplier),
		ValueA:      p.a.Stage,
		ValueB:      p.b.Stage,
		Explanation: fmt.Sprintf("stage compatibility x%.2f for %s and %s", hit.multiplier, hit.la, hit.lb),
	}, true
}

func boosted(ratio, multiplier float64) float64 {
	if multiplier <= 0 || ratio <= 0 {
		return 0
	}
	return math.Min(100, 100*ratio*multiplier)
}
