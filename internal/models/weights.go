// internal/models/weights.go
package models

import "matchmaking-workers/internal/similarity"

// DefaultPersona names the built-in weights profile.
const DefaultPersona = "default"

type WeightsProfile struct {
	ID           string             `json:"id" yaml:"id"`
	Name         string             `json:"name" yaml:"name"`
	Persona      string             `json:"persona" yaml:"persona"`
	Weights      map[string]float64 `json:"weights" yaml:"weights"`
	Thresholds   Thresholds         `json:"thresholds" yaml:"thresholds"`
	ContextRules ContextRules       `json:"contextRules" yaml:"contextRules"`
}

type Thresholds struct {
	MinimumOverallScore float64 `json:"minimumOverallScore" yaml:"minimumOverallScore"`
	MinimumConfidence   float64 `json:"minimumConfidence" yaml:"minimumConfidence"`
	MaximumResults      int     `json:"maximumResults" yaml:"maximumResults"`
}

// ContextRules are the lookup tables behind context boost signals. Keys are
// compared after the same folding profile values get (NFKC, case fold); a
// missing key means "no boost" (1.0).
type ContextRules struct {
	PlatformBoosts     map[string]float64            `json:"platformBoosts,omitempty" yaml:"platformBoosts,omitempty"`
	MarketSynergies    map[string]map[string]float64 `json:"marketSynergies,omitempty" yaml:"marketSynergies,omitempty"`
	StageCompatibility map[string]map[string]float64 `json:"stageCompatibility,omitempty" yaml:"stageCompatibility,omitempty"`
}

// Weight returns the configured weight for field. Missing or negative entries
// count as 0 so the signal stays explanatory without moving the aggregate.
func (w *WeightsProfile) Weight(field string) float64 {
	if w == nil || w.Weights == nil {
		return 0
	}
	v, ok := w.Weights[field]
	if !ok || v < 0 {
		return 0
	}
	return v
}

func (w *WeightsProfile) Rules() ContextRules {
	if w == nil {
		return ContextRules{}
	}
	return w.ContextRules
}

func (r ContextRules) Empty() bool {
	return len(r.PlatformBoosts) == 0 && len(r.MarketSynergies) == 0 && len(r.StageCompatibility) == 0
}

// PlatformBoost returns the multiplier for platform and whether a rule exists.
func (r ContextRules) PlatformBoost(platform string) (float64, bool) {
	return lookup(r.PlatformBoosts, platform)
}

// MarketSynergy checks both [a][b] and [b][a].
func (r ContextRules) MarketSynergy(a, b string) (float64, bool) {
	return lookupPair(r.MarketSynergies, a, b)
}

// StageCompatibilityFor checks both [a][b] and [b][a].
func (r ContextRules) StageCompatibilityFor(a, b string) (float64, bool) {
	return lookupPair(r.StageCompatibility, a, b)
}

func lookup(table map[string]float64, key string) (float64, bool) {
	if len(table) == 0 {
		return 1.0, false
	}
	if v, ok := table[key]; ok {
		return v, true
	}
	want := canonicalKey(key)
	for k, v := range table {
		if canonicalKey(k) == want {
			return v, true
		}
	}
	return 1.0, false
}

func lookupPair(table map[string]map[string]float64, a, b string) (float64, bool) {
	if len(table) == 0 {
		return 1.0, false
	}
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		inner, ok := findInner(table, pair[0])
		if !ok {
			continue
		}
		if v, ok := lookup(inner, pair[1]); ok {
			return v, true
		}
	}
	return 1.0, false
}

func findInner(table map[string]map[string]float64, key string) (map[string]float64, bool) {
	if inner, ok := table[key]; ok {
		return inner, true
	}
	want := canonicalKey(key)
	for k, inner := range table {
		if canonicalKey(k) == want {
			return inner, true
		}
	}
	return nil, false
}

func canonicalKey(s string) string {
	return similarity.Normalize(s)
}

// DefaultWeightsProfile is used when no persona-specific profile is configured.
func DefaultWeightsProfile() *WeightsProfile {
	return &WeightsProfile{
		ID:      "default",
		Name:    "Default networking weights",
		Persona: DefaultPersona,
		Weights: map[string]float64{
			FieldIndustry:           80,
			FieldPlatforms:          60,
			FieldTechnologies:       50,
			FieldMarkets:            60,
			FieldCapabilitiesNeeds:  100,
			FieldFoundedYear:        20,
			FieldLastFundingDate:    15,
			FieldEmployees:          30,
			FieldRevenue:            30,
			FieldLastFundingAmount:  20,
			FieldSize:               40,
			FieldStage:              50,
			FieldCompanyName:        5,
			FieldLocation:           40,
			FieldPitch:              50,
			FieldDescription:        40,
			FieldLookingFor:         70,
			FieldPlatformBoost:      30,
			FieldMarketSynergy:      30,
			FieldStageCompatibility: 20,
		},
		Thresholds: Thresholds{
			MinimumOverallScore: 30,
			MinimumConfidence:   0.2,
			MaximumResults:      20,
		},
	}
}
