// internal/models/signal.go
package models

// SignalKind is the closed set of comparison algorithms a Signal can come from.
type SignalKind string

const (
	KindDateProximity     SignalKind = "date_proximity"
	KindListJaccard       SignalKind = "list_jaccard"
	KindBipartiteMatching SignalKind = "bipartite_matching"
	KindNumericZExp       SignalKind = "numeric_zexp"
	KindStringLevenshtein SignalKind = "string_levenshtein"
	KindTextTFIDF         SignalKind = "text_tfidf"
	KindContextBoost      SignalKind = "context_boost"
)

// AllSignalKinds returns every kind in a stable order.
func AllSignalKinds() []SignalKind {
	return []SignalKind{
		KindDateProximity,
		KindListJaccard,
		KindBipartiteMatching,
		KindNumericZExp,
		KindStringLevenshtein,
		KindTextTFIDF,
		KindContextBoost,
	}
}

func (k SignalKind) Valid() bool {
	switch k {
	case KindDateProximity, KindListJaccard, KindBipartiteMatching, KindNumericZExp,
		KindStringLevenshtein, KindTextTFIDF, KindContextBoost:
		return true
	}
	return false
}

// Field names double as keys in WeightsProfile.Weights.
const (
	FieldFoundedYear        = "foundedYear"
	FieldLastFundingDate    = "lastFundingDate"
	FieldIndustry           = "industry"
	FieldPlatforms          = "platforms"
	FieldTechnologies       = "technologies"
	FieldMarkets            = "markets"
	FieldCapabilitiesNeeds  = "capabilities_needs"
	FieldEmployees          = "employees"
	FieldRevenue            = "revenue"
	FieldLastFundingAmount  = "lastFundingAmount"
	FieldSize               = "size"
	FieldStage              = "stage"
	FieldCompanyName        = "company_name"
	FieldLocation           = "location_proximity"
	FieldPitch              = "pitch"
	FieldDescription        = "description"
	FieldLookingFor         = "lookingFor"
	FieldPlatformBoost      = "platform_boost"
	FieldMarketSynergy      = "market_synergy"
	FieldStageCompatibility = "stage_compatibility"
)

// Signal is one scored comparison between a field pair of two profiles.
type Signal struct {
	Type         SignalKind  `json:"type"`
	Field        string      `json:"field"`
	Score        float64     `json:"score"`
	Weight       float64     `json:"weight"`
	Contribution float64     `json:"contribution"`
	ValueA       interface{} `json:"valueA,omitempty"`
	ValueB       interface{} `json:"valueB,omitempty"`
	Explanation  string      `json:"explanation"`
}

// Match is the ranked outcome for one candidate.
type Match struct {
	ProfileID     string   `json:"profileId"`
	CandidateID   string   `json:"candidateId"`
	CandidateName string   `json:"candidateName,omitempty"`
	OverallScore  float64  `json:"overallScore"`
	Confidence    float64  `json:"confidence"`
	RankScore     float64  `json:"rankScore"`
	Signals       []Signal `json:"signals"`
}

// AllFields lists every weightable field in calculator order.
func AllFields() []string {
	return []string{
		FieldFoundedYear, FieldLastFundingDate,
		FieldIndustry, FieldPlatforms, FieldTechnologies, FieldMarkets,
		FieldCapabilitiesNeeds,
		FieldEmployees, FieldRevenue, FieldLastFundingAmount, FieldSize, FieldStage,
		FieldCompanyName, FieldLocation,
		FieldPitch, FieldDescription, FieldLookingFor,
		FieldPlatformBoost, FieldMarketSynergy, FieldStageCompatibility,
	}
}

// IsField reports whether name is a known weights key.
func IsField(name string) bool {
	for _, f := range AllFields() {
		if f == name {
			return true
		}
	}
	return false
}
