// internal/workers/matching/query-candidates/models.go
package querycandidates

import "matchmaking-workers/internal/models"

type Input struct {
	SourceProfile   *models.Profile `json:"sourceProfile,omitempty"`
	SourceProfileID string          `json:"sourceProfileId,omitempty" validate:"required_without=SourceProfile"`
	ExcludeIDs      []string        `json:"excludeIds,omitempty"`
	Types           []string        `json:"types,omitempty"`
	Size            int             `json:"size,omitempty" validate:"min=0"`
	IndexName       string          `json:"indexName,omitempty"`
}

// Output feeds rank-candidates directly: Candidates maps onto its
// "candidates" variable.
type Output struct {
	Candidates   []*models.Profile `json:"candidates"`
	CandidateIDs []string          `json:"candidateIds"`
	TotalHits    int64             `json:"totalHits"`
	Took         int64             `json:"took"` // milliseconds
}
