// internal/workers/matching/rank-candidates/models.go
package rankcandidates

import (
	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/workers/matching"
)

type Input struct {
	SourceProfile   *models.Profile   `json:"sourceProfile,omitempty"`
	SourceProfileID string            `json:"sourceProfileId,omitempty" validate:"required_without=SourceProfile"`
	Candidates      []*models.Profile `json:"candidates,omitempty"`
	CandidateIDs    []string          `json:"candidateIds,omitempty"`
	Limit           int               `json:"limit,omitempty" validate:"min=0"`

	matching.WeightsSelection
}

type Output struct {
	RunID               string         `json:"runId"`
	ProfileID           string         `json:"profileId"`
	WeightsProfileID    string         `json:"weightsProfileId"`
	Matches             []models.Match `json:"matches"`
	CandidateCount      int            `json:"candidateCount"`
	MatchCount          int            `json:"matchCount"`
	MissingCandidateIDs []string       `json:"missingCandidateIds,omitempty"`
	DurationMs          int64          `json:"durationMs"`
}
