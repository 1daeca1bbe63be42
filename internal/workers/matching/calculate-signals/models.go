// internal/workers/matching/calculate-signals/models.go
package calculatesignals

import (
	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/workers/matching"
)

type Input struct {
	ProfileA   *models.Profile `json:"profileA,omitempty"`
	ProfileB   *models.Profile `json:"profileB,omitempty"`
	ProfileAID string          `json:"profileAId,omitempty" validate:"required_without=ProfileA"`
	ProfileBID string          `json:"profileBId,omitempty" validate:"required_without=ProfileB"`

	matching.WeightsSelection
}

type Output struct {
	ProfileAID       string          `json:"profileAId"`
	ProfileBID       string          `json:"profileBId"`
	WeightsProfileID string          `json:"weightsProfileId"`
	Signals          []models.Signal `json:"signals"`
	OverallScore     float64         `json:"overallScore"`
	Confidence       float64         `json:"confidence"`
	SignalCount      int             `json:"signalCount"`
	ApplicableFields int             `json:"applicableFields"`
	PassesThresholds bool            `json:"passesThresholds"`
}
