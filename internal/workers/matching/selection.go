// Package matching holds what the matching workers share: profile and
// weights resolution from job variables, and job metrics.
package matching

import (
	"context"
	"errors"
	"time"

	commonerrors "matchmaking-workers/internal/common/errors"
	"matchmaking-workers/internal/common/metrics"
	"matchmaking-workers/internal/common/observability"
	"matchmaking-workers/internal/models"
	"matchmaking-workers/pkg/weights"
)

// ProfileGetter is satisfied by store.ProfileStore.
type ProfileGetter interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	GetMany(ctx context.Context, ids []string) ([]*models.Profile, []string, error)
}

// WeightsResolver is satisfied by store.WeightsStore.
type WeightsResolver interface {
	Resolve(ctx context.Context, id, persona string) (*models.WeightsProfile, error)
}

// WeightsSelection is embedded in worker inputs. An inline profile wins over
// an id, which wins over a persona.
type WeightsSelection struct {
	WeightsProfileID string                 `json:"weightsProfileId,omitempty"`
	Persona          string                 `json:"persona,omitempty" validate:"omitempty,persona"`
	WeightsProfile   *models.WeightsProfile `json:"weightsProfile,omitempty"`
}

func (s WeightsSelection) Resolve(ctx context.Context, r WeightsResolver) (*models.WeightsProfile, error) {
	if s.WeightsProfile != nil {
		if err := weights.ValidateProfile(s.WeightsProfile); err != nil {
			return nil, commonerrors.NewWeightsInvalidError(err.Error())
		}
		return s.WeightsProfile, nil
	}
	if r == nil {
		return models.DefaultWeightsProfile(), nil
	}
	return r.Resolve(ctx, s.WeightsProfileID, s.Persona)
}

// ResolveProfile returns inline when set, otherwise loads id.
func ResolveProfile(ctx context.Context, g ProfileGetter, inline *models.Profile, id string) (*models.Profile, error) {
	if inline != nil {
		if inline.ID == "" && id != "" {
			cp := *inline
			cp.ID = id
			return &cp, nil
		}
		return inline, nil
	}
	if id == "" {
		return nil, commonerrors.NewInvalidInputError("a profile or profile id is required")
	}
	if g == nil {
		return nil, commonerrors.NewProfileNotFoundError(id)
	}
	p, err := g.Get(ctx, id)
	if errors.Is(err, commonerrors.ErrProfileNotFound) {
		return nil, commonerrors.NewProfileNotFoundError(id)
	}
	return p, err
}

// JobTimer records the worker_* metrics for one job.
type JobTimer struct {
	taskType string
	start    time.Time
	obs      *observability.Observability
}

func StartJob(taskType string) *JobTimer {
	metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
	return &JobTimer{taskType: taskType, start: time.Now()}
}

// With also reports the job to the OTel meters in obs.
func (t *JobTimer) With(obs *observability.Observability) *JobTimer {
	t.obs = obs
	return t
}

// Done closes the job; a nil err counts as completed.
func (t *JobTimer) Done(err error) time.Duration {
	elapsed := time.Since(t.start)
	metrics.WorkerJobsActive.WithLabelValues(t.taskType).Dec()
	metrics.WorkerJobDuration.WithLabelValues(t.taskType).Observe(elapsed.Seconds())

	status := "completed"
	if err != nil {
		status = string(commonerrors.FromError(err).Code)
		metrics.WorkerJobsFailed.WithLabelValues(t.taskType, status).Inc()
	} else {
		metrics.WorkerJobsCompleted.WithLabelValues(t.taskType).Inc()
	}
	t.obs.RecordJobProcessed(context.Background(), t.taskType, status)
	t.obs.RecordJobDuration(context.Background(), t.taskType, elapsed, status)
	return elapsed
}
