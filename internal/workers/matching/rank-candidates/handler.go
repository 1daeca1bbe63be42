// internal/workers/matching/rank-candidates/handler.go
package rankcandidates

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"matchmaking-workers/internal/common/camunda"
	"matchmaking-workers/internal/common/errors"
	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/common/observability"
	"matchmaking-workers/internal/common/validation"
	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/ranking"
	"matchmaking-workers/internal/workers/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TaskType = "rank-candidates"
)

type Handler struct {
	config   *Config
	ranker   *ranking.Ranker
	profiles matching.ProfileGetter
	weights  matching.WeightsResolver
	obs      *observability.Observability
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, ranker *ranking.Ranker, profiles matching.ProfileGetter, weights matching.WeightsResolver, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		ranker:   ranker,
		profiles: profiles,
		weights:  weights,
		obs:      obs,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	timer := matching.StartJob(TaskType).With(h.obs)

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		timer.Done(err)
		h.errors.HandleJobError(context.Background(), client, job, errors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	timer.Done(err)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}
	if err := validation.ValidateStruct(input); err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	if n := len(input.Candidates) + len(input.CandidateIDs); n > h.config.MaxCandidates {
		return nil, errors.NewInvalidInputError(
			fmt.Sprintf("%d candidates exceeds the limit of %d", n, h.config.MaxCandidates))
	}

	runID := uuid.New().String()
	ctx, span := h.obs.StartSpan(ctx, "rank-candidates",
		attribute.String("runId", runID),
		attribute.Int("candidates", len(input.Candidates)+len(input.CandidateIDs)),
	)
	defer span.End()

	source, err := matching.ResolveProfile(ctx, h.profiles, input.SourceProfile, input.SourceProfileID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	w, err := input.WeightsSelection.Resolve(ctx, h.weights)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if input.Limit > 0 {
		limited := *w
		limited.Thresholds.MaximumResults = input.Limit
		w = &limited
	}

	pool := input.Candidates
	var missing []string
	if len(input.CandidateIDs) > 0 && h.profiles != nil {
		loaded, notFound, err := h.profiles.GetMany(ctx, input.CandidateIDs)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		pool = append(append([]*models.Profile(nil), pool...), loaded...)
		missing = notFound
	}
	pool = ranking.DedupePool(source, pool)

	start := time.Now()
	matches, err := h.ranker.Rank(ctx, source, pool, w)
	elapsed := time.Since(start)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewRankingTimeoutError(source.ID)
		}
		return nil, errors.NewScoringFailedError(err)
	}

	fields := map[string]interface{}{
		"runId":          runID,
		"profileId":      source.ID,
		"persona":        w.Persona,
		"candidateCount": len(pool),
		"matchCount":     len(matches),
		"durationMs":     elapsed.Milliseconds(),
	}
	if elapsed > h.config.SlowThreshold {
		h.logger.Warn("slow ranking run", fields)
	} else {
		h.logger.Info("candidates ranked", fields)
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))
	h.obs.RecordMatches(ctx, w.Persona, len(matches))

	if matches == nil {
		matches = []models.Match{}
	}
	return &Output{
		RunID:               runID,
		ProfileID:           source.ID,
		WeightsProfileID:    w.ID,
		Matches:             matches,
		CandidateCount:      len(pool),
		MatchCount:          len(matches),
		MissingCandidateIDs: missing,
		DurationMs:          elapsed.Milliseconds(),
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	if err := camunda.CompleteJob(context.Background(), client, job, output, nil); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
