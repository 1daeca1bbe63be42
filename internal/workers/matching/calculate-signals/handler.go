// internal/workers/matching/calculate-signals/handler.go
package calculatesignals

import (
	"context"

	"matchmaking-workers/internal/common/camunda"
	"matchmaking-workers/internal/common/errors"
	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/common/observability"
	"matchmaking-workers/internal/common/validation"
	"matchmaking-workers/internal/ranking"
	"matchmaking-workers/internal/signals"
	"matchmaking-workers/internal/workers/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
)

const (
	TaskType = "calculate-signals"
)

type Handler struct {
	config   *Config
	engine   *signals.Engine
	profiles matching.ProfileGetter
	weights  matching.WeightsResolver
	obs      *observability.Observability
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, engine *signals.Engine, profiles matching.ProfileGetter, weights matching.WeightsResolver, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		engine:   engine,
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
	timer := h.startJob()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		timer.Done(err)
		h.errors.HandleJobError(context.Background(), client, job, errors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	elapsed := timer.Done(err)
	if err != nil {
		h.errors.HandleJobError(context.Background(), client, job, err)
		return
	}

	h.logger.Info("signals calculated", map[string]interface{}{
		"jobKey":       job.Key,
		"profileAId":   output.ProfileAID,
		"profileBId":   output.ProfileBID,
		"signalCount":  output.SignalCount,
		"overallScore": output.OverallScore,
		"durationMs":   elapsed.Milliseconds(),
	})
	h.completeJob(client, job, output)
}

func (h *Handler) startJob() *matching.JobTimer {
	return matching.StartJob(TaskType).With(h.obs)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}
	if err := validation.ValidateStruct(input); err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}

	a, err := matching.ResolveProfile(ctx, h.profiles, input.ProfileA, input.ProfileAID)
	if err != nil {
		return nil, err
	}
	b, err := matching.ResolveProfile(ctx, h.profiles, input.ProfileB, input.ProfileBID)
	if err != nil {
		return nil, err
	}
	w, err := input.WeightsSelection.Resolve(ctx, h.weights)
	if err != nil {
		return nil, err
	}

	eval := h.engine.Evaluate(a, b, w)
	score := ranking.Aggregate(eval)

	return &Output{
		ProfileAID:       a.ID,
		ProfileBID:       b.ID,
		WeightsProfileID: w.ID,
		Signals:          eval.Signals,
		OverallScore:     score.Overall,
		Confidence:       score.Confidence,
		SignalCount:      len(eval.Signals),
		ApplicableFields: eval.ApplicableFields,
		PassesThresholds: ranking.Passes(score, w.Thresholds),
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
