// internal/workers/matching/query-candidates/handler.go
package querycandidates

import (
	"context"
	stderrors "errors"

	"matchmaking-workers/internal/common/camunda"
	"matchmaking-workers/internal/common/errors"
	"matchmaking-workers/internal/common/logger"
	"matchmaking-workers/internal/common/observability"
	"matchmaking-workers/internal/common/validation"
	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/workers/matching"
	"matchmaking-workers/internal/workers/matching/query-candidates/queries"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TaskType = "query-candidates"
)

type Handler struct {
	config   *Config
	client   *elasticsearch.Client
	profiles matching.ProfileGetter
	obs      *observability.Observability
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, profiles matching.ProfileGetter, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		client:   client,
		profiles: profiles,
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

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Source models.Profile `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}
	if err := validation.ValidateStruct(input); err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}

	source, err := matching.ResolveProfile(ctx, h.profiles, input.SourceProfile, input.SourceProfileID)
	if err != nil {
		return nil, err
	}

	index := input.IndexName
	if index == "" {
		index = h.config.Index
	}
	size := input.Size
	if size == 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}

	ctx, span := h.obs.StartSpan(ctx, "query-candidates",
		attribute.String("index", index),
		attribute.String("profileId", source.ID),
	)
	defer span.End()

	req, err := queries.BuildQuery(queries.CandidateQuery{
		Index:      index,
		Source:     source,
		ExcludeIDs: input.ExcludeIDs,
		Types:      input.Types,
		Size:       size,
	})
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}

	res, err := req.Do(ctx, h.client)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewSearchTimeoutError(index)
		}
		return nil, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		span.SetStatus(codes.Error, res.Status())
		return nil, errors.NewIndexNotFoundError(index)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
		return nil, errors.NewSearchQueryFailedError(index, stderrors.New(res.String()))
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewSearchQueryFailedError(index, err)
	}

	out := &Output{
		Candidates:   make([]*models.Profile, 0, len(r.Hits.Hits)),
		CandidateIDs: make([]string, 0, len(r.Hits.Hits)),
		TotalHits:    r.Hits.Total.Value,
		Took:         r.Took,
	}
	for i := range r.Hits.Hits {
		p := r.Hits.Hits[i].Source
		if p.ID == "" {
			p.ID = r.Hits.Hits[i].ID
		}
		out.Candidates = append(out.Candidates, &p)
		out.CandidateIDs = append(out.CandidateIDs, p.ID)
	}

	span.SetAttributes(attribute.Int("hits", len(out.Candidates)))
	h.logger.Info("candidates queried", map[string]interface{}{
		"profileId": source.ID,
		"index":     index,
		"returned":  len(out.Candidates),
		"totalHits": out.TotalHits,
		"tookMs":    out.Took,
	})
	return out, nil
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
