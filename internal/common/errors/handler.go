// internal/common/errors/handler.go
package errors

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
)

// ErrorHandler turns worker errors into either a retrying job failure or a
// thrown BPMN error.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Decision is what HandleJobError did with the job.
type Decision struct {
	Error   *BPMNError
	Retries int // > 0 means the job was failed for retry
}

// Decide computes the outcome for err without talking to the broker.
func (h *ErrorHandler) Decide(job entities.Job, err error) Decision {
	bpmnErr := ConvertToBPMNError(FromError(err))
	d := Decision{Error: bpmnErr}
	if bpmnErr.Retries > 0 && job.Retries > 0 {
		d.Retries = bpmnErr.Retries
		if int(job.Retries) < d.Retries {
			d.Retries = int(job.Retries)
		}
	}
	return d
}

// HandleJobError handles any error in a worker job
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) Decision {
	stdErr := FromError(err)
	d := h.Decide(job, stdErr)
	h.logError(job, stdErr, d)

	if d.Retries > 0 {
		h.failJobWithRetries(ctx, client, job, d.Error, d.Retries)
	} else {
		h.throwBPMNError(ctx, client, job, d.Error)
	}
	return d
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		ErrorMessage(bpmnErr.Message)

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, d Decision) {
	if h.logger == nil {
		return
	}
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    d.Error.Code,
		"message":          d.Error.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          d.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
