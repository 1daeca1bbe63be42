// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"sync"
	"time"

	"matchmaking-workers/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobHandlerFunc is the signature every matching worker's Handle method has.
type JobHandlerFunc func(client worker.JobClient, job entities.Job)

// WorkerSet keeps the opened job workers so they can be closed on shutdown.
type WorkerSet struct {
	mu      sync.Mutex
	workers map[string]worker.JobWorker
	logger  *zap.Logger
}

func NewWorkerSet(logger *zap.Logger) *WorkerSet {
	return &WorkerSet{workers: make(map[string]worker.JobWorker), logger: logger}
}

// Start opens a job worker for taskType unless it is disabled in wcfg.
func (s *WorkerSet) Start(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandlerFunc) bool {
	if !wcfg.Enabled {
		s.logger.Info("worker disabled", zap.String("taskType", taskType))
		return false
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	s.mu.Lock()
	s.workers[taskType] = jw
	s.mu.Unlock()

	s.logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return true
}

func (s *WorkerSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

// Stop closes every worker and waits for in-flight jobs.
func (s *WorkerSet) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for taskType, jw := range s.workers {
		s.logger.Info("stopping worker", zap.String("taskType", taskType))
		jw.Close()
		jw.AwaitClose()
	}
	s.workers = make(map[string]worker.JobWorker)
}

// CompleteJob sends a complete command for job with variables, retrying
// transient broker failures.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, variables interface{}, retry *RetryConfig) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(variables)
	if err != nil {
		return err
	}
	return Retry(ctx, retry, "complete-job", func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
}
