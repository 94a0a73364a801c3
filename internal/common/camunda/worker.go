package camunda

import (
	"context"
	"time"

	"shopwhiz/internal/common/config"
	"shopwhiz/internal/common/logger"
	"shopwhiz/internal/common/metrics"
	"shopwhiz/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
)

// JobHandler is implemented by every task worker.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerSet tracks the job workers opened against one broker connection.
type WorkerSet struct {
	client  zbc.Client
	log     logger.Logger
	obs     *observability.Observability
	workers []worker.JobWorker
}

// NewWorkerSet accepts a nil obs; job outcomes then only reach Prometheus.
func NewWorkerSet(client zbc.Client, log logger.Logger, obs *observability.Observability) *WorkerSet {
	return &WorkerSet{client: client, log: log, obs: obs}
}

// Start opens a job worker for taskType unless the worker is disabled.
func (s *WorkerSet) Start(taskType string, wcfg config.WorkerConfig, handler JobHandler) {
	if !wcfg.Enabled {
		s.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	jw := s.client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, handler, s.obs)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()
	s.workers = append(s.workers, jw)

	s.log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
}

// Close stops every worker and waits for in-flight jobs.
func (s *WorkerSet) Close() {
	for _, jw := range s.workers {
		jw.Close()
		jw.AwaitClose()
	}
	s.workers = nil
}

// Len reports the number of open workers.
func (s *WorkerSet) Len() int {
	return len(s.workers)
}

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeThrown    = "bpmn_error"
	outcomeUnknown   = "unanswered"
)

func instrument(taskType string, handler JobHandler, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		start := time.Now()
		tracked := &outcomeClient{JobClient: client, outcome: outcomeUnknown}
		ctx, span := obs.StartSpan(context.Background(), taskType,
			attribute.Int64("jobKey", job.Key),
			attribute.Int64("processInstanceKey", job.ProcessInstanceKey),
		)
		defer func() {
			span.SetAttributes(attribute.String("outcome", tracked.outcome))
			span.End()
			elapsed := time.Since(start)
			metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			if tracked.outcome == outcomeCompleted {
				metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			}
			obs.RecordJobProcessed(ctx, taskType, tracked.outcome)
			obs.RecordJobDuration(ctx, taskType, elapsed, tracked.outcome)
		}()
		handler.Handle(tracked, job)
	}
}

// outcomeClient remembers which terminal command the handler issued.
type outcomeClient struct {
	worker.JobClient
	outcome string
}

func (c *outcomeClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.outcome = outcomeCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.outcome = outcomeFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.outcome = outcomeThrown
	return c.JobClient.NewThrowErrorCommand()
}
