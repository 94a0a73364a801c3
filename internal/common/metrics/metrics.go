package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	CollaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_calls_total",
			Help: "Calls to the LLM and web search collaborators by outcome",
		},
		[]string{"collaborator", "outcome"},
	)

	CollaboratorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collaborator_call_duration_seconds",
			Help:    "Latency of collaborator calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
		[]string{"collaborator"},
	)

	FallbacksUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallbacks_used_total",
			Help: "Times a stage degraded to its fallback output",
		},
		[]string{"stage"},
	)

	ConversationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_started_total",
			Help: "Conversations that received an initial query",
		},
	)

	ConversationsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_completed_total",
			Help: "Conversations that produced search parameters",
		},
	)

	ProductsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "products_returned",
			Help:    "Normalized products returned per platform search",
			Buckets: []float64{0, 1, 2, 4, 6, 8},
		},
		[]string{"platform"},
	)
)
