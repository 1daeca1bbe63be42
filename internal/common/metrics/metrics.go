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

	SignalsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_signals_emitted_total",
			Help: "Signals emitted by the scoring engine, by kind",
		},
		[]string{"kind"},
	)

	SimilarityCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_similarity_cache_requests_total",
			Help: "Similarity cache lookups by cache and result (hit, miss)",
		},
		[]string{"cache", "result"},
	)

	RankDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_rank_duration_seconds",
			Help:    "Time spent ranking one source profile against its candidates",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"persona"},
	)

	ProfileCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_profile_cache_requests_total",
			Help: "Redis profile/weights cache lookups by store and result (hit, miss, error)",
		},
		[]string{"store", "result"},
	)
)
