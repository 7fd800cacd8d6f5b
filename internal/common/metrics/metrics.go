package metrics

import (
	"time"

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

	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_wizard_transitions_total",
			Help: "Wizard state transitions by target state and result",
		},
		[]string{"to", "result"},
	)

	QuotesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_quotes_total",
			Help: "Quotes computed by term",
		},
		[]string{"term"},
	)

	IdentityCaptures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_identity_captures_total",
			Help: "Identity image captures by side and outcome",
		},
		[]string{"side", "outcome"},
	)

	ApplicationSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_application_submissions_total",
			Help: "Application submissions by outcome (submitted, degraded, rejected, failed)",
		},
		[]string{"outcome"},
	)

	VerificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_verification_attempts_total",
			Help: "Verification code attempts by mode and result",
		},
		[]string{"mode", "result"},
	)

	PostCommitHookFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_post_commit_hook_failures_total",
			Help: "Best-effort post-commit hook failures by hook",
		},
		[]string{"hook"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// TrackJob marks a job active and returns a func that records its outcome. An empty
// error code counts as completed.
func TrackJob(taskType string) func(errorCode string) {
	start := time.Now()
	WorkerJobsActive.WithLabelValues(taskType).Inc()
	return func(errorCode string) {
		WorkerJobsActive.WithLabelValues(taskType).Dec()
		WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		if errorCode == "" {
			WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			return
		}
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
	}
}
