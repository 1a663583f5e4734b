package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROMETHEUS METRICS
// ══════════════════════════════════════════════════════════════════════════════

var (
	jobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "peercall",
		Subsystem: "scheduler",
		Name:      "job_runs_total",
		Help:      "Total number of job executions by job and outcome.",
	}, []string{"job", "status"})

	jobDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "peercall",
		Subsystem: "scheduler",
		Name:      "job_duration_seconds",
		Help:      "Duration of job executions.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"job"})
)

// observeJobRun records one job execution.
func observeJobRun(job string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	jobRunsTotal.WithLabelValues(job, status).Inc()
	jobDurationSeconds.WithLabelValues(job).Observe(duration.Seconds())
}
