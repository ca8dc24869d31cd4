package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsFinishedTotal, jobStageSeconds) }

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analysis_jobs_finished_total",
		Help: "Total number of query analysis jobs that reached a terminal state, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'error', 'cancelled'
)

var jobStageSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "analysis_job_stage_seconds",
		Help:    "Per-stage pipeline latency distribution in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	},
	[]string{"stage"}, // 'analyzing_schema', 'running_explain', 'generating_suggestions'
)

func IncJobFinished(status string) {
	jobsFinishedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveStage(stage string, seconds float64) {
	jobStageSeconds.WithLabelValues(norm(stage)).Observe(seconds)
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
