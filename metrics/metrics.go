package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaworker_jobs_total",
		Help: "Job executions by operation and outcome",
	}, []string{"operation", "outcome"})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaworker_active_jobs",
		Help: "Jobs currently executing",
	})

	TransformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediaworker_transform_duration_seconds",
		Help:    "Wall time of engine invocations including upload",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"operation", "sink"})

	BytesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediaworker_output_bytes_total",
		Help: "Bytes of engine output handed to the object store",
	}, []string{"sink"})

	CleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaworker_staged_cleanup_failures_total",
		Help: "Staged files that could not be removed",
	})
)

// Outcome labels for JobsTotal.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeRetried   = "retried"
	OutcomeCancelled = "cancelled"
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
