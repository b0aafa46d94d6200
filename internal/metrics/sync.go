package metrics

import "github.com/prometheus/client_golang/prometheus"

// Batch sync Prometheus metrics.
var (
	ApplyAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchsync",
			Name:      "apply_attempts_total",
			Help:      "Total number of external apply calls",
		},
		[]string{"field", "outcome"}, // "ok" / "retryable" / "terminal" / "cancelled"
	)

	ApplyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "batchsync",
			Name:      "apply_duration_seconds",
			Help:      "External apply call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"field"},
	)

	TargetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchsync",
			Name:      "targets_total",
			Help:      "Total number of resolved targets",
		},
		[]string{"field", "status", "kind"}, // status "success" / "failed"; kind empty on success
	)

	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "batchsync",
			Name:      "batch_duration_seconds",
			Help:      "Batch run wall time in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"field"},
	)

	HubSpotRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchsync",
			Name:      "hubspot_requests_total",
			Help:      "Total number of HubSpot API requests",
		},
		[]string{"operation", "code"}, // code is the HTTP status or "error"
	)

	HubSpotRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "batchsync",
			Name:      "hubspot_request_duration_seconds",
			Help:      "HubSpot API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"operation"},
	)

	BatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "batchsync",
			Name:      "batches_total",
			Help:      "Total number of completed batch runs",
		},
		[]string{"field"},
	)
)

var syncMetricsRegistered bool

// RegisterSyncMetrics registers Prometheus batch sync metrics. Must be called once from main.
func RegisterSyncMetrics() {
	if syncMetricsRegistered {
		return
	}
	prometheus.MustRegister(ApplyAttemptsTotal)
	prometheus.MustRegister(ApplyDuration)
	prometheus.MustRegister(TargetsTotal)
	prometheus.MustRegister(BatchDuration)
	prometheus.MustRegister(BatchesTotal)
	prometheus.MustRegister(HubSpotRequestsTotal)
	prometheus.MustRegister(HubSpotRequestDuration)
	syncMetricsRegistered = true
}
