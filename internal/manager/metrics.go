package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	metricRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatewayd",
			Subsystem: "admission",
			Name:      "rejections_total",
			Help:      "Requests rejected by the admission controller",
		},
		[]string{"reason"},
	)

	metricQueueWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "gatewayd",
			Subsystem: "admission",
			Name:      "queue_wait_seconds",
			Help:      "Time admitted requests spent waiting for a slot",
			Buckets:   prometheus.DefBuckets,
		},
	)

	metricWakes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gatewayd",
			Subsystem: "backend",
			Name:      "wake_total",
			Help:      "Cold starts triggered by admitted requests",
		},
	)

	metricBackendState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "gatewayd",
			Subsystem: "backend",
			Name:      "state",
			Help:      "Current backend lifecycle state (one-hot)",
		},
		[]string{"state"},
	)

	metricProbeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gatewayd",
			Subsystem: "backend",
			Name:      "probe_failures_total",
			Help:      "Health probe failures observed against a warm backend",
		},
	)
)

func init() {
	prometheus.MustRegister(metricRejections, metricQueueWait, metricWakes, metricBackendState, metricProbeFailures)
}
