package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Verdicts delivered to the page
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_sentry_scans_total",
			Help: "Total number of emails classified, by verdict",
		},
		[]string{"verdict"},
	)

	// Classifier round-trip latency (milliseconds)
	ClassifierLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inbox_sentry_classifier_latency_ms",
			Help:    "Classifier call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12), // 10ms to ~40s
		},
		[]string{"provider", "status"},
	)

	// Change detector transitions
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_sentry_transitions_total",
			Help: "Email open/close transitions observed",
		},
		[]string{"kind"}, // kind: open, close, navigate
	)

	// Swallowed persistence failures
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_sentry_store_errors_total",
			Help: "Counter store failures, by operation",
		},
		[]string{"op"},
	)

	// Classifier answers dropped because the email changed meanwhile
	StaleDiscardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_sentry_stale_verdicts_total",
			Help: "Verdicts discarded because their snapshot was no longer current",
		},
	)
)

// RecordScan counts a delivered verdict
func RecordScan(verdict string) {
	ScansTotal.WithLabelValues(verdict).Inc()
}

// RecordClassifierLatency records one classifier call
func RecordClassifierLatency(provider, status string, duration time.Duration) {
	ClassifierLatency.WithLabelValues(provider, status).Observe(float64(duration.Milliseconds()))
}

// RecordTransition counts a change detector transition
func RecordTransition(kind string) {
	TransitionsTotal.WithLabelValues(kind).Inc()
}

// RecordStoreError counts a swallowed store failure
func RecordStoreError(op string) {
	StoreErrorsTotal.WithLabelValues(op).Inc()
}

// RecordStaleDiscard counts a dropped stale verdict
func RecordStaleDiscard() {
	StaleDiscardedTotal.Inc()
}
