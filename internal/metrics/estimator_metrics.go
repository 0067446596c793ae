// Package metrics defines estimator metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Estimator outcomes
const (
	EstimatorOutcomeAccepted = "accepted"
	EstimatorOutcomeAbsent   = "absent"
	EstimatorOutcomeError    = "error"
	EstimatorOutcomeTimeout  = "timeout"
)

// Estimator counter vectors
var (
	EstimatorOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "estimator_outcomes_total",
		Help:      "Total number of external estimator calls by estimator and outcome",
	}, []string{"estimator", "outcome"})
)

// Estimator histogram vectors
var (
	EstimatorLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "estimator_latency_seconds",
		Help:      "External estimator latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 4, 5},
	}, []string{"estimator"})
)

// RecordEstimatorOutcome records one external estimator call.
func RecordEstimatorOutcome(estimator, outcome string, durationSeconds float64) {
	EstimatorOutcomesTotal.WithLabelValues(estimator, outcome).Inc()
	EstimatorLatency.WithLabelValues(estimator).Observe(durationSeconds)
}
