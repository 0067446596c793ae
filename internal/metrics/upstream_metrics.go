// Package metrics defines upstream feed metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream counter vectors
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Total number of upstream HTTP requests by provider and status",
	}, []string{"provider", "status"})

	FeedFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_feed_failures_total",
		Help:      "Total number of telemetry feed failures by feed",
	}, []string{"feed"})

	CircuitBreakerTripsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of circuit breaker trips by provider",
	}, []string{"provider"})
)

// Upstream histogram vectors
var (
	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Upstream HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})
)

// RecordUpstreamRequest records one upstream request.
func RecordUpstreamRequest(provider string, success bool, durationSeconds float64) {
	status := "success"
	if !success {
		status = "failure"
	}
	UpstreamRequestsTotal.WithLabelValues(provider, status).Inc()
	UpstreamRequestDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordFeedFailure records a failed telemetry feed.
func RecordFeedFailure(feed string) {
	FeedFailuresTotal.WithLabelValues(feed).Inc()
}

// RecordCircuitBreakerTrip records a circuit breaker trip.
func RecordCircuitBreakerTrip(provider string) {
	CircuitBreakerTripsTotal.WithLabelValues(provider).Inc()
}
