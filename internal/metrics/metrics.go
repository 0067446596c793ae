// Package metrics provides centralized Prometheus metrics registry for the prediction service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pitwall"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "predictions_total",
		Help:      "Total number of prediction results by source",
	}, []string{"source"})
	PredictionCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prediction_cache_hits_total",
		Help:      "Total number of prediction cache hits",
	})
	PredictionCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "prediction_cache_misses_total",
		Help:      "Total number of prediction cache misses",
	})
	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of prediction notifications by channel and status",
	}, []string{"channel", "status"})
)

// Gauge metrics
var (
	PredictionCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "prediction_cache_hit_ratio",
		Help:      "Prediction cache hit ratio",
	})
	LastPredictionProbability = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_prediction_probability",
		Help:      "Probability of the most recent prediction",
	})
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Number of connected websocket subscribers",
	})
)

// Histogram metrics
var (
	PredictionCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "prediction_cycle_duration_seconds",
		Help:      "Duration of uncached prediction cycles in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(PredictionCacheHitsTotal)
		registry.MustRegister(PredictionCacheMissesTotal)
		registry.MustRegister(NotificationsTotal)

		// Register gauge metrics
		registry.MustRegister(PredictionCacheHitRatio)
		registry.MustRegister(LastPredictionProbability)
		registry.MustRegister(WebsocketClients)

		// Register histogram metrics
		registry.MustRegister(PredictionCycleDuration)

		// Register upstream metrics
		registry.MustRegister(UpstreamRequestsTotal)
		registry.MustRegister(UpstreamRequestDuration)
		registry.MustRegister(FeedFailuresTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)

		// Register estimator metrics
		registry.MustRegister(EstimatorOutcomesTotal)
		registry.MustRegister(EstimatorLatency)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPrediction records a produced prediction result.
func RecordPrediction(source string, probability float64, durationSeconds float64) {
	PredictionsTotal.WithLabelValues(source).Inc()
	if probability > 0 {
		LastPredictionProbability.Set(probability)
	}
	PredictionCycleDuration.Observe(durationSeconds)
}

// RecordPredictionCacheLookup records a cache hit or miss and the resulting ratio.
func RecordPredictionCacheLookup(hit bool, ratio float64) {
	if hit {
		PredictionCacheHitsTotal.Inc()
	} else {
		PredictionCacheMissesTotal.Inc()
	}
	PredictionCacheHitRatio.Set(ratio)
}

// RecordNotification records a fan-out attempt on one channel.
func RecordNotification(channel string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}

// UpdateWebsocketClients updates the connected subscriber gauge.
func UpdateWebsocketClients(count int) {
	WebsocketClients.Set(float64(count))
}
