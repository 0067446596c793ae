// Package logger provides prediction-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// PredictionLogger provides dedicated logging for prediction cycles.
type PredictionLogger struct {
	*logrus.Entry
}

// NewPredictionLogger creates a new prediction logger.
func NewPredictionLogger(baseLogger *logrus.Logger) *PredictionLogger {
	return &PredictionLogger{
		Entry: baseLogger.WithField("component", "prediction"),
	}
}

// ForCycle returns a logger tagged with one prediction cycle.
func (pl *PredictionLogger) ForCycle(cycleID string, sessionKey *int) *PredictionLogger {
	fields := logrus.Fields{"cycle_id": cycleID}
	if sessionKey != nil {
		fields["session_key"] = *sessionKey
	}
	return &PredictionLogger{Entry: pl.WithFields(fields)}
}

// LogPredictionCompleted logs the outcome of a prediction cycle.
func (pl *PredictionLogger) LogPredictionCompleted(source string, winnerDriverNumber int, probability float64, rows int, durationMs float64) {
	pl.WithFields(logrus.Fields{
		"source":               source,
		"winner_driver_number": winnerDriverNumber,
		"probability":          probability,
		"snapshot_rows":        rows,
		"duration_ms":          durationMs,
	}).Info("Prediction cycle completed")
}

// LogNoPrediction logs a cycle that produced no prediction.
func (pl *PredictionLogger) LogNoPrediction(reason string) {
	pl.WithField("reason", reason).Info("Prediction cycle produced no prediction")
}

// LogEstimatorOutcome logs one external estimator invocation.
func (pl *PredictionLogger) LogEstimatorOutcome(estimator, outcome string, latencyMs float64) {
	pl.WithFields(logrus.Fields{
		"estimator":  estimator,
		"outcome":    outcome,
		"latency_ms": latencyMs,
	}).Debug("External estimator finished")
}

// LogEstimatorError logs an external estimator failure. Failures are never fatal.
func (pl *PredictionLogger) LogEstimatorError(estimator string, err error) {
	pl.WithFields(logrus.Fields{
		"estimator": estimator,
		"error":     err.Error(),
	}).Warn("External estimator failed, falling back to heuristic")
}
