// Package logger provides upstream feed logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// UpstreamLogger provides dedicated logging for telemetry and reference feeds.
type UpstreamLogger struct {
	*logrus.Entry
}

// NewUpstreamLogger creates a new upstream logger.
func NewUpstreamLogger(baseLogger *logrus.Logger, provider string) *UpstreamLogger {
	return &UpstreamLogger{
		Entry: baseLogger.WithFields(logrus.Fields{
			"component": "upstream",
			"provider":  provider,
		}),
	}
}

// LogFeedDegraded logs an optional feed that failed and was treated as empty.
func (ul *UpstreamLogger) LogFeedDegraded(feed string, sessionKey int, err error) {
	ul.WithFields(logrus.Fields{
		"feed":        feed,
		"session_key": sessionKey,
		"error":       err.Error(),
	}).Warn("Optional feed unavailable, continuing without it")
}

// LogSnapshotBuilt logs a completed snapshot build.
func (ul *UpstreamLogger) LogSnapshotBuilt(sessionKey, rows int, degraded []string, durationMs float64) {
	ul.WithFields(logrus.Fields{
		"session_key":    sessionKey,
		"rows":           rows,
		"degraded_feeds": degraded,
		"duration_ms":    durationMs,
	}).Debug("Snapshot built")
}

// LogSessionResolved logs the resolution of the latest race session.
func (ul *UpstreamLogger) LogSessionResolved(sessionKey int, cached bool) {
	ul.WithFields(logrus.Fields{
		"session_key": sessionKey,
		"cached":      cached,
	}).Debug("Latest race session resolved")
}

// LogRequestFailed logs a request that exhausted its retries.
func (ul *UpstreamLogger) LogRequestFailed(path string, attempts int, err error) {
	ul.WithFields(logrus.Fields{
		"path":     path,
		"attempts": attempts,
		"error":    err.Error(),
	}).Error("Upstream request failed")
}
