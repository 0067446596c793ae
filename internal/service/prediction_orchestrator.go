// Package service wires the upstream clients, estimators and caches into the operations
// served by the API: live winner predictions and the season dashboard.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/cache"
	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/estimator"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
	"github.com/yourusername/pitwall/internal/snapshot"
)

// External estimates are trusted up to a higher ceiling than the heuristic
const (
	ExternalFloor   = 0.50
	ExternalCeiling = 0.99
)

const noPredictionSource = "none"

// SnapshotBuilder builds the ranked snapshot of a session
type SnapshotBuilder interface {
	Build(ctx context.Context, sessionKey int) (*snapshot.Result, error)
}

// PredictionPublisher receives every freshly computed prediction
type PredictionPublisher interface {
	Publish(ctx context.Context, result *models.PredictionResult) error
}

// OrchestratorConfig configures cache lifetimes of the orchestrator
type OrchestratorConfig struct {
	PredictionTTL time.Duration
	SessionTTL    time.Duration
}

// PredictionOrchestrator resolves a session, builds its snapshot and estimates the winner,
// preferring the external strategy and falling back to the heuristic.
type PredictionOrchestrator struct {
	resolver  datasource.SessionResolver
	builder   SnapshotBuilder
	external  estimator.Estimator
	heuristic estimator.Heuristic
	results   *cache.ResultCache
	reference cache.ReferenceCache
	publisher PredictionPublisher
	config    OrchestratorConfig
	logger    *logger.PredictionLogger
	upstream  *logger.UpstreamLogger
	now       func() time.Time
}

// NewPredictionOrchestrator creates a new prediction orchestrator
func NewPredictionOrchestrator(
	resolver datasource.SessionResolver,
	builder SnapshotBuilder,
	external estimator.Estimator,
	results *cache.ResultCache,
	reference cache.ReferenceCache,
	config OrchestratorConfig,
	log *logrus.Logger,
) *PredictionOrchestrator {
	if external == nil {
		external = estimator.Disabled{}
	}
	return &PredictionOrchestrator{
		resolver:  resolver,
		builder:   builder,
		external:  external,
		results:   results,
		reference: reference,
		config:    config,
		logger:    logger.NewPredictionLogger(log),
		upstream:  logger.NewUpstreamLogger(log, datasource.OpenF1SourceName),
		now:       time.Now,
	}
}

// SetPublisher registers the sink for fresh predictions
func (o *PredictionOrchestrator) SetPublisher(p PredictionPublisher) {
	o.publisher = p
}

// Predict returns the prediction for sessionKey, or for the latest started race session
// when sessionKey is nil. Upstream and estimator failures degrade the result instead of
// failing; the only error is the caller's context ending while waiting.
func (o *PredictionOrchestrator) Predict(ctx context.Context, sessionKey *int) (*models.PredictionResult, error) {
	key, ok := o.resolveSession(ctx, sessionKey)
	if !ok {
		o.logger.LogNoPrediction("no session resolvable")
		return &models.PredictionResult{
			Source:    models.SourceHeuristic,
			UpdatedAt: o.now().UTC(),
		}, nil
	}

	return o.results.GetOrCompute(ctx, cache.PredictionKey(key), o.config.PredictionTTL, func(ctx context.Context) (*models.PredictionResult, error) {
		return o.compute(ctx, key), nil
	})
}

func latestSessionCacheKey(year int) string {
	return fmt.Sprintf("session:latest:race:%d", year)
}

func (o *PredictionOrchestrator) resolveSession(ctx context.Context, requested *int) (int, bool) {
	if requested != nil {
		return *requested, true
	}

	now := o.now()
	cacheKey := latestSessionCacheKey(now.Year())

	var cached int
	if o.reference != nil {
		found, err := o.reference.Get(ctx, cacheKey, &cached)
		if err != nil {
			o.upstream.WithError(err).Warn("Session cache read failed")
		} else if found {
			o.upstream.LogSessionResolved(cached, true)
			return cached, true
		}
	}

	key, ok, err := o.resolver.LatestRaceSessionKey(ctx, now)
	if err != nil {
		o.upstream.WithError(err).Warn("Failed to resolve latest race session")
		return 0, false
	}
	if !ok {
		return 0, false
	}
	o.upstream.LogSessionResolved(key, false)

	if o.reference != nil {
		if err := o.reference.Set(ctx, cacheKey, key, o.config.SessionTTL); err != nil {
			o.upstream.WithError(err).Warn("Session cache write failed")
		}
	}
	return key, true
}

// compute runs one full prediction cycle. The result is never nil.
func (o *PredictionOrchestrator) compute(ctx context.Context, sessionKey int) *models.PredictionResult {
	start := time.Now()
	log := o.logger.ForCycle(uuid.New().String(), &sessionKey)

	result := &models.PredictionResult{
		SessionKey: &sessionKey,
		Source:     models.SourceHeuristic,
	}
	defer func() {
		if o.publisher == nil {
			return
		}
		if err := o.publisher.Publish(ctx, result); err != nil {
			log.WithError(err).Warn("Failed to publish prediction")
		}
	}()

	built, err := o.builder.Build(ctx, sessionKey)
	if err != nil {
		log.WithError(err).Warn("Snapshot unavailable")
		o.finishEmpty(result, log, "snapshot unavailable", start)
		return result
	}

	est, source := o.estimate(ctx, sessionKey, built.Snapshot)
	result.Source = source
	if est == nil {
		o.finishEmpty(result, log, "no ranked drivers", start)
		return result
	}

	driver, found := built.DriverByNumber(est.WinnerDriverNumber)
	if !found {
		log.WithField("winner_driver_number", est.WinnerDriverNumber).Warn("Estimated winner is not in the session roster")
		o.finishEmpty(result, log, "winner not in roster", start)
		return result
	}

	result.Prediction = &models.WinnerPrediction{
		WinnerDriverNumber: driver.DriverNumber,
		Driver:             driver.FullName,
		Team:               driver.TeamName,
		Probability:        est.Probability,
	}
	result.UpdatedAt = o.now().UTC()

	elapsed := time.Since(start)
	metrics.RecordPrediction(string(source), est.Probability, elapsed.Seconds())
	log.LogPredictionCompleted(string(source), driver.DriverNumber, est.Probability, len(built.Snapshot), float64(elapsed.Milliseconds()))
	return result
}

func (o *PredictionOrchestrator) finishEmpty(result *models.PredictionResult, log *logger.PredictionLogger, reason string, start time.Time) {
	result.UpdatedAt = o.now().UTC()
	metrics.RecordPrediction(noPredictionSource, 0, time.Since(start).Seconds())
	log.LogNoPrediction(reason)
}

// estimate tries the external strategy, then the heuristic. est is nil only when the
// external strategy is absent and the snapshot has no ranked rows.
func (o *PredictionOrchestrator) estimate(ctx context.Context, sessionKey int, snap models.Snapshot) (*models.Estimate, models.PredictionSource) {
	if est, ok := o.external.Estimate(ctx, sessionKey, snap); ok {
		return &models.Estimate{
			WinnerDriverNumber: est.WinnerDriverNumber,
			Probability:        models.ClampProbability(est.Probability, ExternalFloor, ExternalCeiling),
		}, models.SourceExternal
	}

	est, ok := o.heuristic.Estimate(snap)
	if !ok {
		return nil, models.SourceHeuristic
	}
	return est, models.SourceHeuristic
}
