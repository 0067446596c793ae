package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/cache"
	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/estimator"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/service"
	"github.com/yourusername/pitwall/internal/snapshot"
)

const resultCacheCleanup = time.Minute

// app holds the long-lived components shared by every command
type app struct {
	log          *logrus.Logger
	openf1       *datasource.OpenF1Client
	jolpica      *datasource.JolpicaClient
	reference    cache.ReferenceCache
	results      *cache.ResultCache
	external     estimator.Estimator
	orchestrator *service.PredictionOrchestrator
	dashboard    *service.DashboardService
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	factory := datasource.NewFactory(cfg, log)

	openf1, err := factory.OpenF1()
	if err != nil {
		return nil, fmt.Errorf("failed to create openf1 client: %w", err)
	}
	jolpica, err := factory.Jolpica()
	if err != nil {
		return nil, fmt.Errorf("failed to create jolpica client: %w", err)
	}

	reference := cache.NewReferenceCache(ctx, cfg, log)
	results := cache.NewResultCache(resultCacheCleanup)
	external := estimator.New(cfg.Predictor, log)

	builder := snapshot.NewBuilder(openf1, logger.NewUpstreamLogger(log, datasource.OpenF1SourceName))
	orchestrator := service.NewPredictionOrchestrator(
		openf1,
		builder,
		external,
		results,
		reference,
		service.OrchestratorConfig{
			PredictionTTL: cfg.PredictionTTL(),
			SessionTTL:    cfg.SessionTTL(),
		},
		log,
	)
	dashboard := service.NewDashboardService(jolpica, reference, cfg.ReferenceTTL(), log)

	log.WithFields(logrus.Fields{
		"estimator":       external.Name(),
		"reference_cache": cfg.ReferenceCache.Backend,
		"prediction_ttl":  cfg.PredictionTTL().String(),
	}).Info("Components initialized")

	return &app{
		log:          log,
		openf1:       openf1,
		jolpica:      jolpica,
		reference:    reference,
		results:      results,
		external:     external,
		orchestrator: orchestrator,
		dashboard:    dashboard,
	}, nil
}

func (a *app) close() {
	if c, ok := a.external.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close estimator")
		}
	}
	if err := a.reference.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close reference cache")
	}
	_ = a.openf1.Close()
	_ = a.jolpica.Close()
}
