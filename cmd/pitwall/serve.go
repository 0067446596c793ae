package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/api"
	"github.com/yourusername/pitwall/internal/health"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/notify"
	"github.com/yourusername/pitwall/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

func serve() error {
	log := appLog
	log.WithFields(logrus.Fields{
		"version":     Version,
		"commit":      GitCommit,
		"environment": cfg.App.Environment,
	}).Info("Starting pitwall")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	var publishers notify.Fanout
	var hub *notify.Hub
	if cfg.Notify.WebsocketEnabled {
		hub = notify.NewHub(cfg.Server.CORSAllowedOrigins, log)
		defer hub.Close()
		publishers = append(publishers, hub)
	}
	if cfg.Notify.MQTT.Enabled {
		mqttPublisher, err := notify.NewMQTTPublisher(cfg.Notify.MQTT, log)
		if err != nil {
			log.WithError(err).Warn("MQTT publisher unavailable, continuing without it")
		} else {
			defer mqttPublisher.Close()
			publishers = append(publishers, mqttPublisher)
		}
	}
	if len(publishers) > 0 {
		a.orchestrator.SetPublisher(publishers)
	}

	deps := api.Dependencies{
		Predictor: a.orchestrator,
		Dashboard: a.dashboard,
		Live:      a.openf1,
	}
	if hub != nil {
		deps.Stream = hub
	}
	server := api.NewServer(cfg, api.NewRouter(deps, cfg, log))

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("address", server.Addr).Info("API server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var probes *health.Server
	if cfg.Health.Enabled {
		probes = health.NewServer(health.Config{
			Port:   cfg.Health.Port,
			Logger: log,
			Upstreams: map[string]health.Pinger{
				a.openf1.Name():  a.openf1,
				a.jolpica.Name(): a.jolpica,
			},
		})
		if err := probes.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = startScheduler(a, log)
		if err != nil {
			return err
		}
	}

	if probes != nil {
		probes.SetReady(true)
	}

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		log.WithError(err).Error("API server failed")
		stop()
	}

	if probes != nil {
		probes.SetReady(false)
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.WithError(err).Warn("Scheduler stopped with error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("API server shutdown failed")
		return err
	}

	log.Info("pitwall stopped")
	return nil
}

func startScheduler(a *app, log *logrus.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(log)

	if cfg.Scheduler.PrewarmIntervalSeconds > 0 {
		if err := sched.SchedulePredictionPrewarm(cfg.Scheduler.PrewarmIntervalSeconds, a.orchestrator); err != nil {
			return nil, fmt.Errorf("failed to schedule prediction prewarm: %w", err)
		}
	}
	if cfg.Scheduler.ReferenceRefreshCron != "" {
		if err := sched.ScheduleReferenceRefresh(cfg.Scheduler.ReferenceRefreshCron, a.dashboard); err != nil {
			return nil, fmt.Errorf("failed to schedule reference refresh: %w", err)
		}
	}

	if err := sched.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}
	return sched, nil
}
