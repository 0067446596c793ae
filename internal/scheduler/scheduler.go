// Package scheduler runs background jobs that keep predictions and reference data warm.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/models"
)

const minPrewarmIntervalSeconds = 5

// Predictor produces the live winner prediction
type Predictor interface {
	Predict(ctx context.Context, sessionKey *int) (*models.PredictionResult, error)
}

// ReferenceRefresher reloads cached season reference data
type ReferenceRefresher interface {
	Refresh(ctx context.Context, season string) error
}

// Scheduler manages scheduled warm-up jobs
type Scheduler struct {
	cron            *cron.Cron
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
	now             func() time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		logger:          logger.WithField("component", "scheduler"),
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
		now:             time.Now,
	}
}

// SchedulePredictionPrewarm predicts the latest race session every intervalSeconds so the
// result cache stays warm and subscribers receive fresh predictions.
func (s *Scheduler) SchedulePredictionPrewarm(intervalSeconds int, predictor Predictor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	if intervalSeconds < minPrewarmIntervalSeconds {
		intervalSeconds = minPrewarmIntervalSeconds
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(intervalSeconds-1)*time.Second)
		defer cancel()
		s.prewarm(ctx, predictor)
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", intervalSeconds), jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("interval_seconds", intervalSeconds).Info("Scheduled prediction prewarm job")

	return nil
}

func (s *Scheduler) prewarm(ctx context.Context, predictor Predictor) {
	result, err := predictor.Predict(ctx, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Prediction prewarm failed")
		return
	}
	entry := s.logger.WithField("has_prediction", result.HasPrediction())
	if result.SessionKey != nil {
		entry = entry.WithField("session_key", *result.SessionKey)
	}
	entry.Debug("Prediction prewarm completed")
}

// ScheduleReferenceRefresh reloads the current season's reference data on a cron expression
func (s *Scheduler) ScheduleReferenceRefresh(cronExpression string, refresher ReferenceRefresher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.refresh(ctx, refresher)
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled reference refresh job")

	return nil
}

func (s *Scheduler) refresh(ctx context.Context, refresher ReferenceRefresher) {
	season := strconv.Itoa(s.now().Year())
	if err := refresher.Refresh(ctx, season); err != nil {
		s.logger.WithError(err).WithField("season", season).Warn("Reference refresh incomplete")
		return
	}
	s.logger.WithField("season", season).Debug("Reference data refreshed")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs, up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler jobs still running after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
