package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/pitwall/internal/cache"
	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/models"
)

// DefaultReferenceTTL is how long schedule, standings and results are reused
const DefaultReferenceTTL = 300 * time.Second

// pitStopFetchConcurrency bounds parallel per-round requests to Jolpica
const pitStopFetchConcurrency = 4

var millisPerSecond = decimal.NewFromInt(1000)

// DashboardService serves cached season reference data
type DashboardService struct {
	source datasource.ReferenceSource
	cache  cache.ReferenceCache
	ttl    time.Duration
	logger *logrus.Entry
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(source datasource.ReferenceSource, rc cache.ReferenceCache, ttl time.Duration, logger *logrus.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = DefaultReferenceTTL
	}
	return &DashboardService{
		source: source,
		cache:  rc,
		ttl:    ttl,
		logger: logger.WithField("component", "dashboard"),
	}
}

// Schedule returns the calendar of a season
func (d *DashboardService) Schedule(ctx context.Context, season string) (*models.Schedule, error) {
	return cache.Fetch(ctx, d.cache, d.logger, "schedule:"+season, d.ttl, func(ctx context.Context) (*models.Schedule, error) {
		return d.source.Schedule(ctx, season)
	})
}

// DriverStandings returns the current drivers' championship
func (d *DashboardService) DriverStandings(ctx context.Context) (*models.DriverStandings, error) {
	return cache.Fetch(ctx, d.cache, d.logger, "standings:drivers", d.ttl, d.source.DriverStandings)
}

// ConstructorStandings returns the current constructors' championship
func (d *DashboardService) ConstructorStandings(ctx context.Context) (*models.ConstructorStandings, error) {
	return cache.Fetch(ctx, d.cache, d.logger, "standings:constructors", d.ttl, d.source.ConstructorStandings)
}

// RaceResults returns the race classification of a round plus its sprint and qualifying
// classifications. Only the race is required; a missing sprint or qualifying is empty.
func (d *DashboardService) RaceResults(ctx context.Context, season string, round int) (*models.RoundResults, error) {
	key := fmt.Sprintf("results:%s:%d", season, round)
	return cache.Fetch(ctx, d.cache, d.logger, key, d.ttl, func(ctx context.Context) (*models.RoundResults, error) {
		results, err := d.source.RaceResults(ctx, season, round)
		if err != nil {
			return nil, err
		}

		var g errgroup.Group
		g.Go(func() error {
			sprint, err := d.source.SprintResults(ctx, season, round)
			if err != nil {
				d.logOptional(err, "sprint", season, round)
				return nil
			}
			results.Sprint = sprint
			return nil
		})
		g.Go(func() error {
			qualifying, err := d.source.QualifyingResults(ctx, season, round)
			if err != nil {
				d.logOptional(err, "qualifying", season, round)
				return nil
			}
			results.Qualifying = qualifying
			return nil
		})
		_ = g.Wait()

		return results, nil
	})
}

func (d *DashboardService) logOptional(err error, kind, season string, round int) {
	entry := d.logger.WithError(err).WithFields(logrus.Fields{
		"kind":   kind,
		"season": season,
		"round":  round,
	})
	if datasource.IsNotFound(err) {
		entry.Debug("No optional classification for round")
		return
	}
	entry.Warn("Failed to fetch optional classification")
}

// PitStops returns the fastest stop of every completed round of a season and each
// constructor's average over those fastest stops. Rounds whose data cannot be fetched
// are left out.
func (d *DashboardService) PitStops(ctx context.Context, season string) (*models.PitStopSummary, error) {
	return cache.Fetch(ctx, d.cache, d.logger, "pitstops:"+season, d.ttl, func(ctx context.Context) (*models.PitStopSummary, error) {
		rounds, err := d.source.SeasonRounds(ctx, season)
		if err != nil {
			return nil, err
		}

		fastest := make([]*models.FastestPitStop, len(rounds))
		var g errgroup.Group
		g.SetLimit(pitStopFetchConcurrency)
		for i, round := range rounds {
			g.Go(func() error {
				stop, err := d.fastestStop(ctx, season, round)
				if err != nil {
					d.logger.WithError(err).WithFields(logrus.Fields{"season": season, "round": round}).Warn("Skipping round in pit stop summary")
					return nil
				}
				fastest[i] = stop
				return nil
			})
		}
		_ = g.Wait()

		summary := &models.PitStopSummary{Fastest: []models.FastestPitStop{}}
		for _, f := range fastest {
			if f != nil {
				summary.Fastest = append(summary.Fastest, *f)
			}
		}
		summary.Averages = ConstructorAverages(summary.Fastest)
		return summary, nil
	})
}

type driverMeta struct {
	label       string
	constructor string
}

func (d *DashboardService) fastestStop(ctx context.Context, season string, round int) (*models.FastestPitStop, error) {
	var (
		stops   *models.RacePitStops
		results *models.RoundResults
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stops, err = d.source.PitStops(gctx, season, round)
		return err
	})
	g.Go(func() (err error) {
		results, err = d.source.RaceResults(gctx, season, round)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return FastestStop(round, stops, results), nil
}

// FastestStop picks the quickest stop of a round among drivers classified in its results.
// It returns nil when no stop qualifies.
func FastestStop(round int, stops *models.RacePitStops, results *models.RoundResults) *models.FastestPitStop {
	if stops == nil || results == nil || len(stops.Stops) == 0 {
		return nil
	}

	meta := make(map[string]driverMeta, len(results.Results))
	for _, r := range results.Results {
		label := r.Driver
		if r.Code != "" {
			label = r.Code
		}
		meta[r.DriverID] = driverMeta{label: label, constructor: r.Constructor}
	}

	race := stops.RaceName
	if race == "" {
		race = fmt.Sprintf("Round %d", round)
	}

	var best *models.FastestPitStop
	for _, s := range stops.Stops {
		m, ok := meta[s.DriverID]
		if !ok {
			continue
		}
		ms, ok := durationMillis(s.Duration)
		if !ok {
			continue
		}
		if best == nil || ms < best.TimeMs {
			best = &models.FastestPitStop{Race: race, Driver: m.label, Constructor: m.constructor, TimeMs: ms}
		}
	}
	return best
}

// durationMillis converts a Jolpica "seconds.millis" duration to whole milliseconds
func durationMillis(raw string) (int64, bool) {
	seconds, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	return seconds.Mul(millisPerSecond).Round(0).IntPart(), true
}

// ConstructorAverages averages the given stops per constructor, in order of first appearance
func ConstructorAverages(stops []models.FastestPitStop) []models.ConstructorPitAverage {
	type agg struct {
		total decimal.Decimal
		count int64
	}
	order := []string{}
	byConstructor := map[string]*agg{}
	for _, s := range stops {
		a, ok := byConstructor[s.Constructor]
		if !ok {
			a = &agg{}
			byConstructor[s.Constructor] = a
			order = append(order, s.Constructor)
		}
		a.total = a.total.Add(decimal.NewFromInt(s.TimeMs))
		a.count++
	}

	averages := make([]models.ConstructorPitAverage, 0, len(order))
	for _, c := range order {
		a := byConstructor[c]
		avg := a.total.Div(decimal.NewFromInt(a.count)).Round(0).IntPart()
		averages = append(averages, models.ConstructorPitAverage{Constructor: c, AvgMs: avg})
	}
	return averages
}

// Refresh drops and reloads the season schedule and both championship tables
func (d *DashboardService) Refresh(ctx context.Context, season string) error {
	for _, key := range []string{"schedule:" + season, "standings:drivers", "standings:constructors"} {
		if err := d.cache.Delete(ctx, key); err != nil {
			d.logger.WithError(err).WithField("key", key).Warn("Reference cache delete failed")
		}
	}

	var errs []error
	if _, err := d.Schedule(ctx, season); err != nil {
		errs = append(errs, fmt.Errorf("schedule: %w", err))
	}
	if _, err := d.DriverStandings(ctx); err != nil {
		errs = append(errs, fmt.Errorf("driver standings: %w", err))
	}
	if _, err := d.ConstructorStandings(ctx); err != nil {
		errs = append(errs, fmt.Errorf("constructor standings: %w", err))
	}
	return errors.Join(errs...)
}
