// Package snapshot builds the ranked per-driver state of a live session from the telemetry feeds.
package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

// Result is one build: the ranked snapshot plus the full roster it was joined from
type Result struct {
	SessionKey int
	Snapshot   models.Snapshot
	Roster     []models.Driver
	// Degraded lists the optional feeds that failed and were treated as empty
	Degraded []string
}

// DriverByNumber finds a roster entry
func (r *Result) DriverByNumber(number int) (models.Driver, bool) {
	for _, d := range r.Roster {
		if d.DriverNumber == number {
			return d, true
		}
	}
	return models.Driver{}, false
}

// Builder fetches and joins the roster and the four optional telemetry feeds
type Builder struct {
	source datasource.TelemetrySource
	logger *logger.UpstreamLogger
}

// NewBuilder creates a new snapshot builder
func NewBuilder(source datasource.TelemetrySource, log *logger.UpstreamLogger) *Builder {
	return &Builder{source: source, logger: log}
}

type feeds struct {
	mu        sync.Mutex
	degraded  []string
	positions []models.PositionEvent
	intervals []models.IntervalEvent
	laps      []models.LapEvent
	pits      []models.PitEvent
}

func (f *feeds) markDegraded(feed string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.degraded = append(f.degraded, feed)
}

// Build fetches every feed concurrently and returns the ranked snapshot. Only a roster
// failure fails the build; an optional feed failure is logged, counted and treated as empty.
func (b *Builder) Build(ctx context.Context, sessionKey int) (*Result, error) {
	start := time.Now()
	var (
		roster []models.Driver
		f      feeds
	)

	// no shared cancellation: one failing feed must not abort the others
	var g errgroup.Group
	g.Go(func() error {
		drivers, err := b.source.Drivers(ctx, sessionKey)
		if err != nil {
			metrics.RecordFeedFailure(datasource.FeedDrivers)
			return fmt.Errorf("%w: roster for session %d: %v", models.ErrNoSessionData, sessionKey, err)
		}
		roster = drivers
		return nil
	})
	g.Go(func() error {
		f.positions = optional(b, &f, datasource.FeedPositions, sessionKey, func() ([]models.PositionEvent, error) {
			return b.source.Positions(ctx, sessionKey)
		})
		return nil
	})
	g.Go(func() error {
		f.intervals = optional(b, &f, datasource.FeedIntervals, sessionKey, func() ([]models.IntervalEvent, error) {
			return b.source.Intervals(ctx, sessionKey)
		})
		return nil
	})
	g.Go(func() error {
		f.laps = optional(b, &f, datasource.FeedLaps, sessionKey, func() ([]models.LapEvent, error) {
			return b.source.Laps(ctx, sessionKey)
		})
		return nil
	})
	g.Go(func() error {
		f.pits = optional(b, &f, datasource.FeedPits, sessionKey, func() ([]models.PitEvent, error) {
			return b.source.Pits(ctx, sessionKey)
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := Assemble(roster, f.positions, f.intervals, f.laps, f.pits)
	sort.Strings(f.degraded)
	if b.logger != nil {
		b.logger.LogSnapshotBuilt(sessionKey, len(snap), f.degraded, float64(time.Since(start).Milliseconds()))
	}

	return &Result{
		SessionKey: sessionKey,
		Snapshot:   snap,
		Roster:     roster,
		Degraded:   f.degraded,
	}, nil
}

func optional[T any](b *Builder, f *feeds, feed string, sessionKey int, fetch func() ([]T, error)) []T {
	events, err := fetch()
	if err != nil {
		metrics.RecordFeedFailure(feed)
		if b.logger != nil {
			b.logger.LogFeedDegraded(feed, sessionKey, err)
		}
		f.markDegraded(feed)
		return nil
	}
	return events
}

// Assemble joins the roster with the collapsed feeds, drops drivers without a
// position and sorts the rest by position.
func Assemble(roster []models.Driver, positions []models.PositionEvent, intervals []models.IntervalEvent, laps []models.LapEvent, pits []models.PitEvent) models.Snapshot {
	latestPos := latestPositions(positions)
	latestGap := latestIntervals(intervals)
	maxLap := maxLaps(laps)
	pitCount := countPits(pits)

	snap := make(models.Snapshot, 0, len(roster))
	for _, d := range roster {
		row := models.SnapshotRow{
			DriverNumber: d.DriverNumber,
			Driver:       d.FullName,
			Team:         d.TeamName,
			Position:     models.UnknownPosition,
			LapNumber:    maxLap[d.DriverNumber],
			Pits:         pitCount[d.DriverNumber],
		}
		if p, ok := latestPos[d.DriverNumber]; ok && p.Position > 0 {
			row.Position = p.Position
		}
		if iv, ok := latestGap[d.DriverNumber]; ok {
			row.GapToLeader = iv.GapToLeader
		}
		if !row.IsRanked() {
			continue
		}
		snap = append(snap, row)
	}

	sort.SliceStable(snap, func(i, j int) bool {
		return snap[i].Position < snap[j].Position
	})
	return snap
}

// latestPositions keeps the latest event per driver; on equal timestamps the first seen wins
func latestPositions(events []models.PositionEvent) map[int]models.PositionEvent {
	out := make(map[int]models.PositionEvent, len(events))
	for _, e := range events {
		if prev, ok := out[e.DriverNumber]; !ok || e.Date.After(prev.Date) {
			out[e.DriverNumber] = e
		}
	}
	return out
}

func latestIntervals(events []models.IntervalEvent) map[int]models.IntervalEvent {
	out := make(map[int]models.IntervalEvent, len(events))
	for _, e := range events {
		if prev, ok := out[e.DriverNumber]; !ok || e.Date.After(prev.Date) {
			out[e.DriverNumber] = e
		}
	}
	return out
}

// maxLaps keeps the highest lap number per driver
func maxLaps(events []models.LapEvent) map[int]int {
	out := make(map[int]int, len(events))
	for _, e := range events {
		if e.LapNumber > out[e.DriverNumber] {
			out[e.DriverNumber] = e.LapNumber
		}
	}
	return out
}

func countPits(events []models.PitEvent) map[int]int {
	out := make(map[int]int)
	for _, e := range events {
		out[e.DriverNumber]++
	}
	return out
}
