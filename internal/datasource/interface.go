package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/pitwall/internal/models"
)

// Feed names used in logs and metrics
const (
	FeedDrivers   = "drivers"
	FeedPositions = "position"
	FeedIntervals = "intervals"
	FeedLaps      = "laps"
	FeedPits      = "pit"
)

// TelemetrySource fetches the per-session live feeds a snapshot is built from
type TelemetrySource interface {
	Drivers(ctx context.Context, sessionKey int) ([]models.Driver, error)
	Positions(ctx context.Context, sessionKey int) ([]models.PositionEvent, error)
	Intervals(ctx context.Context, sessionKey int) ([]models.IntervalEvent, error)
	Laps(ctx context.Context, sessionKey int) ([]models.LapEvent, error)
	Pits(ctx context.Context, sessionKey int) ([]models.PitEvent, error)
}

// SessionResolver finds the most recent race session that has already started.
// ok is false when no such session exists.
type SessionResolver interface {
	LatestRaceSessionKey(ctx context.Context, now time.Time) (key int, ok bool, err error)
}

// LiveSource serves the session listing and live passthrough endpoints
type LiveSource interface {
	Sessions(ctx context.Context, year int, sessionType string) ([]models.Session, error)
	Weather(ctx context.Context, sessionKey int) ([]models.Weather, error)
	StartingGrid(ctx context.Context, sessionKey int) ([]models.GridEntry, error)
}

// ReferenceSource fetches season reference data
type ReferenceSource interface {
	Schedule(ctx context.Context, season string) (*models.Schedule, error)
	DriverStandings(ctx context.Context) (*models.DriverStandings, error)
	ConstructorStandings(ctx context.Context) (*models.ConstructorStandings, error)
	RaceResults(ctx context.Context, season string, round int) (*models.RoundResults, error)
	SprintResults(ctx context.Context, season string, round int) ([]models.ClassifiedResult, error)
	QualifyingResults(ctx context.Context, season string, round int) ([]models.QualifyingResult, error)
	SeasonRounds(ctx context.Context, season string) ([]int, error)
	PitStops(ctx context.Context, season string, round int) (*models.RacePitStops, error)
}

// Pinger checks upstream reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap returns the underlying error
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is a not_found data source error
func IsNotFound(err error) bool {
	var dsErr DataSourceError
	return errors.As(err, &dsErr) && dsErr.Code == ErrCodeNotFound
}
