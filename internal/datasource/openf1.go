package datasource

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/yourusername/pitwall/internal/models"
)

// OpenF1SourceName identifies the OpenF1 provider in errors, logs and metrics
const OpenF1SourceName = "openf1"

// OpenF1Client implements the live telemetry sources against api.openf1.org
type OpenF1Client struct {
	rest restClient
}

// NewOpenF1Client creates a new OpenF1 API client
func NewOpenF1Client(httpClient *RateLimitedHTTPClient, baseURL, apiToken string) *OpenF1Client {
	return &OpenF1Client{
		rest: newRESTClient(httpClient, OpenF1SourceName, baseURL, apiToken),
	}
}

// Name returns the data source name
func (c *OpenF1Client) Name() string {
	return OpenF1SourceName
}

func sessionQuery(sessionKey int) url.Values {
	return url.Values{"session_key": {strconv.Itoa(sessionKey)}}
}

// Sessions lists sessions of a year, optionally filtered by type
func (c *OpenF1Client) Sessions(ctx context.Context, year int, sessionType string) ([]models.Session, error) {
	q := url.Values{"year": {strconv.Itoa(year)}}
	if sessionType != "" {
		q.Set("session_type", sessionType)
	}
	var out []models.Session
	if err := c.rest.getJSON(ctx, "/v1/sessions", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestRaceSessionKey returns the race session of now's year with the latest start not after now
func (c *OpenF1Client) LatestRaceSessionKey(ctx context.Context, now time.Time) (int, bool, error) {
	sessions, err := c.Sessions(ctx, now.Year(), models.SessionTypeRace)
	if err != nil {
		return 0, false, err
	}
	key, ok := latestStartedSession(sessions, now)
	return key, ok, nil
}

func latestStartedSession(sessions []models.Session, now time.Time) (int, bool) {
	started := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.DateStart.IsZero() && !s.DateStart.After(now) {
			started = append(started, s)
		}
	}
	if len(started) == 0 {
		return 0, false
	}
	sort.SliceStable(started, func(i, j int) bool {
		return started[i].DateStart.After(started[j].DateStart)
	})
	return started[0].SessionKey, true
}

// Drivers returns the session roster
func (c *OpenF1Client) Drivers(ctx context.Context, sessionKey int) ([]models.Driver, error) {
	var out []models.Driver
	if err := c.rest.getJSON(ctx, "/v1/drivers", sessionQuery(sessionKey), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Positions returns every running-order update of the session
func (c *OpenF1Client) Positions(ctx context.Context, sessionKey int) ([]models.PositionEvent, error) {
	var out []models.PositionEvent
	if err := c.rest.getJSON(ctx, "/v1/position", sessionQuery(sessionKey), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Intervals returns every gap update of the session
func (c *OpenF1Client) Intervals(ctx context.Context, sessionKey int) ([]models.IntervalEvent, error) {
	var out []models.IntervalEvent
	if err := c.rest.getJSON(ctx, "/v1/intervals", sessionQuery(sessionKey), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Laps returns every lap record of the session
func (c *OpenF1Client) Laps(ctx context.Context, sessionKey int) ([]models.LapEvent, error) {
	var out []models.LapEvent
	if err := c.rest.getJSON(ctx, "/v1/laps", sessionQuery(sessionKey), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Pits returns every pit lane visit of the session
func (c *OpenF1Client) Pits(ctx context.Context, sessionKey int) ([]models.PitEvent, error) {
	var out []models.PitEvent
	if err := c.rest.getJSON(ctx, "/v1/pit", sessionQuery(sessionKey), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartingGrid returns the starting grid of the session
func (c *OpenF1Client) StartingGrid(ctx context.Context, sessionKey int) ([]models.GridEntry, error) {
	var out []models.GridEntry
	if err := c.rest.getJSON(ctx, "/v1/starting_grid", sessionQuery(sessionKey), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Weather returns the weather samples of the session
func (c *OpenF1Client) Weather(ctx context.Context, sessionKey int) ([]models.Weather, error) {
	var out []models.Weather
	if err := c.rest.getJSON(ctx, "/v1/weather", sessionQuery(sessionKey), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks that the sessions endpoint answers
func (c *OpenF1Client) Ping(ctx context.Context) error {
	var out []models.Session
	return c.rest.getJSON(ctx, "/v1/sessions", url.Values{"session_key": {"latest"}}, &out)
}

// Close releases idle upstream connections
func (c *OpenF1Client) Close() error {
	return c.rest.http.Close()
}
