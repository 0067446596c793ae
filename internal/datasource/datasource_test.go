package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/models"
)

func testHTTPClient(provider string) *RateLimitedHTTPClient {
	cfg := DefaultHTTPClientConfig()
	cfg.Provider = provider
	cfg.MaxRetries = 0
	cfg.RateLimit = 1000
	cfg.Timeout = 2 * time.Second
	cfg.CircuitBreakerMax = 2
	return NewRateLimitedHTTPClient(cfg, nil)
}

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenF1DriversSendsSessionAndToken(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("session_key")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[{"driver_number":1,"full_name":"Max VERSTAPPEN","name_acronym":"VER","team_name":"Red Bull Racing"}]`))
	}))
	defer srv.Close()

	client := NewOpenF1Client(testHTTPClient(OpenF1SourceName), srv.URL, "secret")
	drivers, err := client.Drivers(context.Background(), 9472)

	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, "9472", gotQuery)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "Red Bull Racing", drivers[0].TeamName)
}

func TestOpenF1IntervalsDecodeMixedGaps(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/v1/intervals": `[
			{"driver_number":1,"gap_to_leader":null,"interval":null,"date":"2024-03-02T15:10:00+00:00"},
			{"driver_number":11,"gap_to_leader":3.412,"interval":3.412,"date":"2024-03-02T15:10:01.250000+00:00"},
			{"driver_number":2,"gap_to_leader":"+1 LAP","interval":"+0.512","date":"2024-03-02T15:10:02+00:00"}
		]`,
	})

	client := NewOpenF1Client(testHTTPClient(OpenF1SourceName), srv.URL, "")
	intervals, err := client.Intervals(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, intervals, 3)
	assert.False(t, intervals[0].GapToLeader.IsKnown())
	assert.Equal(t, models.GapSeconds, intervals[1].GapToLeader.Kind)
	assert.Equal(t, models.GapLapsBehind, intervals[2].GapToLeader.Kind)
	assert.Equal(t, 250*time.Millisecond, time.Duration(intervals[1].Date.Nanosecond()))
}

func TestLatestRaceSessionKey(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/v1/sessions": `[
			{"session_key":9472,"session_type":"Race","date_start":"2024-03-02T15:00:00+00:00"},
			{"session_key":9480,"session_type":"Race","date_start":"2024-03-09T17:00:00+00:00"},
			{"session_key":9488,"session_type":"Race","date_start":"2024-03-24T04:00:00+00:00"}
		]`,
	})
	client := NewOpenF1Client(testHTTPClient(OpenF1SourceName), srv.URL, "")

	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	key, ok, err := client.LatestRaceSessionKey(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 9480, key)

	before := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, ok, err = client.LatestRaceSessionKey(context.Background(), before)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotFoundIsDataSourceError(t *testing.T) {
	srv := newTestServer(t, map[string]string{})
	client := NewOpenF1Client(testHTTPClient(OpenF1SourceName), srv.URL, "")

	_, err := client.Pits(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var dsErr DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, OpenF1SourceName, dsErr.Source)
}

func TestInvalidJSONIsInvalidData(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/v1/laps": `{"detail":"no results"`})
	client := NewOpenF1Client(testHTTPClient(OpenF1SourceName), srv.URL, "")

	_, err := client.Laps(context.Background(), 1)
	var dsErr DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, ErrCodeInvalidData, dsErr.Code)
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	var hits atomic.Int32
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	httpClient := testHTTPClient(OpenF1SourceName)
	client := NewOpenF1Client(httpClient, srv.URL, "")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Positions(ctx, 1)
		require.Error(t, err)
	}
	assert.True(t, httpClient.IsOpen())

	_, err := client.Positions(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, int32(2), hits.Load())

	healthy.Store(true)
	later := time.Now().Add(time.Minute)
	httpClient.mu.Lock()
	httpClient.now = func() time.Time { return later }
	httpClient.mu.Unlock()

	_, err = client.Positions(ctx, 1)
	require.NoError(t, err)
	assert.False(t, httpClient.IsOpen())
}

func TestJolpicaSchedule(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/ergast/f1/2024.json": `{"MRData":{"RaceTable":{"season":"2024","Races":[
			{"season":"2024","round":"1","raceName":"Bahrain Grand Prix","Circuit":{"circuitName":"Bahrain International Circuit","Location":{"locality":"Sakhir","country":"Bahrain"}},"date":"2024-03-02","time":"15:00:00Z"},
			{"season":"2024","round":"2","raceName":"Saudi Arabian Grand Prix","Circuit":{"circuitName":"Jeddah Corniche Circuit","Location":{"locality":"Jeddah","country":"Saudi Arabia"}},"date":"2024-03-09"}
		]}}}`,
	})
	client := NewJolpicaClient(testHTTPClient(JolpicaSourceName), srv.URL)
	client.now = func() time.Time { return time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) }

	schedule, err := client.Schedule(context.Background(), "2024")
	require.NoError(t, err)
	require.Len(t, schedule.Races, 2)

	assert.Equal(t, "2024", schedule.Season)
	assert.Equal(t, "Sakhir, Bahrain", schedule.Races[0].Location)
	assert.Equal(t, models.RaceStatusCompleted, schedule.Races[0].Status)
	assert.Equal(t, models.RaceStatusUpcoming, schedule.Races[1].Status)
	assert.Nil(t, schedule.Races[1].Time)
}

func TestJolpicaDriverStandings(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/ergast/f1/current/driverStandings.json": `{"MRData":{"StandingsTable":{"season":"2024","StandingsLists":[{"DriverStandings":[
			{"position":"1","points":"51","wins":"2","Driver":{"givenName":"Max","familyName":"Verstappen","code":"VER"},"Constructors":[{"name":"Red Bull"}]},
			{"position":"2","points":"33.5","wins":"0","Driver":{"givenName":"Sergio","familyName":"Pérez"},"Constructors":[]}
		]}]}}}`,
	})
	client := NewJolpicaClient(testHTTPClient(JolpicaSourceName), srv.URL)

	standings, err := client.DriverStandings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2024, standings.Season)
	require.Len(t, standings.Drivers, 2)
	assert.Equal(t, "Max Verstappen", standings.Drivers[0].Driver)
	assert.Equal(t, "Red Bull", standings.Drivers[0].Constructor)
	assert.Equal(t, 33.5, standings.Drivers[1].Points)
	assert.Equal(t, "", standings.Drivers[1].Constructor)
}

func TestJolpicaRaceResults(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/ergast/f1/2024/1/results.json": `{"MRData":{"RaceTable":{"Races":[{"season":"2024","round":"1","raceName":"Bahrain Grand Prix","Circuit":{"circuitName":"Bahrain International Circuit"},"date":"2024-03-02","time":"15:00:00Z","Results":[
			{"position":"1","points":"26","grid":"1","laps":"57","status":"Finished","Driver":{"driverId":"max_verstappen","permanentNumber":"33","code":"VER","givenName":"Max","familyName":"Verstappen"},"Constructor":{"name":"Red Bull"},"Time":{"time":"1:31:44.742"},"FastestLap":{"rank":"1","lap":"39","Time":{"time":"1:32.608"},"AverageSpeed":{"units":"kph","speed":"210.383"}}}
		]}]}}}`,
	})
	client := NewJolpicaClient(testHTTPClient(JolpicaSourceName), srv.URL)

	results, err := client.RaceResults(context.Background(), "2024", 1)
	require.NoError(t, err)
	require.Len(t, results.Results, 1)

	first := results.Results[0]
	assert.Equal(t, "Bahrain Grand Prix", results.RaceName)
	require.NotNil(t, first.DriverNumber)
	assert.Equal(t, 33, *first.DriverNumber)
	require.NotNil(t, first.FastestLap)
	assert.Equal(t, "210.383 kph", *first.FastestLap.AverageSpeed)

	sprint, err := client.SprintResults(context.Background(), "2024", 1)
	assert.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Empty(t, sprint)
}

func TestJolpicaPitStopsAndRounds(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/ergast/f1/2024/results.json": `{"MRData":{"RaceTable":{"Races":[{"round":"1"},{"round":"1"},{"round":"2"}]}}}`,
		"/ergast/f1/2024/2/pitstops.json": `{"MRData":{"RaceTable":{"Races":[{"raceName":"Saudi Arabian Grand Prix","PitStops":[
			{"driverId":"norris","lap":"7","stop":"1","duration":"21.504"}
		]}]}}}`,
	})
	client := NewJolpicaClient(testHTTPClient(JolpicaSourceName), srv.URL)

	rounds, err := client.SeasonRounds(context.Background(), "2024")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, rounds)

	stops, err := client.PitStops(context.Background(), "2024", 2)
	require.NoError(t, err)
	assert.Equal(t, "Saudi Arabian Grand Prix", stops.RaceName)
	require.Len(t, stops.Stops, 1)
	assert.Equal(t, "21.504", stops.Stops[0].Duration)
}
