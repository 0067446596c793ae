package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/cache"
	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/models"
)

func newDashboard(source *mockReferenceSource) *DashboardService {
	return NewDashboardService(source, cache.NewMemoryReferenceCache(time.Minute), time.Minute, quietLogger())
}

func notFound() error {
	return datasource.NewDataSourceError(datasource.JolpicaSourceName, datasource.ErrCodeNotFound, "no data", nil)
}

func bahrainResults() *models.RoundResults {
	return &models.RoundResults{
		Season:   "2024",
		Round:    1,
		RaceName: "Bahrain Grand Prix",
		Results: []models.ClassifiedResult{
			{Position: 1, Driver: "Max Verstappen", DriverID: "max_verstappen", Code: "VER", Constructor: "Red Bull"},
			{Position: 2, Driver: "Sergio Pérez", DriverID: "perez", Code: "PER", Constructor: "Red Bull"},
			{Position: 3, Driver: "Carlos Sainz", DriverID: "sainz", Constructor: "Ferrari"},
		},
	}
}

func TestDashboardScheduleIsCached(t *testing.T) {
	source := &mockReferenceSource{}
	source.On("Schedule", mock.Anything, "2024").Return(&models.Schedule{
		Season: "2024",
		Races:  []models.ScheduledRace{{Season: "2024", Round: 1, Name: "Bahrain Grand Prix", Status: models.RaceStatusCompleted}},
	}, nil).Once()
	d := newDashboard(source)

	for i := 0; i < 3; i++ {
		schedule, err := d.Schedule(context.Background(), "2024")
		require.NoError(t, err)
		require.Len(t, schedule.Races, 1)
		assert.Equal(t, "Bahrain Grand Prix", schedule.Races[0].Name)
	}
	source.AssertExpectations(t)
}

func TestDashboardUpstreamErrorNotCached(t *testing.T) {
	source := &mockReferenceSource{}
	source.On("DriverStandings", mock.Anything).Return(nil, errors.New("jolpica down")).Once()
	source.On("DriverStandings", mock.Anything).Return(&models.DriverStandings{Season: 2024}, nil).Once()
	d := newDashboard(source)

	_, err := d.DriverStandings(context.Background())
	assert.Error(t, err)

	standings, err := d.DriverStandings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2024, standings.Season)
}

func TestDashboardRaceResultsOptionalSessions(t *testing.T) {
	source := &mockReferenceSource{}
	source.On("RaceResults", mock.Anything, "2024", 1).Return(bahrainResults(), nil)
	source.On("SprintResults", mock.Anything, "2024", 1).Return(nil, notFound())
	source.On("QualifyingResults", mock.Anything, "2024", 1).Return([]models.QualifyingResult{
		{Position: 1, Driver: "Max Verstappen", DriverID: "max_verstappen"},
	}, nil)
	d := newDashboard(source)

	results, err := d.RaceResults(context.Background(), "2024", 1)
	require.NoError(t, err)
	assert.Len(t, results.Results, 3)
	assert.Empty(t, results.Sprint)
	require.Len(t, results.Qualifying, 1)
	assert.Equal(t, "max_verstappen", results.Qualifying[0].DriverID)
}

func TestDashboardRaceResultsRequiresRace(t *testing.T) {
	source := &mockReferenceSource{}
	source.On("RaceResults", mock.Anything, "2024", 30).Return(nil, notFound())
	d := newDashboard(source)

	_, err := d.RaceResults(context.Background(), "2024", 30)
	require.Error(t, err)
	assert.True(t, datasource.IsNotFound(err))
	source.AssertNotCalled(t, "SprintResults", mock.Anything, mock.Anything, mock.Anything)
}

func TestFastestStop(t *testing.T) {
	stops := &models.RacePitStops{
		Round:    1,
		RaceName: "Bahrain Grand Prix",
		Stops: []models.PitStop{
			{DriverID: "perez", Duration: "23.104"},
			{DriverID: "sainz", Duration: "22.9995"},
			{DriverID: "max_verstappen", Duration: "22.9995"},
			{DriverID: "unclassified", Duration: "19.000"},
			{DriverID: "perez", Duration: "1:02.114"},
		},
	}

	best := FastestStop(1, stops, bahrainResults())
	require.NotNil(t, best)
	assert.Equal(t, "Bahrain Grand Prix", best.Race)
	assert.Equal(t, "Carlos Sainz", best.Driver)
	assert.Equal(t, "Ferrari", best.Constructor)
	assert.Equal(t, int64(23000), best.TimeMs)

	assert.Nil(t, FastestStop(1, &models.RacePitStops{}, bahrainResults()))
	assert.Nil(t, FastestStop(1, nil, bahrainResults()))

	unnamed := FastestStop(4, &models.RacePitStops{Stops: []models.PitStop{{DriverID: "perez", Duration: "2.4"}}}, bahrainResults())
	require.NotNil(t, unnamed)
	assert.Equal(t, "Round 4", unnamed.Race)
	assert.Equal(t, "PER", unnamed.Driver)
	assert.Equal(t, int64(2400), unnamed.TimeMs)
}

func TestConstructorAverages(t *testing.T) {
	averages := ConstructorAverages([]models.FastestPitStop{
		{Constructor: "McLaren", TimeMs: 2001},
		{Constructor: "Red Bull", TimeMs: 1900},
		{Constructor: "McLaren", TimeMs: 2002},
	})

	require.Len(t, averages, 2)
	assert.Equal(t, models.ConstructorPitAverage{Constructor: "McLaren", AvgMs: 2002}, averages[0])
	assert.Equal(t, models.ConstructorPitAverage{Constructor: "Red Bull", AvgMs: 1900}, averages[1])
	assert.Empty(t, ConstructorAverages(nil))
}

func TestDashboardPitStopsSkipsFailedRounds(t *testing.T) {
	source := &mockReferenceSource{}
	source.On("SeasonRounds", mock.Anything, "2024").Return([]int{1, 2, 3}, nil)

	source.On("PitStops", mock.Anything, "2024", 1).Return(&models.RacePitStops{
		Round: 1, RaceName: "Bahrain Grand Prix",
		Stops: []models.PitStop{{DriverID: "perez", Duration: "2.1"}},
	}, nil)
	source.On("RaceResults", mock.Anything, "2024", 1).Return(bahrainResults(), nil)

	source.On("PitStops", mock.Anything, "2024", 2).Return(nil, errors.New("timeout"))
	source.On("RaceResults", mock.Anything, "2024", 2).Return(bahrainResults(), nil)

	source.On("PitStops", mock.Anything, "2024", 3).Return(&models.RacePitStops{
		Round: 3, RaceName: "Australian Grand Prix",
		Stops: []models.PitStop{{DriverID: "sainz", Duration: "2.5"}},
	}, nil)
	source.On("RaceResults", mock.Anything, "2024", 3).Return(bahrainResults(), nil)

	d := newDashboard(source)
	summary, err := d.PitStops(context.Background(), "2024")
	require.NoError(t, err)

	require.Len(t, summary.Fastest, 2)
	assert.Equal(t, "Bahrain Grand Prix", summary.Fastest[0].Race)
	assert.Equal(t, "Australian Grand Prix", summary.Fastest[1].Race)
	assert.Equal(t, []models.ConstructorPitAverage{
		{Constructor: "Red Bull", AvgMs: 2100},
		{Constructor: "Ferrari", AvgMs: 2500},
	}, summary.Averages)
}

func TestDashboardPitStopsListingFailure(t *testing.T) {
	source := &mockReferenceSource{}
	source.On("SeasonRounds", mock.Anything, "2024").Return(nil, errors.New("jolpica down"))
	d := newDashboard(source)

	_, err := d.PitStops(context.Background(), "2024")
	assert.Error(t, err)
}

func TestDashboardRefreshReloads(t *testing.T) {
	source := &mockReferenceSource{}
	source.On("Schedule", mock.Anything, "2024").Return(&models.Schedule{Season: "2024"}, nil).Twice()
	source.On("DriverStandings", mock.Anything).Return(&models.DriverStandings{Season: 2024}, nil).Twice()
	source.On("ConstructorStandings", mock.Anything).Return(nil, errors.New("jolpica down"))
	d := newDashboard(source)

	_, err := d.Schedule(context.Background(), "2024")
	require.NoError(t, err)
	_, err = d.DriverStandings(context.Background())
	require.NoError(t, err)

	err = d.Refresh(context.Background(), "2024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constructor standings")

	source.AssertNumberOfCalls(t, "Schedule", 2)
	source.AssertNumberOfCalls(t, "DriverStandings", 2)
}
