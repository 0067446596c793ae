package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/cache"
	"github.com/yourusername/pitwall/internal/estimator"
	"github.com/yourusername/pitwall/internal/models"
	"github.com/yourusername/pitwall/internal/snapshot"
)

var fixedNow = time.Date(2024, 3, 2, 16, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func roster() []models.Driver {
	return []models.Driver{
		{DriverNumber: 1, FullName: "Max VERSTAPPEN", NameAcronym: "VER", TeamName: "Red Bull Racing"},
		{DriverNumber: 11, FullName: "Sergio PEREZ", NameAcronym: "PER", TeamName: "Red Bull Racing"},
		{DriverNumber: 55, FullName: "Carlos SAINZ", NameAcronym: "SAI", TeamName: "Ferrari"},
	}
}

// leadSnapshot has a 2.5s lead at lap 20 with level pit counts
func leadSnapshot(gap string) *snapshot.Result {
	return &snapshot.Result{
		SessionKey: 9472,
		Roster:     roster(),
		Snapshot: models.Snapshot{
			{DriverNumber: 1, Driver: "Max VERSTAPPEN", Team: "Red Bull Racing", Position: 1, LapNumber: 20, Pits: 1},
			{DriverNumber: 11, Driver: "Sergio PEREZ", Team: "Red Bull Racing", Position: 2, GapToLeader: models.ParseGap(gap), LapNumber: 20, Pits: 1},
		},
	}
}

type fixture struct {
	resolver  *mockResolver
	builder   *mockBuilder
	external  *mockEstimator
	reference *cache.MemoryReferenceCache
	orch      *PredictionOrchestrator
}

func newFixture(t *testing.T, external estimator.Estimator) *fixture {
	t.Helper()
	f := &fixture{
		resolver:  &mockResolver{},
		builder:   &mockBuilder{},
		reference: cache.NewMemoryReferenceCache(time.Minute),
	}
	if external == nil {
		f.external = &mockEstimator{}
		external = f.external
	}
	f.orch = NewPredictionOrchestrator(
		f.resolver,
		f.builder,
		external,
		cache.NewResultCache(time.Minute),
		f.reference,
		OrchestratorConfig{PredictionTTL: 30 * time.Second, SessionTTL: time.Minute},
		quietLogger(),
	)
	f.orch.now = func() time.Time { return fixedNow }
	return f
}

func intPtr(v int) *int { return &v }

func TestPredictHeuristicFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.builder.On("Build", mock.Anything, 9472).Return(leadSnapshot("2.500"), nil)
	f.external.On("Estimate", mock.Anything, 9472, mock.Anything).Return(nil, false)

	res, err := f.orch.Predict(context.Background(), intPtr(9472))
	require.NoError(t, err)

	require.NotNil(t, res.SessionKey)
	assert.Equal(t, 9472, *res.SessionKey)
	assert.Equal(t, models.SourceHeuristic, res.Source)
	require.NotNil(t, res.Prediction)
	assert.Equal(t, 1, res.Prediction.WinnerDriverNumber)
	assert.Equal(t, "Max VERSTAPPEN", res.Prediction.Driver)
	assert.Equal(t, "Red Bull Racing", res.Prediction.Team)
	assert.InDelta(t, 0.71, res.Prediction.Probability, 1e-9)
	assert.Equal(t, fixedNow, res.UpdatedAt)
}

func TestPredictLappedSecondPlace(t *testing.T) {
	f := newFixture(t, estimator.Disabled{})
	f.builder.On("Build", mock.Anything, 9472).Return(leadSnapshot("+1 LAP"), nil)

	res, err := f.orch.Predict(context.Background(), intPtr(9472))
	require.NoError(t, err)
	require.NotNil(t, res.Prediction)
	assert.InDelta(t, 0.78, res.Prediction.Probability, 1e-9)
}

func TestPredictExternalClamped(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		want float64
	}{
		{name: "above ceiling", raw: 1.4, want: ExternalCeiling},
		{name: "below floor", raw: 0.1, want: ExternalFloor},
		{name: "between heuristic and external ceiling", raw: 0.97, want: 0.97},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.builder.On("Build", mock.Anything, 9472).Return(leadSnapshot("2.500"), nil)
			f.external.On("Estimate", mock.Anything, 9472, mock.Anything).
				Return(&models.Estimate{WinnerDriverNumber: 55, Probability: tt.raw}, true)

			res, err := f.orch.Predict(context.Background(), intPtr(9472))
			require.NoError(t, err)
			assert.Equal(t, models.SourceExternal, res.Source)
			require.NotNil(t, res.Prediction)
			assert.Equal(t, 55, res.Prediction.WinnerDriverNumber)
			assert.Equal(t, "Ferrari", res.Prediction.Team)
			assert.Equal(t, tt.want, res.Prediction.Probability)
		})
	}
}

func TestPredictExternalWinnerNotInRoster(t *testing.T) {
	f := newFixture(t, nil)
	f.builder.On("Build", mock.Anything, 9472).Return(leadSnapshot("2.500"), nil)
	f.external.On("Estimate", mock.Anything, 9472, mock.Anything).
		Return(&models.Estimate{WinnerDriverNumber: 99, Probability: 0.8}, true)

	res, err := f.orch.Predict(context.Background(), intPtr(9472))
	require.NoError(t, err)
	assert.Equal(t, models.SourceExternal, res.Source)
	assert.Nil(t, res.Prediction)
	assert.Equal(t, 9472, *res.SessionKey)
}

func TestPredictSnapshotFailureIsCached(t *testing.T) {
	f := newFixture(t, estimator.Disabled{})
	f.builder.On("Build", mock.Anything, 9472).Return(nil, models.ErrNoSessionData).Once()

	for i := 0; i < 2; i++ {
		res, err := f.orch.Predict(context.Background(), intPtr(9472))
		require.NoError(t, err)
		assert.Equal(t, models.SourceHeuristic, res.Source)
		assert.Nil(t, res.Prediction)
		require.NotNil(t, res.SessionKey)
	}
	f.builder.AssertNumberOfCalls(t, "Build", 1)
}

func TestPredictEmptySnapshot(t *testing.T) {
	f := newFixture(t, estimator.Disabled{})
	f.builder.On("Build", mock.Anything, 9472).Return(&snapshot.Result{SessionKey: 9472, Roster: roster()}, nil)

	res, err := f.orch.Predict(context.Background(), intPtr(9472))
	require.NoError(t, err)
	assert.Nil(t, res.Prediction)
	assert.Equal(t, models.SourceHeuristic, res.Source)
}

func TestPredictResolvesAndCachesLatestSession(t *testing.T) {
	f := newFixture(t, estimator.Disabled{})
	f.resolver.On("LatestRaceSessionKey", mock.Anything, fixedNow).Return(9480, true, nil).Once()
	f.builder.On("Build", mock.Anything, 9480).Return(leadSnapshot("0.4"), nil).Once()

	for i := 0; i < 3; i++ {
		res, err := f.orch.Predict(context.Background(), nil)
		require.NoError(t, err)
		require.NotNil(t, res.SessionKey)
		assert.Equal(t, 9480, *res.SessionKey)
	}

	var cached int
	found, err := f.reference.Get(context.Background(), latestSessionCacheKey(2024), &cached)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 9480, cached)

	f.resolver.AssertExpectations(t)
	f.builder.AssertExpectations(t)
}

func TestPredictNoSessionIsNotCached(t *testing.T) {
	f := newFixture(t, estimator.Disabled{})
	f.resolver.On("LatestRaceSessionKey", mock.Anything, fixedNow).Return(0, false, nil)

	for i := 0; i < 2; i++ {
		res, err := f.orch.Predict(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, res.SessionKey)
		assert.Nil(t, res.Prediction)
		assert.Equal(t, models.SourceHeuristic, res.Source)
	}
	f.resolver.AssertNumberOfCalls(t, "LatestRaceSessionKey", 2)
	f.builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything)
}

func TestPredictResolverErrorIsEmptyResult(t *testing.T) {
	f := newFixture(t, estimator.Disabled{})
	f.resolver.On("LatestRaceSessionKey", mock.Anything, fixedNow).Return(0, false, errors.New("openf1 down"))

	res, err := f.orch.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, res.SessionKey)
	assert.Nil(t, res.Prediction)
}

func TestPredictPublishesFreshResultsOnly(t *testing.T) {
	f := newFixture(t, estimator.Disabled{})
	f.builder.On("Build", mock.Anything, 9472).Return(leadSnapshot("2.500"), nil)

	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.AnythingOfType("*models.PredictionResult")).Return(errors.New("no subscribers"))
	f.orch.SetPublisher(pub)

	first, err := f.orch.Predict(context.Background(), intPtr(9472))
	require.NoError(t, err)
	second, err := f.orch.Predict(context.Background(), intPtr(9472))
	require.NoError(t, err)

	assert.Same(t, first, second)
	pub.AssertNumberOfCalls(t, "Publish", 1)
	published := pub.Calls[0].Arguments.Get(1).(*models.PredictionResult)
	assert.Same(t, first, published)
}
