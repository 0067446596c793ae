package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/pitwall/internal/models"
	"github.com/yourusername/pitwall/internal/snapshot"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) LatestRaceSessionKey(ctx context.Context, now time.Time) (int, bool, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Bool(1), args.Error(2)
}

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) Build(ctx context.Context, sessionKey int) (*snapshot.Result, error) {
	args := m.Called(ctx, sessionKey)
	if res := args.Get(0); res != nil {
		return res.(*snapshot.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEstimator struct {
	mock.Mock
}

func (m *mockEstimator) Name() string { return "mock" }

func (m *mockEstimator) Estimate(ctx context.Context, sessionKey int, snap models.Snapshot) (*models.Estimate, bool) {
	args := m.Called(ctx, sessionKey, snap)
	if est := args.Get(0); est != nil {
		return est.(*models.Estimate), args.Bool(1)
	}
	return nil, args.Bool(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, result *models.PredictionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

type mockReferenceSource struct {
	mock.Mock
}

func (m *mockReferenceSource) Schedule(ctx context.Context, season string) (*models.Schedule, error) {
	args := m.Called(ctx, season)
	if v := args.Get(0); v != nil {
		return v.(*models.Schedule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReferenceSource) DriverStandings(ctx context.Context) (*models.DriverStandings, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*models.DriverStandings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReferenceSource) ConstructorStandings(ctx context.Context) (*models.ConstructorStandings, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*models.ConstructorStandings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReferenceSource) RaceResults(ctx context.Context, season string, round int) (*models.RoundResults, error) {
	args := m.Called(ctx, season, round)
	if v := args.Get(0); v != nil {
		return v.(*models.RoundResults), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReferenceSource) SprintResults(ctx context.Context, season string, round int) ([]models.ClassifiedResult, error) {
	args := m.Called(ctx, season, round)
	if v := args.Get(0); v != nil {
		return v.([]models.ClassifiedResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReferenceSource) QualifyingResults(ctx context.Context, season string, round int) ([]models.QualifyingResult, error) {
	args := m.Called(ctx, season, round)
	if v := args.Get(0); v != nil {
		return v.([]models.QualifyingResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReferenceSource) SeasonRounds(ctx context.Context, season string) ([]int, error) {
	args := m.Called(ctx, season)
	if v := args.Get(0); v != nil {
		return v.([]int), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReferenceSource) PitStops(ctx context.Context, season string, round int) (*models.RacePitStops, error) {
	args := m.Called(ctx, season, round)
	if v := args.Get(0); v != nil {
		return v.(*models.RacePitStops), args.Error(1)
	}
	return nil, args.Error(1)
}
