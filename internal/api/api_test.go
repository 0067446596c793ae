package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/models"
)

type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) Predict(ctx context.Context, sessionKey *int) (*models.PredictionResult, error) {
	args := m.Called(ctx, sessionKey)
	if v := args.Get(0); v != nil {
		return v.(*models.PredictionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDashboard struct {
	mock.Mock
}

func (m *mockDashboard) Schedule(ctx context.Context, season string) (*models.Schedule, error) {
	args := m.Called(ctx, season)
	if v := args.Get(0); v != nil {
		return v.(*models.Schedule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDashboard) DriverStandings(ctx context.Context) (*models.DriverStandings, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*models.DriverStandings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDashboard) ConstructorStandings(ctx context.Context) (*models.ConstructorStandings, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*models.ConstructorStandings), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDashboard) RaceResults(ctx context.Context, season string, round int) (*models.RoundResults, error) {
	args := m.Called(ctx, season, round)
	if v := args.Get(0); v != nil {
		return v.(*models.RoundResults), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDashboard) PitStops(ctx context.Context, season string) (*models.PitStopSummary, error) {
	args := m.Called(ctx, season)
	if v := args.Get(0); v != nil {
		return v.(*models.PitStopSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockLive struct {
	mock.Mock
}

func (m *mockLive) Sessions(ctx context.Context, year int, sessionType string) ([]models.Session, error) {
	args := m.Called(ctx, year, sessionType)
	if v := args.Get(0); v != nil {
		return v.([]models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLive) Weather(ctx context.Context, sessionKey int) ([]models.Weather, error) {
	args := m.Called(ctx, sessionKey)
	if v := args.Get(0); v != nil {
		return v.([]models.Weather), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLive) StartingGrid(ctx context.Context, sessionKey int) ([]models.GridEntry, error) {
	args := m.Called(ctx, sessionKey)
	if v := args.Get(0); v != nil {
		return v.([]models.GridEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

type testAPI struct {
	predictor *mockPredictor
	dashboard *mockDashboard
	live      *mockLive
	router    *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{
		App:     config.AppConfig{Environment: "development"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	a := &testAPI{predictor: &mockPredictor{}, dashboard: &mockDashboard{}, live: &mockLive{}}
	a.router = NewRouter(Dependencies{
		Predictor: a.predictor,
		Dashboard: a.dashboard,
		Live:      a.live,
		Stream: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	}, cfg, logger)
	return a
}

func (a *testAPI) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	a.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPredictWithSessionKey(t *testing.T) {
	a := newTestAPI(t)
	key := 9472
	a.predictor.On("Predict", mock.Anything, &key).Return(&models.PredictionResult{
		SessionKey: &key,
		Source:     models.SourceHeuristic,
		Prediction: &models.WinnerPrediction{WinnerDriverNumber: 1, Driver: "Max VERSTAPPEN", Team: "Red Bull Racing", Probability: 0.71},
		UpdatedAt:  time.Date(2024, 3, 2, 16, 0, 0, 0, time.UTC),
	}, nil)

	w := a.get("/api/predict?session_key=9472")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(9472), body["session_key"])
	assert.Equal(t, "heuristic", body["source"])
	assert.Equal(t, "2024-03-02T16:00:00Z", body["updated_at"])
	prediction := body["prediction"].(map[string]interface{})
	assert.Equal(t, "Max VERSTAPPEN", prediction["driver"])
	assert.Equal(t, 0.71, prediction["probability"])
}

func TestPredictWithoutSessionKey(t *testing.T) {
	a := newTestAPI(t)
	a.predictor.On("Predict", mock.Anything, (*int)(nil)).Return(&models.PredictionResult{
		Source:    models.SourceHeuristic,
		UpdatedAt: time.Now(),
	}, nil)

	w := a.get("/api/predict")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Nil(t, body["session_key"])
	assert.Nil(t, body["prediction"])
}

func TestPredictRejectsBadSessionKey(t *testing.T) {
	a := newTestAPI(t)
	for _, q := range []string{"abc", "-1", "0", "1.5"} {
		w := a.get("/api/predict?session_key=" + q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	a.predictor.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestScheduleDefaultsToCurrentSeason(t *testing.T) {
	a := newTestAPI(t)
	season := time.Now().Format("2006")
	a.dashboard.On("Schedule", mock.Anything, season).Return(&models.Schedule{Season: season}, nil)
	a.dashboard.On("Schedule", mock.Anything, "2023").Return(&models.Schedule{Season: "2023"}, nil)

	w := a.get("/api/schedule")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, season, decodeBody(t, w)["season"])

	w = a.get("/api/schedule/2023")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2023", decodeBody(t, w)["season"])

	w = a.get("/api/schedule/nineteen")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReferenceUpstreamFailure(t *testing.T) {
	a := newTestAPI(t)
	a.dashboard.On("DriverStandings", mock.Anything).Return(nil, errors.New("jolpica down"))
	a.dashboard.On("ConstructorStandings", mock.Anything).Return(nil, errors.New("jolpica down"))

	for _, path := range []string{"/api/standings", "/api/constructor-standings"} {
		w := a.get(path)
		require.Equal(t, http.StatusBadGateway, w.Code, path)
		assert.Equal(t, "upstream error", decodeBody(t, w)["error"])
	}
}

func TestRaceResults(t *testing.T) {
	a := newTestAPI(t)
	a.dashboard.On("RaceResults", mock.Anything, "2024", 1).Return(&models.RoundResults{Season: "2024", Round: 1, RaceName: "Bahrain Grand Prix"}, nil)
	a.dashboard.On("RaceResults", mock.Anything, "2024", 30).Return(nil,
		datasource.NewDataSourceError(datasource.JolpicaSourceName, datasource.ErrCodeNotFound, "no race", nil))

	w := a.get("/api/results/2024/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bahrain Grand Prix", decodeBody(t, w)["raceName"])

	assert.Equal(t, http.StatusNotFound, a.get("/api/results/2024/30").Code)
	assert.Equal(t, http.StatusBadRequest, a.get("/api/results/2024/zero").Code)
	assert.Equal(t, http.StatusBadRequest, a.get("/api/results/24/1").Code)
}

func TestPitStops(t *testing.T) {
	a := newTestAPI(t)
	a.dashboard.On("PitStops", mock.Anything, "2024").Return(&models.PitStopSummary{
		Fastest:  []models.FastestPitStop{{Race: "Bahrain Grand Prix", Driver: "VER", Constructor: "Red Bull", TimeMs: 2100}},
		Averages: []models.ConstructorPitAverage{{Constructor: "Red Bull", AvgMs: 2100}},
	}, nil)

	w := a.get("/api/pitstops?season=2024")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["fastest"], 1)
	assert.Len(t, body["averages"], 1)
}

func TestLiveEndpoints(t *testing.T) {
	a := newTestAPI(t)
	a.live.On("Sessions", mock.Anything, 2024, "Qualifying").Return([]models.Session{{SessionKey: 9470}}, nil)
	a.live.On("Weather", mock.Anything, 9472).Return(nil, nil)
	a.live.On("StartingGrid", mock.Anything, 9472).Return(nil, errors.New("timeout"))

	w := a.get("/api/sessions?year=2024&session_type=Qualifying")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session_key":9470`)

	w = a.get("/api/live/weather?session_key=9472")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	assert.Equal(t, http.StatusBadGateway, a.get("/api/live/grid?session_key=9472").Code)
	assert.Equal(t, http.StatusBadRequest, a.get("/api/live/grid").Code)
	assert.Equal(t, http.StatusBadRequest, a.get("/api/sessions?year=last").Code)
}

func TestStreamAndMetricsRoutes(t *testing.T) {
	a := newTestAPI(t)

	assert.Equal(t, http.StatusTeapot, a.get("/ws/predictions").Code)

	w := a.get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSHeaders(t *testing.T) {
	a := newTestAPI(t)
	a.dashboard.On("DriverStandings", mock.Anything).Return(&models.DriverStandings{Season: 2024}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/standings", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
