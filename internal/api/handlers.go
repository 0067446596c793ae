package api

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/models"
)

var seasonPattern = regexp.MustCompile(`^(current|\d{4})$`)

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// upstreamError maps a reference or live data failure to a response
func (h *Handler) upstreamError(c *gin.Context, err error) {
	if datasource.IsNotFound(err) {
		errorResponse(c, http.StatusNotFound, "not found")
		return
	}
	h.logger.WithError(err).WithField("path", c.FullPath()).Warn("Upstream request failed")
	errorResponse(c, http.StatusBadGateway, "upstream error")
}

// positiveIntQuery parses an optional positive integer query parameter
func positiveIntQuery(c *gin.Context, name string) (*int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return nil, errors.New("invalid " + name)
	}
	return &v, nil
}

func (h *Handler) currentSeason() string {
	return strconv.Itoa(h.now().Year())
}

func (h *Handler) seasonParam(c *gin.Context, value string) (string, bool) {
	if value == "" {
		return h.currentSeason(), true
	}
	if !seasonPattern.MatchString(value) {
		errorResponse(c, http.StatusBadRequest, "invalid season")
		return "", false
	}
	return value, true
}

// Predict handles GET /api/predict
func (h *Handler) Predict(c *gin.Context) {
	sessionKey, err := positiveIntQuery(c, "session_key")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.deps.Predictor.Predict(c.Request.Context(), sessionKey)
	if err != nil {
		errorResponse(c, http.StatusServiceUnavailable, "prediction unavailable")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Schedule handles GET /api/schedule and /api/schedule/:season
func (h *Handler) Schedule(c *gin.Context) {
	season, ok := h.seasonParam(c, c.Param("season"))
	if !ok {
		return
	}

	schedule, err := h.deps.Dashboard.Schedule(c.Request.Context(), season)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// DriverStandings handles GET /api/standings
func (h *Handler) DriverStandings(c *gin.Context) {
	standings, err := h.deps.Dashboard.DriverStandings(c.Request.Context())
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, standings)
}

// ConstructorStandings handles GET /api/constructor-standings
func (h *Handler) ConstructorStandings(c *gin.Context) {
	standings, err := h.deps.Dashboard.ConstructorStandings(c.Request.Context())
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, standings)
}

// RaceResults handles GET /api/results/:season/:round
func (h *Handler) RaceResults(c *gin.Context) {
	season, ok := h.seasonParam(c, c.Param("season"))
	if !ok {
		return
	}
	round, err := strconv.Atoi(c.Param("round"))
	if err != nil || round <= 0 {
		errorResponse(c, http.StatusBadRequest, "invalid round")
		return
	}

	results, err := h.deps.Dashboard.RaceResults(c.Request.Context(), season, round)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// PitStops handles GET /api/pitstops
func (h *Handler) PitStops(c *gin.Context) {
	season, ok := h.seasonParam(c, c.Query("season"))
	if !ok {
		return
	}

	summary, err := h.deps.Dashboard.PitStops(c.Request.Context(), season)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Sessions handles GET /api/sessions
func (h *Handler) Sessions(c *gin.Context) {
	year, err := positiveIntQuery(c, "year")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	y := h.now().Year()
	if year != nil {
		y = *year
	}
	sessionType := c.DefaultQuery("session_type", models.SessionTypeRace)

	sessions, err := h.deps.Live.Sessions(c.Request.Context(), y, sessionType)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) requiredSessionKey(c *gin.Context) (int, bool) {
	key, err := positiveIntQuery(c, "session_key")
	if err != nil || key == nil {
		errorResponse(c, http.StatusBadRequest, "session_key is required")
		return 0, false
	}
	return *key, true
}

// Weather handles GET /api/live/weather
func (h *Handler) Weather(c *gin.Context) {
	key, ok := h.requiredSessionKey(c)
	if !ok {
		return
	}

	weather, err := h.deps.Live.Weather(c.Request.Context(), key)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	if weather == nil {
		weather = []models.Weather{}
	}
	c.JSON(http.StatusOK, weather)
}

// StartingGrid handles GET /api/live/grid
func (h *Handler) StartingGrid(c *gin.Context) {
	key, ok := h.requiredSessionKey(c)
	if !ok {
		return
	}

	grid, err := h.deps.Live.StartingGrid(c.Request.Context(), key)
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	if grid == nil {
		grid = []models.GridEntry{}
	}
	c.JSON(http.StatusOK, grid)
}
