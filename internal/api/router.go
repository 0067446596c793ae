// Package api exposes predictions, season reference data and live session passthrough
// as a JSON API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

// Predictor produces the live winner prediction
type Predictor interface {
	Predict(ctx context.Context, sessionKey *int) (*models.PredictionResult, error)
}

// Dashboard serves season reference data
type Dashboard interface {
	Schedule(ctx context.Context, season string) (*models.Schedule, error)
	DriverStandings(ctx context.Context) (*models.DriverStandings, error)
	ConstructorStandings(ctx context.Context) (*models.ConstructorStandings, error)
	RaceResults(ctx context.Context, season string, round int) (*models.RoundResults, error)
	PitStops(ctx context.Context, season string) (*models.PitStopSummary, error)
}

// Dependencies are the services behind the routes. Stream may be nil.
type Dependencies struct {
	Predictor Predictor
	Dashboard Dashboard
	Live      datasource.LiveSource
	Stream    http.Handler
}

// Handler serves the API routes
type Handler struct {
	deps   Dependencies
	logger *logrus.Entry
	now    func() time.Time
}

// NewRouter builds the gin engine with every route registered
func NewRouter(deps Dependencies, cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &Handler{
		deps:   deps,
		logger: logger.WithField("component", "api"),
		now:    time.Now,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.logger), corsMiddleware(cfg.Server.CORSAllowedOrigins))

	api := router.Group("/api")
	{
		api.GET("/predict", h.Predict)
		api.GET("/schedule", h.Schedule)
		api.GET("/schedule/:season", h.Schedule)
		api.GET("/standings", h.DriverStandings)
		api.GET("/constructor-standings", h.ConstructorStandings)
		api.GET("/results/:season/:round", h.RaceResults)
		api.GET("/pitstops", h.PitStops)
		api.GET("/sessions", h.Sessions)
		api.GET("/live/weather", h.Weather)
		api.GET("/live/grid", h.StartingGrid)
	}

	if deps.Stream != nil {
		router.GET("/ws/predictions", gin.WrapH(deps.Stream))
	}

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(metrics.Handler()))
	}

	return router
}

// NewServer wraps the router in an HTTP server with the configured timeouts
func NewServer(cfg *config.Config, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddress(),
		Handler:           router,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		return cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type"},
			ExposeHeaders:   []string{"Content-Length"},
			MaxAge:          12 * time.Hour,
		})
	}

	return cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	})
}

func requestLogger(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request served")
	}
}
