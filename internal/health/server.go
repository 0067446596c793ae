// Package health serves the liveness and readiness probes of the API process.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPort         = "8081"
	defaultCheckTimeout = 3 * time.Second

	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"
	StatusError    = "error"
)

// Pinger checks connectivity to one upstream.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UpstreamStatus is the outcome of one readiness ping.
type UpstreamStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// ReadyResponse is the body of /ready.
type ReadyResponse struct {
	Status    string           `json:"status"`
	Upstreams []UpstreamStatus `json:"upstreams"`
}

// Config holds the configuration for the probe server.
type Config struct {
	Port string
	// Upstreams are pinged by /ready, keyed by the name reported in the response
	Upstreams    map[string]Pinger
	CheckTimeout time.Duration
	Logger       *logrus.Logger
}

// Server answers /live and /ready on its own listener so probes keep working while the
// API drains. An unreachable upstream degrades readiness without failing it, because
// predictions fall back to the heuristic and reference data to its cache.
type Server struct {
	port         string
	upstreams    map[string]Pinger
	checkTimeout time.Duration
	logger       *logrus.Entry
	ready        atomic.Bool
	server       *http.Server
}

// NewServer creates a probe server. It reports not ready until SetReady(true).
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = defaultPort
	}
	timeout := cfg.CheckTimeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Server{
		port:         port,
		upstreams:    cfg.Upstreams,
		checkTimeout: timeout,
		logger:       log.WithField("component", "health"),
	}
}

// SetReady flips the lifecycle flag reported by /ready.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the probe routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/ready", s.handleReady)
	return mux
}

// Start listens in the background until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.checkTimeout + 5*time.Second,
	}

	go func() {
		s.logger.WithField("port", s.port).Info("Probe server starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Probe server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	return nil
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": StatusOK})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: StatusOK, Upstreams: s.pingUpstreams(r.Context())}
	for _, u := range resp.Upstreams {
		if u.Status != StatusOK {
			resp.Status = StatusDegraded
		}
	}

	code := http.StatusOK
	if !s.ready.Load() {
		resp.Status = StatusNotReady
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// pingUpstreams pings every upstream concurrently, sorted by name
func (s *Server) pingUpstreams(ctx context.Context) []UpstreamStatus {
	names := make([]string, 0, len(s.upstreams))
	for name := range s.upstreams {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	results := make([]UpstreamStatus, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			start := time.Now()
			err := s.upstreams[name].Ping(ctx)
			results[i] = UpstreamStatus{Name: name, Status: StatusOK, LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				results[i].Status = StatusError
				results[i].Error = err.Error()
				s.logger.WithError(err).WithField("upstream", name).Warn("Readiness ping failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
