// Package estimator provides the winner estimators: pluggable external strategies
// (subprocess, gRPC, in-process logistic model) and the deterministic heuristic fallback.
package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/models"
)

// DefaultTimeout bounds one external estimator call
const DefaultTimeout = 5 * time.Second

var (
	// ErrMalformedResponse indicates the estimator answered with an unusable payload
	ErrMalformedResponse = errors.New("malformed estimator response")
	// ErrTimeout indicates the estimator did not answer within its bound
	ErrTimeout = errors.New("estimator timeout")
)

// Estimator produces a winner estimate for a ranked snapshot. It never fails: ok is
// false whenever no usable estimate is available.
type Estimator interface {
	Name() string
	Estimate(ctx context.Context, sessionKey int, snap models.Snapshot) (est *models.Estimate, ok bool)
}

// Request is the payload sent to external estimators
type Request struct {
	SessionKey int             `json:"session_key"`
	Snapshot   models.Snapshot `json:"snapshot"`
}

type response struct {
	WinnerDriverNumber *float64 `json:"winner_driver_number"`
	Probability        *float64 `json:"probability"`
}

// DecodeResponse accepts only an object with a numeric, integral winner_driver_number
// and a numeric probability.
func DecodeResponse(data []byte) (*models.Estimate, error) {
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if r.WinnerDriverNumber == nil || r.Probability == nil {
		return nil, fmt.Errorf("%w: missing fields", ErrMalformedResponse)
	}
	w := *r.WinnerDriverNumber
	if w != math.Trunc(w) || math.IsInf(w, 0) {
		return nil, fmt.Errorf("%w: winner_driver_number %v is not an integer", ErrMalformedResponse, w)
	}
	return &models.Estimate{WinnerDriverNumber: int(w), Probability: *r.Probability}, nil
}

// Disabled is the estimator used when no external strategy is configured
type Disabled struct{}

// Name implements Estimator
func (Disabled) Name() string { return "disabled" }

// Estimate implements Estimator
func (Disabled) Estimate(context.Context, int, models.Snapshot) (*models.Estimate, bool) {
	return nil, false
}

// observe records the outcome of one external call
func observe(log *logger.PredictionLogger, name string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := metrics.EstimatorOutcomeAccepted
	switch {
	case errors.Is(err, ErrTimeout):
		outcome = metrics.EstimatorOutcomeTimeout
	case errors.Is(err, ErrMalformedResponse):
		outcome = metrics.EstimatorOutcomeAbsent
	case err != nil:
		outcome = metrics.EstimatorOutcomeError
	}
	metrics.RecordEstimatorOutcome(name, outcome, elapsed.Seconds())

	if log == nil {
		return
	}
	if err != nil {
		log.LogEstimatorError(name, err)
		return
	}
	log.LogEstimatorOutcome(name, outcome, float64(elapsed.Milliseconds()))
}

// New builds the external estimator selected by configuration. A misconfigured
// strategy degrades to Disabled so predictions keep flowing through the heuristic.
func New(cfg config.PredictorConfig, log *logrus.Logger) Estimator {
	timeout := time.Duration(cfg.TimeoutMillis) * time.Millisecond
	if timeout <= 0 || timeout > DefaultTimeout {
		timeout = DefaultTimeout
	}
	plog := logger.NewPredictionLogger(log)

	switch cfg.Mode {
	case config.PredictorModeProcess:
		if cfg.Command == "" || (cfg.ScriptPath == "" && len(cfg.Args) == 0) {
			return Disabled{}
		}
		args := cfg.Args
		if cfg.ScriptPath != "" {
			args = append([]string{cfg.ScriptPath}, cfg.Args...)
		}
		return NewProcessEstimator(cfg.Command, args, timeout, plog)
	case config.PredictorModeGRPC:
		est, err := NewGRPCEstimator(cfg.GRPCAddress, timeout, plog)
		if err != nil {
			log.WithError(err).Warn("gRPC estimator unavailable, using heuristic only")
			return Disabled{}
		}
		return est
	case config.PredictorModeLogistic:
		return NewLogisticEstimator()
	default:
		return Disabled{}
	}
}
