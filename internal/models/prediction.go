package models

import (
	"time"
)

// PredictionSource identifies which estimator produced a prediction
type PredictionSource string

const (
	// SourceExternal is the configured external model strategy
	SourceExternal PredictionSource = "external"
	// SourceHeuristic is the deterministic fallback
	SourceHeuristic PredictionSource = "heuristic"
)

// Estimate is a winner guess before display identity is attached
type Estimate struct {
	WinnerDriverNumber int     `json:"winner_driver_number"`
	Probability        float64 `json:"probability"`
}

// WinnerPrediction is an estimate resolved against the session roster
type WinnerPrediction struct {
	WinnerDriverNumber int     `json:"winner_driver_number"`
	Driver             string  `json:"driver"`
	Team               string  `json:"team"`
	Probability        float64 `json:"probability"`
}

// PredictionResult is one prediction cycle's outcome. It is never mutated after
// construction; a recomputation supersedes it.
type PredictionResult struct {
	SessionKey *int              `json:"session_key"`
	Source     PredictionSource  `json:"source"`
	Prediction *WinnerPrediction `json:"prediction"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// HasPrediction reports whether a winner was resolved
func (p *PredictionResult) HasPrediction() bool {
	return p != nil && p.Prediction != nil
}

// ClampProbability bounds p to [lo, hi]
func ClampProbability(p, lo, hi float64) float64 {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
