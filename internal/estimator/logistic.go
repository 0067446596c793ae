package estimator

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/pitwall/internal/models"
)

// Logistic model weights: bias, gap (capped), race progress, leader pit excess
var logisticWeights = []float64{-0.2, 0.25, 1.8, -0.6}

const (
	logisticGapCap      = 15.0
	nominalRaceLaps     = 60.0
	logisticProbability = 0.98
)

// LogisticEstimator is an in-process calibrated linear model squashed through a sigmoid.
// It reads the same features as the heuristic and is confident late, cautious early.
type LogisticEstimator struct{}

// NewLogisticEstimator creates the in-process model
func NewLogisticEstimator() *LogisticEstimator {
	return &LogisticEstimator{}
}

// Name implements Estimator
func (*LogisticEstimator) Name() string { return "logistic" }

// Estimate implements Estimator
func (*LogisticEstimator) Estimate(_ context.Context, _ int, snap models.Snapshot) (*models.Estimate, bool) {
	leader, ok := snap.Leader()
	if !ok {
		return nil, false
	}

	gap := 0.0
	if second, ok := snap.SecondPlace(); ok {
		gap = second.GapToLeader.EffectiveSeconds()
	}
	progress := math.Min(1, math.Max(0, float64(snap.MaxLap())/nominalRaceLaps))
	pitExcess := math.Max(0, float64(leader.Pits)-stat.Mean(snap.PitCounts(), nil))

	features := []float64{1, math.Min(gap, logisticGapCap), progress, pitExcess}
	logit := floats.Dot(logisticWeights, features)
	p := 1 / (1 + math.Exp(-logit))

	return &models.Estimate{
		WinnerDriverNumber: leader.DriverNumber,
		Probability:        models.ClampProbability(p, 0.5, logisticProbability),
	}, true
}
