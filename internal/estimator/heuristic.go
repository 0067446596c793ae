package estimator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/pitwall/internal/models"
)

// Heuristic probability bounds
const (
	HeuristicFloor   = 0.50
	HeuristicCeiling = 0.95
	heuristicBase    = 0.60
)

type tier struct {
	threshold float64
	bonus     float64
}

// Tiers are ordered highest first; only the first qualifying tier applies.
var (
	gapTiers = []tier{{5, 0.15}, {2, 0.08}, {1, 0.04}}
	lapTiers = []tier{{45, 0.12}, {30, 0.07}, {15, 0.03}}
)

func tierBonus(tiers []tier, v float64) float64 {
	for _, t := range tiers {
		if v >= t.threshold {
			return t.bonus
		}
	}
	return 0
}

// GapBonus returns the confidence bonus for second place's gap in seconds
func GapBonus(gapSeconds float64) float64 {
	return tierBonus(gapTiers, gapSeconds)
}

// ProgressBonus returns the confidence bonus for the furthest lap reached
func ProgressBonus(maxLap int) float64 {
	return tierBonus(lapTiers, float64(maxLap))
}

// PitPenalty returns the cumulative penalty for a leader that has pitted more than the field
func PitPenalty(delta float64) float64 {
	penalty := 0.0
	if delta > 0.5 {
		penalty += 0.08
	}
	if delta > 1.0 {
		penalty += 0.12
	}
	return penalty
}

// Heuristic is the deterministic fallback: the leader wins, with confidence driven by
// the lead, race progress and the leader's pit count relative to the field.
type Heuristic struct{}

// Estimate returns false only for an empty snapshot
func (Heuristic) Estimate(snap models.Snapshot) (*models.Estimate, bool) {
	leader, ok := snap.Leader()
	if !ok {
		return nil, false
	}

	p := heuristicBase

	gap := 0.0
	if second, ok := snap.SecondPlace(); ok {
		gap = second.GapToLeader.EffectiveSeconds()
	}
	p += GapBonus(gap)
	p += ProgressBonus(snap.MaxLap())

	delta := float64(leader.Pits) - stat.Mean(snap.PitCounts(), nil)
	p -= PitPenalty(delta)

	return &models.Estimate{
		WinnerDriverNumber: leader.DriverNumber,
		Probability:        models.ClampProbability(p, HeuristicFloor, HeuristicCeiling),
	}, true
}
