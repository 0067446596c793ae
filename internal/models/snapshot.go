package models

// UnknownPosition marks a driver with no position telemetry yet
const UnknownPosition = 99

// SnapshotRow is the current known state of one driver in a session.
// JSON names match the request contract of the external model process.
type SnapshotRow struct {
	DriverNumber int    `json:"driver_number"`
	Driver       string `json:"driver"`
	Team         string `json:"team"`
	Position     int    `json:"position"`
	GapToLeader  Gap    `json:"gap_to_leader"`
	LapNumber    int    `json:"lap_number"`
	Pits         int    `json:"pits"`
}

// IsRanked reports whether the row has a resolved running position
func (r SnapshotRow) IsRanked() bool {
	return r.Position != UnknownPosition
}

// Snapshot is the ranked running order, ascending by position
type Snapshot []SnapshotRow

// Leader returns the first row, if any
func (s Snapshot) Leader() (SnapshotRow, bool) {
	if len(s) == 0 {
		return SnapshotRow{}, false
	}
	return s[0], true
}

// SecondPlace returns the second row, if any
func (s Snapshot) SecondPlace() (SnapshotRow, bool) {
	if len(s) < 2 {
		return SnapshotRow{}, false
	}
	return s[1], true
}

// MaxLap returns the highest lap number observed across all rows
func (s Snapshot) MaxLap() int {
	maxLap := 0
	for _, r := range s {
		if r.LapNumber > maxLap {
			maxLap = r.LapNumber
		}
	}
	return maxLap
}

// PitCounts returns pit counts in running order
func (s Snapshot) PitCounts() []float64 {
	out := make([]float64, len(s))
	for i, r := range s {
		out[i] = float64(r.Pits)
	}
	return out
}
