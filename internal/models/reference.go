package models

// Race status labels for the season schedule
const (
	RaceStatusCompleted = "Completed/Live"
	RaceStatusUpcoming  = "Upcoming"
)

// ScheduledRace is one round of a season calendar
type ScheduledRace struct {
	Season   string  `json:"season"`
	Round    int     `json:"round"`
	Name     string  `json:"name"`
	Circuit  string  `json:"circuit"`
	Location string  `json:"location"`
	Date     string  `json:"date"`
	Time     *string `json:"time"`
	Status   string  `json:"status"`
}

// Schedule is a season calendar
type Schedule struct {
	Season string          `json:"season"`
	Races  []ScheduledRace `json:"races"`
}

// DriverStanding is one row of the drivers' championship
type DriverStanding struct {
	Position    int     `json:"position"`
	Driver      string  `json:"driver"`
	Constructor string  `json:"constructor"`
	Points      float64 `json:"points"`
	Wins        int     `json:"wins"`
}

// DriverStandings is the drivers' championship table
type DriverStandings struct {
	Season  int              `json:"season"`
	Drivers []DriverStanding `json:"drivers"`
}

// ConstructorStanding is one row of the constructors' championship
type ConstructorStanding struct {
	Position    int     `json:"position"`
	Constructor string  `json:"constructor"`
	Points      float64 `json:"points"`
	Wins        int     `json:"wins"`
}

// ConstructorStandings is the constructors' championship table
type ConstructorStandings struct {
	Season       int                   `json:"season"`
	Constructors []ConstructorStanding `json:"constructors"`
}

// FastestLap summarizes a classified driver's fastest lap
type FastestLap struct {
	Rank         int     `json:"rank"`
	Lap          int     `json:"lap"`
	Time         *string `json:"time"`
	AverageSpeed *string `json:"averageSpeed"`
}

// ClassifiedResult is one finisher row of a race or sprint
type ClassifiedResult struct {
	Position     int         `json:"position"`
	Driver       string      `json:"driver"`
	DriverID     string      `json:"driverId"`
	DriverNumber *int        `json:"driverNumber"`
	Code         string      `json:"code,omitempty"`
	Constructor  string      `json:"constructor"`
	Grid         int         `json:"grid"`
	Laps         int         `json:"laps"`
	Status       string      `json:"status"`
	Points       float64     `json:"points"`
	Time         *string     `json:"time"`
	FastestLap   *FastestLap `json:"fastestLap"`
}

// QualifyingResult is one qualifying row
type QualifyingResult struct {
	Position    int     `json:"position"`
	Driver      string  `json:"driver"`
	DriverID    string  `json:"driverId"`
	Constructor string  `json:"constructor"`
	Q1          *string `json:"q1"`
	Q2          *string `json:"q2"`
	Q3          *string `json:"q3"`
}

// RoundResults bundles every classified session of a race weekend
type RoundResults struct {
	Season     string             `json:"season"`
	Round      int                `json:"round"`
	RaceName   string             `json:"raceName"`
	Circuit    string             `json:"circuit"`
	Date       string             `json:"date"`
	Time       *string            `json:"time"`
	Results    []ClassifiedResult `json:"results"`
	Sprint     []ClassifiedResult `json:"sprint"`
	Qualifying []QualifyingResult `json:"qualifying"`
}

// FastestPitStop is the quickest stop of a race
type FastestPitStop struct {
	Race        string `json:"race"`
	Driver      string `json:"driver"`
	Constructor string `json:"constructor"`
	TimeMs      int64  `json:"timeMs"`
}

// ConstructorPitAverage is a constructor's mean over its race-winning stops
type ConstructorPitAverage struct {
	Constructor string `json:"constructor"`
	AvgMs       int64  `json:"avgMs"`
}

// PitStopSummary is the season pit-stop leaderboard
type PitStopSummary struct {
	Fastest  []FastestPitStop        `json:"fastest"`
	Averages []ConstructorPitAverage `json:"averages"`
}

// PitStop is one recorded stop as reported by Jolpica
type PitStop struct {
	DriverID string `json:"driverId"`
	Lap      int    `json:"lap"`
	Stop     int    `json:"stop"`
	Duration string `json:"duration"`
}

// RacePitStops is every stop of one round
type RacePitStops struct {
	Round    int       `json:"round"`
	RaceName string    `json:"raceName"`
	Stops    []PitStop `json:"stops"`
}
