package models

import (
	"time"
)

// SessionType values as reported by OpenF1
const (
	SessionTypePractice   = "Practice"
	SessionTypeQualifying = "Qualifying"
	SessionTypeRace       = "Race"
)

// Session is one timed track activity
type Session struct {
	SessionKey       int       `json:"session_key"`
	MeetingKey       int       `json:"meeting_key"`
	SessionName      string    `json:"session_name"`
	SessionType      string    `json:"session_type"`
	DateStart        time.Time `json:"date_start"`
	DateEnd          time.Time `json:"date_end"`
	CircuitShortName string    `json:"circuit_short_name,omitempty"`
	CountryName      string    `json:"country_name,omitempty"`
	Year             int       `json:"year,omitempty"`
}

// Driver is a roster entry for a session
type Driver struct {
	DriverNumber int    `json:"driver_number"`
	FullName     string `json:"full_name"`
	NameAcronym  string `json:"name_acronym"`
	TeamName     string `json:"team_name"`
	TeamColour   string `json:"team_colour,omitempty"`
	HeadshotURL  string `json:"headshot_url,omitempty"`
}

// PositionEvent is a running-order update
type PositionEvent struct {
	DriverNumber int       `json:"driver_number"`
	Position     int       `json:"position"`
	Date         time.Time `json:"date"`
}

// IntervalEvent is a gap/interval update
type IntervalEvent struct {
	DriverNumber int       `json:"driver_number"`
	GapToLeader  Gap       `json:"gap_to_leader"`
	Interval     Gap       `json:"interval"`
	Date         time.Time `json:"date"`
}

// LapEvent is a lap completion record
type LapEvent struct {
	DriverNumber int       `json:"driver_number"`
	LapNumber    int       `json:"lap_number"`
	LapDuration  *float64  `json:"lap_duration"`
	DateStart    time.Time `json:"date_start"`
}

// PitEvent is a single pit lane visit
type PitEvent struct {
	DriverNumber int       `json:"driver_number"`
	LapNumber    int       `json:"lap_number"`
	Date         time.Time `json:"date"`
}

// GridEntry is a starting grid slot
type GridEntry struct {
	DriverNumber int `json:"driver_number"`
	Position     int `json:"position"`
}

// Weather is a track weather sample
type Weather struct {
	AirTemperature   float64   `json:"air_temperature"`
	TrackTemperature float64   `json:"track_temperature"`
	Humidity         float64   `json:"humidity"`
	WindSpeed        float64   `json:"wind_speed"`
	WindDirection    float64   `json:"wind_direction"`
	Rainfall         float64   `json:"rainfall"`
	Date             time.Time `json:"date"`
	SessionKey       int       `json:"session_key"`
	MeetingKey       int       `json:"meeting_key"`
}
