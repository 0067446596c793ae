package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/pitwall/internal/models"
)

// JolpicaSourceName identifies the Jolpica (Ergast) provider
const JolpicaSourceName = "jolpica"

// JolpicaClient implements ReferenceSource against the Ergast-compatible Jolpica API
type JolpicaClient struct {
	rest restClient
	now  func() time.Time
}

// NewJolpicaClient creates a new Jolpica API client
func NewJolpicaClient(httpClient *RateLimitedHTTPClient, baseURL string) *JolpicaClient {
	return &JolpicaClient{
		rest: newRESTClient(httpClient, JolpicaSourceName, baseURL, ""),
		now:  time.Now,
	}
}

// Name returns the data source name
func (c *JolpicaClient) Name() string {
	return JolpicaSourceName
}

type ergastLocation struct {
	Locality string `json:"locality"`
	Country  string `json:"country"`
}

type ergastCircuit struct {
	CircuitName string         `json:"circuitName"`
	Location    ergastLocation `json:"Location"`
}

type ergastDriver struct {
	DriverID        string `json:"driverId"`
	PermanentNumber string `json:"permanentNumber"`
	Code            string `json:"code"`
	GivenName       string `json:"givenName"`
	FamilyName      string `json:"familyName"`
}

func (d ergastDriver) fullName() string {
	return strings.TrimSpace(d.GivenName + " " + d.FamilyName)
}

func (d ergastDriver) number() *int {
	n, err := strconv.Atoi(d.PermanentNumber)
	if err != nil {
		return nil
	}
	return &n
}

type ergastConstructor struct {
	Name string `json:"name"`
}

type ergastTime struct {
	Time string `json:"time"`
}

type ergastSpeed struct {
	Units string `json:"units"`
	Speed string `json:"speed"`
}

type ergastFastestLap struct {
	Rank         string       `json:"rank"`
	Lap          string       `json:"lap"`
	Time         *ergastTime  `json:"Time"`
	AverageSpeed *ergastSpeed `json:"AverageSpeed"`
}

type ergastResult struct {
	Position    string            `json:"position"`
	Points      string            `json:"points"`
	Driver      ergastDriver      `json:"Driver"`
	Constructor ergastConstructor `json:"Constructor"`
	Grid        string            `json:"grid"`
	Laps        string            `json:"laps"`
	Status      string            `json:"status"`
	Time        *ergastTime       `json:"Time"`
	FastestLap  *ergastFastestLap `json:"FastestLap"`
	Q1          *string           `json:"Q1"`
	Q2          *string           `json:"Q2"`
	Q3          *string           `json:"Q3"`
}

type ergastPitStop struct {
	DriverID string `json:"driverId"`
	Lap      string `json:"lap"`
	Stop     string `json:"stop"`
	Duration string `json:"duration"`
}

type ergastRace struct {
	Season            string          `json:"season"`
	Round             string          `json:"round"`
	RaceName          string          `json:"raceName"`
	Circuit           ergastCircuit   `json:"Circuit"`
	Date              string          `json:"date"`
	Time              *string         `json:"time"`
	Results           []ergastResult  `json:"Results"`
	SprintResults     []ergastResult  `json:"SprintResults"`
	QualifyingResults []ergastResult  `json:"QualifyingResults"`
	PitStops          []ergastPitStop `json:"PitStops"`
}

type ergastStanding struct {
	Position     string              `json:"position"`
	Points       string              `json:"points"`
	Wins         string              `json:"wins"`
	Driver       ergastDriver        `json:"Driver"`
	Constructor  ergastConstructor   `json:"Constructor"`
	Constructors []ergastConstructor `json:"Constructors"`
}

type ergastResponse struct {
	MRData struct {
		RaceTable struct {
			Season string       `json:"season"`
			Races  []ergastRace `json:"Races"`
		} `json:"RaceTable"`
		StandingsTable struct {
			Season         string `json:"season"`
			StandingsLists []struct {
				DriverStandings      []ergastStanding `json:"DriverStandings"`
				ConstructorStandings []ergastStanding `json:"ConstructorStandings"`
			} `json:"StandingsLists"`
		} `json:"StandingsTable"`
	} `json:"MRData"`
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func (c *JolpicaClient) get(ctx context.Context, path string, query url.Values) (*ergastResponse, error) {
	var out ergastResponse
	if err := c.rest.getJSON(ctx, "/ergast/f1/"+path, query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *JolpicaClient) firstRace(ctx context.Context, season string, round int, kind string) (*ergastRace, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s/%d/%s.json", url.PathEscape(season), round, kind), nil)
	if err != nil {
		return nil, err
	}
	if len(resp.MRData.RaceTable.Races) == 0 {
		return nil, nil
	}
	return &resp.MRData.RaceTable.Races[0], nil
}

// Schedule returns the season calendar; rounds whose start has passed are Completed/Live
func (c *JolpicaClient) Schedule(ctx context.Context, season string) (*models.Schedule, error) {
	resp, err := c.get(ctx, url.PathEscape(season)+".json", nil)
	if err != nil {
		return nil, err
	}

	now := c.now()
	races := make([]models.ScheduledRace, 0, len(resp.MRData.RaceTable.Races))
	for _, r := range resp.MRData.RaceTable.Races {
		status := models.RaceStatusUpcoming
		if start, ok := raceStart(r.Date, r.Time); ok && start.Before(now) {
			status = models.RaceStatusCompleted
		}
		races = append(races, models.ScheduledRace{
			Season:   r.Season,
			Round:    atoi(r.Round),
			Name:     r.RaceName,
			Circuit:  r.Circuit.CircuitName,
			Location: r.Circuit.Location.Locality + ", " + r.Circuit.Location.Country,
			Date:     r.Date,
			Time:     r.Time,
			Status:   status,
		})
	}

	return &models.Schedule{Season: resp.MRData.RaceTable.Season, Races: races}, nil
}

// raceStart combines Ergast's date and optional time; a missing time means midnight UTC
func raceStart(date string, clock *string) (time.Time, bool) {
	t := "00:00:00Z"
	if clock != nil && *clock != "" {
		t = *clock
	}
	start, err := time.Parse(time.RFC3339, date+"T"+t)
	if err != nil {
		return time.Time{}, false
	}
	return start, true
}

// DriverStandings returns the current drivers' championship
func (c *JolpicaClient) DriverStandings(ctx context.Context) (*models.DriverStandings, error) {
	resp, err := c.get(ctx, "current/driverStandings.json", nil)
	if err != nil {
		return nil, err
	}

	table := resp.MRData.StandingsTable
	out := &models.DriverStandings{Season: atoi(table.Season), Drivers: []models.DriverStanding{}}
	if len(table.StandingsLists) == 0 {
		return out, nil
	}
	for _, d := range table.StandingsLists[0].DriverStandings {
		constructor := ""
		if len(d.Constructors) > 0 {
			constructor = d.Constructors[0].Name
		}
		out.Drivers = append(out.Drivers, models.DriverStanding{
			Position:    atoi(d.Position),
			Driver:      d.Driver.fullName(),
			Constructor: constructor,
			Points:      atof(d.Points),
			Wins:        atoi(d.Wins),
		})
	}
	return out, nil
}

// ConstructorStandings returns the current constructors' championship
func (c *JolpicaClient) ConstructorStandings(ctx context.Context) (*models.ConstructorStandings, error) {
	resp, err := c.get(ctx, "current/constructorStandings.json", nil)
	if err != nil {
		return nil, err
	}

	table := resp.MRData.StandingsTable
	out := &models.ConstructorStandings{Season: atoi(table.Season), Constructors: []models.ConstructorStanding{}}
	if len(table.StandingsLists) == 0 {
		return out, nil
	}
	for _, s := range table.StandingsLists[0].ConstructorStandings {
		out.Constructors = append(out.Constructors, models.ConstructorStanding{
			Position:    atoi(s.Position),
			Constructor: s.Constructor.Name,
			Points:      atof(s.Points),
			Wins:        atoi(s.Wins),
		})
	}
	return out, nil
}

func convertResult(r ergastResult) models.ClassifiedResult {
	res := models.ClassifiedResult{
		Position:     atoi(r.Position),
		Driver:       r.Driver.fullName(),
		DriverID:     r.Driver.DriverID,
		DriverNumber: r.Driver.number(),
		Code:         r.Driver.Code,
		Constructor:  r.Constructor.Name,
		Grid:         atoi(r.Grid),
		Laps:         atoi(r.Laps),
		Status:       r.Status,
		Points:       atof(r.Points),
	}
	if r.Time != nil {
		t := r.Time.Time
		res.Time = &t
	}
	if fl := r.FastestLap; fl != nil {
		lap := &models.FastestLap{Rank: atoi(fl.Rank), Lap: atoi(fl.Lap)}
		if fl.Time != nil {
			t := fl.Time.Time
			lap.Time = &t
		}
		if fl.AverageSpeed != nil {
			s := fl.AverageSpeed.Speed + " " + fl.AverageSpeed.Units
			lap.AverageSpeed = &s
		}
		res.FastestLap = lap
	}
	return res
}

// RaceResults returns the classified race of one round. Sprint and qualifying are fetched separately.
func (c *JolpicaClient) RaceResults(ctx context.Context, season string, round int) (*models.RoundResults, error) {
	race, err := c.firstRace(ctx, season, round, "results")
	if err != nil {
		return nil, err
	}

	out := &models.RoundResults{Season: season, Round: round, Results: []models.ClassifiedResult{}}
	if race == nil {
		return out, nil
	}
	if race.Season != "" {
		out.Season = race.Season
	}
	if r := atoi(race.Round); r > 0 {
		out.Round = r
	}
	out.RaceName = race.RaceName
	out.Circuit = race.Circuit.CircuitName
	out.Date = race.Date
	out.Time = race.Time
	for _, r := range race.Results {
		out.Results = append(out.Results, convertResult(r))
	}
	return out, nil
}

// SprintResults returns the sprint classification of one round, empty when there was none
func (c *JolpicaClient) SprintResults(ctx context.Context, season string, round int) ([]models.ClassifiedResult, error) {
	race, err := c.firstRace(ctx, season, round, "sprint")
	if err != nil || race == nil {
		return nil, err
	}
	out := make([]models.ClassifiedResult, 0, len(race.SprintResults))
	for _, r := range race.SprintResults {
		out = append(out, convertResult(r))
	}
	return out, nil
}

// QualifyingResults returns the qualifying classification of one round
func (c *JolpicaClient) QualifyingResults(ctx context.Context, season string, round int) ([]models.QualifyingResult, error) {
	race, err := c.firstRace(ctx, season, round, "qualifying")
	if err != nil || race == nil {
		return nil, err
	}
	out := make([]models.QualifyingResult, 0, len(race.QualifyingResults))
	for _, r := range race.QualifyingResults {
		out = append(out, models.QualifyingResult{
			Position:    atoi(r.Position),
			Driver:      r.Driver.fullName(),
			DriverID:    r.Driver.DriverID,
			Constructor: r.Constructor.Name,
			Q1:          r.Q1,
			Q2:          r.Q2,
			Q3:          r.Q3,
		})
	}
	return out, nil
}

// SeasonRounds lists the rounds of a season that have results
func (c *JolpicaClient) SeasonRounds(ctx context.Context, season string) ([]int, error) {
	resp, err := c.get(ctx, url.PathEscape(season)+"/results.json", url.Values{"limit": {"1000"}})
	if err != nil {
		return nil, err
	}

	rounds := make([]int, 0, len(resp.MRData.RaceTable.Races))
	seen := make(map[int]bool)
	for i, r := range resp.MRData.RaceTable.Races {
		round := atoi(r.Round)
		if round == 0 {
			round = i + 1
		}
		if !seen[round] {
			seen[round] = true
			rounds = append(rounds, round)
		}
	}
	return rounds, nil
}

// PitStops returns the pit stops of one round
func (c *JolpicaClient) PitStops(ctx context.Context, season string, round int) (*models.RacePitStops, error) {
	race, err := c.firstRace(ctx, season, round, "pitstops")
	if err != nil {
		return nil, err
	}

	out := &models.RacePitStops{Round: round, Stops: []models.PitStop{}}
	if race == nil {
		return out, nil
	}
	out.RaceName = race.RaceName
	for _, p := range race.PitStops {
		out.Stops = append(out.Stops, models.PitStop{
			DriverID: p.DriverID,
			Lap:      atoi(p.Lap),
			Stop:     atoi(p.Stop),
			Duration: p.Duration,
		})
	}
	return out, nil
}

// Ping checks that the API answers
func (c *JolpicaClient) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "current.json", url.Values{"limit": {"1"}})
	return err
}

// Close releases idle upstream connections
func (c *JolpicaClient) Close() error {
	return c.rest.http.Close()
}
