package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// GapKind identifies which variant a Gap holds
type GapKind int

const (
	// GapUnknown means no usable gap was reported
	GapUnknown GapKind = iota
	// GapSeconds is a time deficit in seconds
	GapSeconds
	// GapLapsBehind is a deficit of one or more full laps
	GapLapsBehind
)

// LappedGapSeconds is the seconds-equivalent used for a lapped competitor
const LappedGapSeconds = 25.0

var gapNumberPattern = regexp.MustCompile(`\d+(?:\.\d+)?|\.\d+`)

// Gap is the deficit of a competitor to the session leader.
// OpenF1 reports it as a number, a string such as "+1.234" or "+1 LAP", or null.
type Gap struct {
	Kind    GapKind
	Seconds float64
	Laps    int
}

// NewSecondsGap returns a time-based gap
func NewSecondsGap(seconds float64) Gap {
	return Gap{Kind: GapSeconds, Seconds: seconds}
}

// NewLapsBehindGap returns a lapped gap
func NewLapsBehindGap(laps int) Gap {
	if laps < 1 {
		laps = 1
	}
	return Gap{Kind: GapLapsBehind, Laps: laps}
}

// ParseGap converts a raw OpenF1 gap string into a Gap.
func ParseGap(raw string) Gap {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return Gap{}
	}

	if strings.Contains(s, "LAP") {
		laps := 1
		if m := gapNumberPattern.FindString(s); m != "" {
			if n, err := strconv.ParseFloat(m, 64); err == nil && n >= 1 {
				laps = int(n)
			}
		}
		return NewLapsBehindGap(laps)
	}

	m := gapNumberPattern.FindString(s)
	if m == "" {
		return Gap{}
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return Gap{}
	}
	return NewSecondsGap(v)
}

// EffectiveSeconds returns the gap as seconds for tiering. Lapped gaps count as
// LappedGapSeconds and unknown gaps as zero.
func (g Gap) EffectiveSeconds() float64 {
	switch g.Kind {
	case GapSeconds:
		return g.Seconds
	case GapLapsBehind:
		return LappedGapSeconds
	default:
		return 0
	}
}

// IsKnown reports whether the gap carries data
func (g Gap) IsKnown() bool {
	return g.Kind != GapUnknown
}

// String returns the OpenF1-style representation
func (g Gap) String() string {
	switch g.Kind {
	case GapSeconds:
		return strconv.FormatFloat(g.Seconds, 'f', 3, 64)
	case GapLapsBehind:
		if g.Laps == 1 {
			return "+1 LAP"
		}
		return fmt.Sprintf("+%d LAPS", g.Laps)
	default:
		return ""
	}
}

// MarshalJSON encodes seconds as a number, lapped gaps as a string and unknown as null
func (g Gap) MarshalJSON() ([]byte, error) {
	switch g.Kind {
	case GapSeconds:
		return json.Marshal(g.Seconds)
	case GapLapsBehind:
		return json.Marshal(g.String())
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a number, a string or null
func (g *Gap) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*g = Gap{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid gap string: %w", err)
		}
		*g = ParseGap(s)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		// Unexpected shapes degrade to unknown rather than failing the whole feed.
		*g = Gap{}
		return nil
	}
	*g = NewSecondsGap(v)
	return nil
}
