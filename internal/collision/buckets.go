package collision

import (
	"fmt"
	"time"
)

// UnspecifiedAge is the smallest age value the source uses to mean "not
// recorded".
const UnspecifiedAge = 150

// DefaultAgeBoundaries are the inclusive upper bounds of each age group.
var DefaultAgeBoundaries = []int{14, 24, 25, 74, 150}

// AgeGroups assigns ages to groups by inclusive upper bound. There is one
// group per boundary plus a trailing overflow group for unspecified ages.
type AgeGroups struct {
	bounds []int
}

// NewAgeGroups validates that boundaries are strictly increasing.
func NewAgeGroups(bounds []int) (AgeGroups, error) {
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			return AgeGroups{}, fmt.Errorf("age boundaries must be strictly increasing, got %v", bounds)
		}
	}
	return AgeGroups{bounds: append([]int(nil), bounds...)}, nil
}

// Len is the number of groups including the overflow group.
func (g AgeGroups) Len() int {
	return len(g.bounds) + 1
}

// Bounds returns a copy of the upper bounds.
func (g AgeGroups) Bounds() []int {
	return append([]int(nil), g.bounds...)
}

// Overflow is the index of the "N/A" group.
func (g AgeGroups) Overflow() int {
	return len(g.bounds)
}

// Group returns the index of the first boundary >= age. Negative ages and
// ages at or above UnspecifiedAge land in the overflow group.
func (g AgeGroups) Group(age int) int {
	if age < 0 || age >= UnspecifiedAge {
		return g.Overflow()
	}
	for i, b := range g.bounds {
		if age <= b {
			return i
		}
	}
	return g.Overflow()
}

// Names renders a label per group, e.g. "0-14", "15-24", "25", "75+", "N/A".
func (g AgeGroups) Names() []string {
	names := make([]string, 0, g.Len())
	lo := 0
	for i, hi := range g.bounds {
		switch {
		case i == len(g.bounds)-1 && hi >= UnspecifiedAge:
			names = append(names, fmt.Sprintf("%d+", lo))
		case lo == hi:
			names = append(names, fmt.Sprintf("%d", hi))
		default:
			names = append(names, fmt.Sprintf("%d-%d", lo, hi))
		}
		lo = hi + 1
	}
	return append(names, "N/A")
}

// TimeOfDay is a Day/Night bucket.
type TimeOfDay int

const (
	Day TimeOfDay = iota
	Night
)

func (t TimeOfDay) String() string {
	if t == Day {
		return "Day"
	}
	return "Night"
}

// DayNight buckets a local hour as Day when it falls in [DayStart, NightStart).
type DayNight struct {
	DayStart   int
	NightStart int
	Location   *time.Location
}

// DefaultDayNight splits at 05:00 and 19:00 Pacific time.
func DefaultDayNight() DayNight {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		loc = time.UTC
	}
	return DayNight{DayStart: 5, NightStart: 19, Location: loc}
}

// Bucket classifies t by its hour in the configured location.
func (d DayNight) Bucket(t time.Time) TimeOfDay {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	h := t.In(loc).Hour()
	if h >= d.DayStart && h < d.NightStart {
		return Day
	}
	return Night
}
