// Package collision holds the record model for bike and pedestrian
// collisions: victims, derived buckets and the yearly document format.
package collision

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// ErrInvalidType is returned for collision type codes other than bike or
// pedestrian.
var ErrInvalidType = errors.New("invalid collision type")

// Type is what the motor vehicle collided with.
type Type int

const (
	Bike Type = iota
	Pedestrian
)

// TypeFromCode maps an exported type code (0=bike, 1=pedestrian).
func TypeFromCode(code int) (Type, error) {
	switch code {
	case 0:
		return Bike, nil
	case 1:
		return Pedestrian, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidType, code)
	}
}

func (t Type) String() string {
	if t == Bike {
		return "bike"
	}
	return "pedestrian"
}

// Location is a marker coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point converts to an orb point (lon, lat order).
func (l Location) Point() orb.Point {
	return orb.Point{l.Lon, l.Lat}
}

// IsZero reports the [0,0] coordinate used for failed geocodes.
func (l Location) IsZero() bool {
	return l.Lat == 0 && l.Lon == 0
}

// Collision is one logged incident. It is immutable once built.
type Collision struct {
	Intersection string
	Time         time.Time
	Year         int
	Type         Type
	TimeOfDay    TimeOfDay
	Victims      []Victim

	// Marker indexes the separately loaded marker array. Negative means the
	// record has no marker and is grouped by intersection name.
	Marker int
}

// MostSevereInjury is the minimum rank over the victims accepted by include.
// A nil include accepts every victim. With no accepted victims the result is
// OtherInjury.
func (c *Collision) MostSevereInjury(include func(i int, v Victim) bool) InjuryRank {
	best := OtherInjury
	for i, v := range c.Victims {
		if include != nil && !include(i, v) {
			continue
		}
		if v.Injury < best {
			best = v.Injury
		}
	}
	return best
}

func (c *Collision) countVictims(test func(Victim) bool) int {
	n := 0
	for _, v := range c.Victims {
		if test(v) {
			n++
		}
	}
	return n
}

func (c *Collision) NumberOfFatalities() int {
	return c.countVictims(Victim.IsFatality)
}

func (c *Collision) NumberOfSevereInjuries() int {
	return c.countVictims(Victim.IsSevereInjury)
}

// DateString formats the date for detail views, e.g. "Jun 5, 2010".
func (c *Collision) DateString(loc *time.Location) string {
	return c.Time.In(orUTC(loc)).Format("Jan 2, 2006")
}

// TimeString formats the time of day for detail views, e.g. "4:05pm".
func (c *Collision) TimeString(loc *time.Location) string {
	return strings.ToLower(c.Time.In(orUTC(loc)).Format("3:04PM"))
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
