// Package switrs reads the raw collision and victim exports of the
// Statewide Integrated Traffic Records System. Only the columns the report
// needs are kept.
package switrs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/collision.report/internal/collision"
)

// Codes of the "motor vehicle involved with" column.
const (
	WithPedestrian = "B"
	WithBicycle    = "G"
)

// NotStatedAge is the export's value for an unrecorded age.
const NotStatedAge = 998

// Collision is one row of CollisionRecords.txt.
type Collision struct {
	ID               string  `db:"id" json:"id"`
	Date             string  `db:"date" json:"date"` // YYYYMMDD
	Time             string  `db:"time" json:"time"` // HHMM
	PrimaryRoad      string  `db:"primary_road" json:"primary_road"`
	SecondaryRoad    string  `db:"secondary_road" json:"secondary_road"`
	Intersection     string  `db:"intersection" json:"intersection"` // Y or N
	MotorVehicleWith string  `db:"motor_vehicle_with" json:"motor_vehicle_with"`
	Latitude         float64 `db:"latitude" json:"latitude"`
	Longitude        float64 `db:"longitude" json:"longitude"`
}

// Victim is one row of VictimRecords.txt.
type Victim struct {
	CollisionID    string `db:"collision_id" json:"collision_id"`
	PartyID        string `db:"party_id" json:"party_id"`
	Role           string `db:"role" json:"role"`
	Sex            string `db:"sex" json:"sex"`
	Age            int    `db:"age" json:"age"`
	DegreeOfInjury int    `db:"degree_of_injury" json:"degree_of_injury"`
}

var vehicleWith = map[string]string{
	"A": "non-collision",
	"B": "pedestrian",
	"C": "other motor vehicle",
	"D": "motor vehicle on other roadway",
	"E": "parked motor vehicle",
	"F": "train",
	"G": "bicycle",
	"H": "animal",
	"I": "fixed object",
	"J": "other object",
	"-": "not stated",
}

// CollisionWith describes the motor-vehicle-involved-with code.
func (c *Collision) CollisionWith() string {
	if s, ok := vehicleWith[c.MotorVehicleWith]; ok {
		return s
	}
	return "unknown"
}

// IntersectionString joins the primary and secondary roads, e.g.
// "BROADWAY & 14TH ST". It is the geocoding and grouping key.
func (c *Collision) IntersectionString() string {
	primary := strings.TrimSpace(c.PrimaryRoad)
	secondary := strings.TrimSpace(c.SecondaryRoad)
	if secondary == "" {
		return primary
	}
	if primary == "" {
		return secondary
	}
	return primary + " & " + secondary
}

// Type maps the involved-with code onto a report collision type.
func (c *Collision) Type() (collision.Type, bool) {
	switch c.MotorVehicleWith {
	case WithBicycle:
		return collision.Bike, true
	case WithPedestrian:
		return collision.Pedestrian, true
	}
	return 0, false
}

// Timestamp parses Date and Time as wall-clock time in loc. The export
// occasionally carries the impossible time 2500, which is read as 0000.
func (c *Collision) Timestamp(loc *time.Location) (time.Time, error) {
	hhmm := strings.TrimSpace(c.Time)
	if hhmm == "2500" {
		hhmm = "0000"
	}
	if len(hhmm) < 4 {
		hhmm = strings.Repeat("0", 4-len(hhmm)) + hhmm
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("200601021504", strings.TrimSpace(c.Date)+hhmm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("collision %s: bad date/time %q %q: %w", c.ID, c.Date, c.Time, err)
	}
	return t, nil
}

func (c *Collision) String() string {
	return fmt.Sprintf("%s and %s car/%s at %f, %f",
		c.PrimaryRoad, c.SecondaryRoad, c.CollisionWith(), c.Latitude, c.Longitude)
}

// SexCode maps the victim's sex letter onto the report's numeric code.
func (v *Victim) SexCode() int {
	return collision.SexFromLetter(v.Sex).Code()
}

// ReportAge converts the export's age to the report's convention, where
// UnspecifiedAge and above mean unknown.
func (v *Victim) ReportAge() int {
	if v.Age < 0 || v.Age >= collision.UnspecifiedAge {
		return collision.UnspecifiedAge
	}
	return v.Age
}

func parseAge(s string) int {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return NotStatedAge
	}
	return age
}

func parseInjury(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseCoordinate(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
