package collision

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// RawVictim is a victim as it appears in a yearly document.
type RawVictim struct {
	Age    int `json:"age"`
	Sex    int `json:"sex"`
	Injury int `json:"injury"`
}

// RawCollision is one element of a yearly document.
type RawCollision struct {
	Intersection string      `json:"intersection"`
	Time         int64       `json:"time"`
	Type         int         `json:"type"`
	Marker       int         `json:"marker"`
	Victims      []RawVictim `json:"victims"`
}

// DecodeYear reads a yearly document (a JSON array of RawCollision).
func DecodeYear(r io.Reader) ([]RawCollision, error) {
	var raws []RawCollision
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("failed to decode collisions: %w", err)
	}
	return raws, nil
}

// DecodeMarkers reads a markers document: a JSON array of [lat, lon] pairs.
func DecodeMarkers(r io.Reader) ([]Location, error) {
	var pairs [][2]float64
	if err := json.NewDecoder(r).Decode(&pairs); err != nil {
		return nil, fmt.Errorf("failed to decode markers: %w", err)
	}
	locs := make([]Location, len(pairs))
	for i, p := range pairs {
		locs[i] = Location{Lat: p[0], Lon: p[1]}
	}
	return locs, nil
}

// Builder turns raw records into Collisions using one age-group and
// time-of-day policy.
type Builder struct {
	Ages     AgeGroups
	DayNight DayNight
}

// NewBuilder returns a Builder using the default age boundaries and
// day/night split.
func NewBuilder() *Builder {
	ages, _ := NewAgeGroups(DefaultAgeBoundaries)
	return &Builder{Ages: ages, DayNight: DefaultDayNight()}
}

// Build converts one raw record. Only the collision type can be rejected;
// unknown sexes, ages and injuries fall into their catch-all buckets.
func (b *Builder) Build(raw RawCollision) (Collision, error) {
	typ, err := TypeFromCode(raw.Type)
	if err != nil {
		return Collision{}, err
	}
	loc := b.DayNight.Location
	if loc == nil {
		loc = time.UTC
	}
	ts := time.Unix(raw.Time, 0).In(loc)

	victims := make([]Victim, 0, len(raw.Victims))
	for _, rv := range raw.Victims {
		victims = append(victims, NewVictim(rv.Age, SexFromCode(rv.Sex), NormalizeInjury(rv.Injury), b.Ages))
	}

	return Collision{
		Intersection: raw.Intersection,
		Time:         ts,
		Year:         ts.Year(),
		Type:         typ,
		TimeOfDay:    b.DayNight.Bucket(ts),
		Victims:      victims,
		Marker:       raw.Marker,
	}, nil
}

// ToRaw is the inverse of Build, used by the exporter and tests.
func ToRaw(c Collision) RawCollision {
	victims := make([]RawVictim, len(c.Victims))
	for i, v := range c.Victims {
		victims[i] = RawVictim{Age: v.Age, Sex: v.Sex.Code(), Injury: v.Injury.Raw()}
	}
	return RawCollision{
		Intersection: c.Intersection,
		Time:         c.Time.Unix(),
		Type:         int(c.Type),
		Marker:       c.Marker,
		Victims:      victims,
	}
}
