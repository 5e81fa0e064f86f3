package category

import (
	"fmt"
	"strconv"

	"github.com/banshee-data/collision.report/internal/collision"
)

// Config maps each dimension to its definition. It is passed into the
// registry explicitly rather than living in package state.
type Config map[ID]Definition

// OtherYear is the catch-all name for years outside the configured list.
const OtherYear = "Other"

// DefaultConfig builds definitions for the given years, age groups and the
// fixed sex, type, injury and time-of-day dimensions. The year dimension
// gets a trailing OtherYear value.
func DefaultConfig(years []int, ages collision.AgeGroups) Config {
	yearNames := make([]string, 0, len(years)+1)
	for _, y := range years {
		yearNames = append(yearNames, strconv.Itoa(y))
	}
	yearNames = append(yearNames, OtherYear)

	return Config{
		Year:          {Names: yearNames},
		Sex:           {Names: []string{"Female", "Male", "Unknown"}},
		CollisionType: {Names: []string{"Bike", "Pedestrian"}},
		AgeGroup:      {Names: ages.Names(), Boundaries: ages.Bounds()},
		Injury:        {Names: []string{"Fatal", "Severe Injury", "Visible Injury", "Complaint of Pain", "Other"}},
		TimeOfDay:     {Names: []string{"Day", "Night"}},
	}
}

// Registry owns one Category per configured dimension.
type Registry struct {
	order []ID
	byID  map[ID]*Category
}

// NewRegistry validates the config and creates zeroed categories. Every
// dimension in All must be present with at least one value.
func NewRegistry(cfg Config) (*Registry, error) {
	r := &Registry{byID: make(map[ID]*Category, len(All))}
	for _, id := range All {
		def, ok := cfg[id]
		if !ok {
			return nil, fmt.Errorf("missing definition for category %q", id)
		}
		if len(def.Names) == 0 {
			return nil, fmt.Errorf("category %q has no values", id)
		}
		r.order = append(r.order, id)
		r.byID[id] = newCategory(id, def)
	}
	return r, nil
}

// Get returns the category for id.
func (r *Registry) Get(id ID) (*Category, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, id)
	}
	return c, nil
}

// MustGet is Get for ids known to be in All.
func (r *Registry) MustGet(id ID) *Category {
	c, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return c
}

// ResetCounts zeroes every category.
func (r *Registry) ResetCounts() {
	for _, id := range r.order {
		r.byID[id].ResetCounts()
	}
}

// Toggle flips one value of one category.
func (r *Registry) Toggle(id ID, index int) (State, error) {
	c, err := r.Get(id)
	if err != nil {
		return Active, err
	}
	return c.Toggle(index)
}

// IsActive reports whether a value is not excluded. Unknown categories and
// out-of-range indices report false.
func (r *Registry) IsActive(id ID, index int) bool {
	c, err := r.Get(id)
	if err != nil || index < 0 || index >= c.Len() {
		return false
	}
	return c.IsActive(index)
}

// Snapshots copies every category in display order.
func (r *Registry) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Snapshot())
	}
	return out
}
