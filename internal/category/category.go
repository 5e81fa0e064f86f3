// Package category defines the filterable dimensions of the collision data
// set, their per-value counts and the set of excluded values.
package category

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrIndexOutOfRange = errors.New("category index out of range")
)

// ID names a filter dimension.
type ID string

const (
	Year          ID = "year"
	Sex           ID = "sex"
	CollisionType ID = "type"
	AgeGroup      ID = "age"
	Injury        ID = "injury"
	TimeOfDay     ID = "time_of_day"
)

// All lists the dimensions in display order.
var All = []ID{Year, Sex, CollisionType, AgeGroup, Injury, TimeOfDay}

// State of a single category value.
type State int

const (
	Active State = iota
	Excluded
)

func (s State) String() string {
	if s == Excluded {
		return "excluded"
	}
	return "active"
}

// Definition is the static part of a category.
type Definition struct {
	Names []string `json:"names"`
	// Boundaries holds range upper bounds for range-derived categories.
	Boundaries []int `json:"boundaries,omitempty"`
}

// Category carries the counts and excluded values for one dimension.
// Counts is always parallel to Names.
type Category struct {
	id       ID
	def      Definition
	counts   []int
	excluded map[int]struct{}
}

func newCategory(id ID, def Definition) *Category {
	return &Category{
		id:       id,
		def:      def,
		counts:   make([]int, len(def.Names)),
		excluded: make(map[int]struct{}),
	}
}

func (c *Category) ID() ID { return c.id }

func (c *Category) Len() int { return len(c.def.Names) }

func (c *Category) Names() []string {
	return append([]string(nil), c.def.Names...)
}

// Counts returns a copy of the current counts.
func (c *Category) Counts() []int {
	return append([]int(nil), c.counts...)
}

// Count returns the count for one value, or 0 when out of range.
func (c *Category) Count(i int) int {
	if i < 0 || i >= len(c.counts) {
		return 0
	}
	return c.counts[i]
}

// ResetCounts zeroes every count.
func (c *Category) ResetCounts() {
	for i := range c.counts {
		c.counts[i] = 0
	}
}

// Increment bumps the count of value i. Out-of-range indices are ignored.
func (c *Category) Increment(i int) {
	if i >= 0 && i < len(c.counts) {
		c.counts[i]++
	}
}

// IsExcluded reports whether value i is filtered out.
func (c *Category) IsExcluded(i int) bool {
	_, ok := c.excluded[i]
	return ok
}

// IsActive is the negation of IsExcluded.
func (c *Category) IsActive(i int) bool {
	return !c.IsExcluded(i)
}

// StateOf returns the current state of value i.
func (c *Category) StateOf(i int) State {
	if c.IsExcluded(i) {
		return Excluded
	}
	return Active
}

// Toggle flips value i between Active and Excluded and returns the new state.
func (c *Category) Toggle(i int) (State, error) {
	if i < 0 || i >= len(c.def.Names) {
		return Active, fmt.Errorf("%w: %s[%d] (len %d)", ErrIndexOutOfRange, c.id, i, len(c.def.Names))
	}
	switch c.StateOf(i) {
	case Active:
		c.excluded[i] = struct{}{}
		return Excluded, nil
	default:
		delete(c.excluded, i)
		return Active, nil
	}
}

// Snapshot is the renderer-facing copy of a category.
type Snapshot struct {
	ID     ID       `json:"id"`
	Names  []string `json:"names"`
	Counts []int    `json:"counts"`
	Active []bool   `json:"active"`
}

// Snapshot copies the category so callers never alias engine state.
func (c *Category) Snapshot() Snapshot {
	active := make([]bool, c.Len())
	for i := range active {
		active[i] = c.IsActive(i)
	}
	return Snapshot{
		ID:     c.id,
		Names:  c.Names(),
		Counts: c.Counts(),
		Active: active,
	}
}

// Total sums a snapshot's counts.
func (s Snapshot) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}
