// Package aggregate recomputes category counts, the filtered record set and
// group severities from the loaded collisions and the current filter state.
//
// Every filter change triggers a full recompute; nothing is patched
// incrementally. The Engine is not safe for concurrent use: callers that
// share one across goroutines must serialise access.
package aggregate

import (
	"strconv"

	"github.com/banshee-data/collision.report/internal/category"
	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/banshee-data/collision.report/internal/grouping"
)

// RecordView is a record that survived filtering.
type RecordView struct {
	Collision *collision.Collision
	// Victims indexes the victims that passed the victim-level filters.
	Victims []int
	// Severity is the most severe injury over Victims, or OtherInjury when
	// the record has no victims.
	Severity collision.InjuryRank
}

// VisibleVictims resolves Victims against the record.
func (v RecordView) VisibleVictims() []collision.Victim {
	out := make([]collision.Victim, len(v.Victims))
	for i, idx := range v.Victims {
		out[i] = v.Collision.Victims[idx]
	}
	return out
}

// Result is the stable snapshot produced by one pass.
type Result struct {
	Records    []RecordView
	Categories []category.Snapshot
}

// Engine owns the accumulated records, the category state and the group
// arena.
type Engine struct {
	reg       *category.Registry
	arena     *grouping.Arena
	records   []*collision.Collision
	yearIndex map[int]int
	otherYear int

	result  Result
	viewIdx map[*collision.Collision]int
}

// New creates an engine over reg. The registry's Year names are parsed as
// years; a trailing category.OtherYear value catches everything else.
func New(reg *category.Registry) *Engine {
	e := &Engine{
		reg:       reg,
		arena:     grouping.NewArena(),
		yearIndex: make(map[int]int),
		otherYear: -1,
		viewIdx:   make(map[*collision.Collision]int),
	}
	for i, name := range reg.MustGet(category.Year).Names() {
		if name == category.OtherYear {
			e.otherYear = i
			continue
		}
		if y, err := strconv.Atoi(name); err == nil {
			e.yearIndex[y] = i
		}
	}
	e.result = Result{Categories: reg.Snapshots()}
	return e
}

// Registry exposes the category state, mainly for tests and adapters.
func (e *Engine) Registry() *category.Registry { return e.reg }

// Arena exposes the group arena.
func (e *Engine) Arena() *grouping.Arena { return e.arena }

// Len is the number of loaded records.
func (e *Engine) Len() int { return len(e.records) }

// Add appends records and assigns them to groups. Records are never removed.
// Call Recompute afterwards to refresh the snapshot.
func (e *Engine) Add(cs ...collision.Collision) {
	for i := range cs {
		c := cs[i]
		e.records = append(e.records, &c)
		e.arena.Add(&c)
	}
}

// Append is Add followed by Recompute.
func (e *Engine) Append(cs ...collision.Collision) Result {
	e.Add(cs...)
	return e.Recompute()
}

// SetLocations installs marker coordinates for group anchors.
func (e *Engine) SetLocations(locs []collision.Location) {
	e.arena.SetLocations(locs)
}

// YearIndex maps a year to its Year category value, or -1 if the year is
// not configured and there is no catch-all value.
func (e *Engine) YearIndex(year int) int {
	if i, ok := e.yearIndex[year]; ok {
		return i
	}
	return e.otherYear
}

// Recompute rebuilds counts, the filtered set and group severities from
// scratch. It is a pure function of the loaded records and filter state.
func (e *Engine) Recompute() Result {
	var (
		years    = e.reg.MustGet(category.Year)
		sexes    = e.reg.MustGet(category.Sex)
		types    = e.reg.MustGet(category.CollisionType)
		ages     = e.reg.MustGet(category.AgeGroup)
		injuries = e.reg.MustGet(category.Injury)
		times    = e.reg.MustGet(category.TimeOfDay)
	)

	e.reg.ResetCounts()
	e.arena.BeginPass()
	views := make([]RecordView, 0, len(e.records))
	viewIdx := make(map[*collision.Collision]int, len(e.records))

	include := func(_ int, v collision.Victim) bool {
		return !sexes.IsExcluded(int(v.Sex)) && !ages.IsExcluded(v.AgeGroup) && !injuries.IsExcluded(int(v.Injury))
	}

	for _, c := range e.records {
		yi := e.YearIndex(c.Year)
		if years.IsExcluded(yi) || types.IsExcluded(int(c.Type)) || times.IsExcluded(int(c.TimeOfDay)) {
			continue
		}

		severity := collision.OtherInjury
		var kept []int

		if len(c.Victims) == 0 {
			// A record without victims behaves as if it had one victim with
			// an "other" injury; it contributes no victim counts.
			if injuries.IsExcluded(int(collision.OtherInjury)) {
				continue
			}
		} else {
			for i, v := range c.Victims {
				if !include(i, v) {
					continue
				}
				kept = append(kept, i)
				sexes.Increment(int(v.Sex))
				ages.Increment(v.AgeGroup)
				injuries.Increment(int(v.Injury))
			}
			// Every victim was filtered out: the record is not shown just to
			// present an empty victim list.
			if len(kept) == 0 {
				continue
			}
			severity = c.MostSevereInjury(include)
		}

		years.Increment(yi)
		types.Increment(int(c.Type))
		times.Increment(int(c.TimeOfDay))

		viewIdx[c] = len(views)
		views = append(views, RecordView{Collision: c, Victims: kept, Severity: severity})
		e.arena.MarkVisible(c, severity)
	}

	e.viewIdx = viewIdx
	e.result = Result{Records: views, Categories: e.reg.Snapshots()}
	return e.result
}

// Result returns the snapshot of the last pass.
func (e *Engine) Result() Result { return e.result }

// Toggle flips one filter value and recomputes.
func (e *Engine) Toggle(id category.ID, index int) (category.State, Result, error) {
	state, err := e.reg.Toggle(id, index)
	if err != nil {
		return state, e.result, err
	}
	return state, e.Recompute(), nil
}

// IsActive reports whether a filter value is currently shown.
func (e *Engine) IsActive(id category.ID, index int) bool {
	return e.reg.IsActive(id, index)
}

// View returns the record view for c from the last pass.
func (e *Engine) View(c *collision.Collision) (RecordView, bool) {
	i, ok := e.viewIdx[c]
	if !ok {
		return RecordView{}, false
	}
	return e.result.Records[i], true
}
