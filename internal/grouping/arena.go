// Package grouping clusters collisions that share a marker (or, without a
// marker, an intersection name) into persistent groups for map display.
//
// Groups are created once per key and live for the life of the Arena. Each
// aggregation pass only rewrites a group's visible subset and severity, so a
// Handle held by a renderer stays valid across filter changes.
package grouping

import (
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/collision.report/internal/collision"
)

var ErrUnknownHandle = errors.New("unknown group handle")

// Key identifies a group.
type Key string

// Handle is a stable, lightweight reference to a group, suitable for
// handing to renderers.
type Handle int

// KeyFor derives the grouping key of a record.
func KeyFor(c *collision.Collision) Key {
	if c.Marker >= 0 {
		return Key(fmt.Sprintf("marker/%d", c.Marker))
	}
	return Key("intersection/" + c.Intersection)
}

// Group is a persistent cluster of records at one location.
type Group struct {
	handle   Handle
	key      Key
	marker   int
	name     string
	visible  []*collision.Collision
	severity collision.InjuryRank
}

func (g *Group) Handle() Handle { return g.handle }
func (g *Group) Key() Key       { return g.key }
func (g *Group) Marker() int    { return g.marker }

// Intersection is the name of the first record added to the group.
func (g *Group) Intersection() string { return g.name }

// Visible returns the records that survived the last aggregation pass.
func (g *Group) Visible() []*collision.Collision {
	return append([]*collision.Collision(nil), g.visible...)
}

func (g *Group) VisibleCount() int { return len(g.visible) }

// Severity is the most severe injury over the visible records, or
// OtherInjury when nothing is visible.
func (g *Group) Severity() collision.InjuryRank { return g.severity }

// Hidden reports whether the group has nothing to draw.
func (g *Group) Hidden() bool { return len(g.visible) == 0 }

// Arena stores groups in insertion order, keyed by Key.
type Arena struct {
	groups    []*Group
	byKey     map[Key]*Group
	owner     map[*collision.Collision]*Group
	locations []collision.Location
}

func NewArena() *Arena {
	return &Arena{
		byKey: make(map[Key]*Group),
		owner: make(map[*collision.Collision]*Group),
	}
}

// Add places c in the group for its key, creating the group on first use.
// Adding the same record twice is a no-op.
func (a *Arena) Add(c *collision.Collision) *Group {
	if g, ok := a.owner[c]; ok {
		return g
	}
	key := KeyFor(c)
	g, ok := a.byKey[key]
	if !ok {
		g = &Group{
			handle:   Handle(len(a.groups)),
			key:      key,
			marker:   c.Marker,
			name:     c.Intersection,
			severity: collision.OtherInjury,
		}
		a.groups = append(a.groups, g)
		a.byKey[key] = g
	}
	a.owner[c] = g
	return g
}

// Len is the number of groups ever created.
func (a *Arena) Len() int { return len(a.groups) }

// Get resolves a handle.
func (a *Arena) Get(h Handle) (*Group, error) {
	if h < 0 || int(h) >= len(a.groups) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return a.groups[h], nil
}

// SetLocations installs the marker coordinates used by Anchor.
func (a *Arena) SetLocations(locs []collision.Location) {
	a.locations = append([]collision.Location(nil), locs...)
}

// Anchor returns the map coordinate of g, if its marker is known and is
// not the [0,0] placeholder of a failed geocode.
func (a *Arena) Anchor(g *Group) (collision.Location, bool) {
	if g.marker < 0 || g.marker >= len(a.locations) {
		return collision.Location{}, false
	}
	loc := a.locations[g.marker]
	if loc.IsZero() {
		return collision.Location{}, false
	}
	return loc, true
}

// BeginPass clears every group's visible subset ahead of an aggregation pass.
func (a *Arena) BeginPass() {
	for _, g := range a.groups {
		g.visible = g.visible[:0]
		g.severity = collision.OtherInjury
	}
}

// MarkVisible records that c survived filtering with the given severity.
// Records that were never added are ignored.
func (a *Arena) MarkVisible(c *collision.Collision, severity collision.InjuryRank) {
	g, ok := a.owner[c]
	if !ok {
		return
	}
	g.visible = append(g.visible, c)
	if severity < g.severity {
		g.severity = severity
	}
}

// RenderOrder returns the non-hidden groups with multi-record groups first
// and single-record groups last, so single markers draw on top. The sort is
// stable over insertion order.
func (a *Arena) RenderOrder() []*Group {
	out := make([]*Group, 0, len(a.groups))
	for _, g := range a.groups {
		if !g.Hidden() {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].visible) > len(out[j].visible)
	})
	return out
}
