package grouping

import (
	"testing"

	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Key("marker/4"), KeyFor(&collision.Collision{Marker: 4, Intersection: "A & B"}))
	assert.Equal(t, Key("intersection/A & B"), KeyFor(&collision.Collision{Marker: -1, Intersection: "A & B"}))
}

func TestArenaGroupsByKey(t *testing.T) {
	t.Parallel()

	a := NewArena()
	c1 := &collision.Collision{Marker: 0, Intersection: "A & B"}
	c2 := &collision.Collision{Marker: 1, Intersection: "C & D"}
	c3 := &collision.Collision{Marker: 0, Intersection: "A & B"}

	g1 := a.Add(c1)
	g2 := a.Add(c2)
	g3 := a.Add(c3)
	assert.Same(t, g1, g3)
	assert.NotSame(t, g1, g2)
	assert.Equal(t, 2, a.Len())

	// Re-adding is a no-op.
	a.Add(c1)
	a.BeginPass()
	for _, c := range []*collision.Collision{c1, c2, c3} {
		a.MarkVisible(c, collision.OtherInjury)
	}
	assert.Equal(t, 2, g1.VisibleCount())

	got, err := a.Get(g2.Handle())
	require.NoError(t, err)
	assert.Same(t, g2, got)

	_, err = a.Get(Handle(7))
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestArenaPassKeepsIdentity(t *testing.T) {
	t.Parallel()

	a := NewArena()
	recs := []*collision.Collision{
		{Marker: 0}, {Marker: 0}, {Marker: 0},
	}
	var g *Group
	for _, c := range recs {
		g = a.Add(c)
	}

	a.BeginPass()
	for _, c := range recs {
		a.MarkVisible(c, collision.VisibleInjury)
	}
	assert.Equal(t, 3, g.VisibleCount())

	a.BeginPass()
	a.MarkVisible(recs[2], collision.SevereInjury)
	assert.Equal(t, 1, g.VisibleCount())
	assert.Equal(t, collision.SevereInjury, g.Severity())
	assert.Same(t, recs[2], g.Visible()[0])

	same, err := a.Get(g.Handle())
	require.NoError(t, err)
	assert.Same(t, g, same)

	a.BeginPass()
	assert.True(t, g.Hidden())
	assert.Equal(t, collision.OtherInjury, g.Severity())
	assert.Empty(t, a.RenderOrder())

	// Unknown records are ignored.
	a.MarkVisible(&collision.Collision{Marker: 9}, collision.Fatal)
	assert.Equal(t, 1, a.Len())
}

func TestRenderOrderPutsSinglesLast(t *testing.T) {
	t.Parallel()

	a := NewArena()
	single1 := &collision.Collision{Marker: 0}
	pairA := &collision.Collision{Marker: 1}
	pairB := &collision.Collision{Marker: 1}
	single2 := &collision.Collision{Marker: 2}
	for _, c := range []*collision.Collision{single1, pairA, pairB, single2} {
		a.Add(c)
	}

	a.BeginPass()
	for _, c := range []*collision.Collision{single1, pairA, pairB, single2} {
		a.MarkVisible(c, collision.OtherInjury)
	}

	order := a.RenderOrder()
	require.Len(t, order, 3)
	assert.Equal(t, Key("marker/1"), order[0].Key())
	assert.Equal(t, Key("marker/0"), order[1].Key())
	assert.Equal(t, Key("marker/2"), order[2].Key())

	// Uninjured but visible groups are still drawn.
	assert.False(t, order[2].Hidden())
}

func TestAnchor(t *testing.T) {
	t.Parallel()

	a := NewArena()
	g := a.Add(&collision.Collision{Marker: 1})
	_, ok := a.Anchor(g)
	assert.False(t, ok)

	a.SetLocations([]collision.Location{{Lat: 1, Lon: 2}, {Lat: 37.8, Lon: -122.27}})
	loc, ok := a.Anchor(g)
	require.True(t, ok)
	assert.Equal(t, collision.Location{Lat: 37.8, Lon: -122.27}, loc)

	byName := a.Add(&collision.Collision{Marker: -1, Intersection: "X"})
	_, ok = a.Anchor(byName)
	assert.False(t, ok)

	// [0,0] marks a failed geocode and is never drawn.
	failed := a.Add(&collision.Collision{Marker: 2, Intersection: "Y"})
	a.SetLocations([]collision.Location{{Lat: 1, Lon: 2}, {Lat: 37.8, Lon: -122.27}, {}})
	_, ok = a.Anchor(failed)
	assert.False(t, ok)
}
