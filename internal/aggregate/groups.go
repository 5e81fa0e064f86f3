package aggregate

import (
	"sort"

	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/banshee-data/collision.report/internal/grouping"
)

// GroupView is the renderer-facing copy of a visible group.
type GroupView struct {
	Handle       grouping.Handle
	Key          grouping.Key
	Intersection string
	Anchor       collision.Location
	HasAnchor    bool
	Severity     collision.InjuryRank
	Records      []RecordView
}

func (e *Engine) groupView(g *grouping.Group) GroupView {
	anchor, ok := e.arena.Anchor(g)
	gv := GroupView{
		Handle:       g.Handle(),
		Key:          g.Key(),
		Intersection: g.Intersection(),
		Anchor:       anchor,
		HasAnchor:    ok,
		Severity:     g.Severity(),
	}
	for _, c := range g.Visible() {
		if v, ok := e.View(c); ok {
			gv.Records = append(gv.Records, v)
		}
	}
	return gv
}

// Groups returns the visible groups in render order: groups with several
// visible records first, single-record groups last.
func (e *Engine) Groups() []GroupView {
	order := e.arena.RenderOrder()
	out := make([]GroupView, 0, len(order))
	for _, g := range order {
		out = append(out, e.groupView(g))
	}
	return out
}

// Group returns one group by handle, whether or not it is currently visible.
// Its records are sorted by time for detail display.
func (e *Engine) Group(h grouping.Handle) (GroupView, error) {
	g, err := e.arena.Get(h)
	if err != nil {
		return GroupView{}, err
	}
	gv := e.groupView(g)
	sort.SliceStable(gv.Records, func(i, j int) bool {
		return gv.Records[i].Collision.Time.Before(gv.Records[j].Collision.Time)
	})
	return gv, nil
}
