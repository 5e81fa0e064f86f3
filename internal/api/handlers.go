package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/collision.report/internal/aggregate"
	"github.com/banshee-data/collision.report/internal/category"
	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/banshee-data/collision.report/internal/grouping"
	"github.com/banshee-data/collision.report/internal/httputil"
)

// GroupJSON is one visible map group.
type GroupJSON struct {
	Handle       int         `json:"handle"`
	Key          string      `json:"key"`
	Intersection string      `json:"intersection"`
	Anchor       *[2]float64 `json:"anchor,omitempty"`
	Severity     string      `json:"severity"`
	Color        string      `json:"color"`
	Records      int         `json:"records"`
}

// VictimJSON describes one visible victim in a group detail.
type VictimJSON struct {
	Description string `json:"description"`
	Flag        string `json:"flag,omitempty"`
}

// RecordJSON is one record in a group detail.
type RecordJSON struct {
	Date           string       `json:"date"`
	Time           string       `json:"time"`
	Type           string       `json:"type"`
	Victims        []VictimJSON `json:"victims"`
	Fatalities     int          `json:"fatalities"`
	SevereInjuries int          `json:"severe_injuries"`
}

// GroupDetailJSON is the popup content for one group.
type GroupDetailJSON struct {
	GroupJSON
	Details []RecordJSON `json:"details"`
}

// ToggleRequest names one category value to flip.
type ToggleRequest struct {
	Category string `json:"category"`
	Index    *int   `json:"index"`
}

// ToggleResponse reports the new state and the recomputed categories.
type ToggleResponse struct {
	Category   string              `json:"category"`
	Index      int                 `json:"index"`
	State      string              `json:"state"`
	Categories []category.Snapshot `json:"categories"`
}

var severityNames = [collision.NumInjuryRanks]string{"fatal", "severe", "visible", "pain", "other"}

func severityName(r collision.InjuryRank) string {
	if r < 0 || int(r) >= len(severityNames) {
		return "other"
	}
	return severityNames[r]
}

// colorFor maps a group severity to its marker color.
func (s *Server) colorFor(r collision.InjuryRank) string {
	switch r {
	case collision.Fatal:
		return s.cfg.GetFatalColor()
	case collision.SevereInjury:
		return s.cfg.GetSevereColor()
	default:
		return s.cfg.GetOtherColor()
	}
}

func (s *Server) groupJSON(g aggregate.GroupView) GroupJSON {
	out := GroupJSON{
		Handle:       int(g.Handle),
		Key:          string(g.Key),
		Intersection: g.Intersection,
		Severity:     severityName(g.Severity),
		Color:        s.colorFor(g.Severity),
		Records:      len(g.Records),
	}
	if g.HasAnchor {
		out.Anchor = &[2]float64{g.Anchor.Lat, g.Anchor.Lon}
	}
	return out
}

// describeVictim renders e.g. "34 year old female".
func describeVictim(v collision.Victim) VictimJSON {
	out := VictimJSON{
		Description: strings.TrimSpace(fmt.Sprintf("%s year old %s", v.AgeString(), v.Sex)),
	}
	switch {
	case v.IsFatality():
		out.Flag = "FATAL"
	case v.IsSevereInjury():
		out.Flag = "SEVERE INJURY"
	}
	return out
}

func (s *Server) recordJSON(rv aggregate.RecordView) RecordJSON {
	c := rv.Collision
	out := RecordJSON{
		Date:           c.DateString(s.loc),
		Time:           c.TimeString(s.loc),
		Type:           c.Type.String(),
		Victims:        []VictimJSON{},
		Fatalities:     c.NumberOfFatalities(),
		SevereInjuries: c.NumberOfSevereInjuries(),
	}
	for _, v := range rv.VisibleVictims() {
		out.Victims = append(out.Victims, describeVictim(v))
	}
	return out
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s.mu.Lock()
	snaps := s.engine.Result().Categories
	s.mu.Unlock()
	httputil.WriteJSONOK(w, snaps)
}

func (s *Server) groups() []GroupJSON {
	s.mu.Lock()
	views := s.engine.Groups()
	s.mu.Unlock()

	out := make([]GroupJSON, len(views))
	for i, g := range views {
		out[i] = s.groupJSON(g)
	}
	return out
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.groups())
}

func (s *Server) showGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	h, err := strconv.Atoi(r.PathValue("handle"))
	if err != nil {
		httputil.BadRequest(w, "invalid group handle")
		return
	}

	s.mu.Lock()
	g, err := s.engine.Group(grouping.Handle(h))
	s.mu.Unlock()
	if errors.Is(err, grouping.ErrUnknownHandle) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	detail := GroupDetailJSON{GroupJSON: s.groupJSON(g), Details: make([]RecordJSON, 0, len(g.Records))}
	for _, rv := range g.Records {
		detail.Details = append(detail.Details, s.recordJSON(rv))
	}
	httputil.WriteJSONOK(w, detail)
}

func (s *Server) listFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s.mu.Lock()
	snaps := s.engine.Result().Categories
	s.mu.Unlock()

	filters := make(map[category.ID][]bool, len(snaps))
	for _, snap := range snaps {
		filters[snap.ID] = snap.Active
	}
	httputil.WriteJSONOK(w, filters)
}

func (s *Server) toggleFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req ToggleRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Category == "" || req.Index == nil {
		httputil.BadRequest(w, "category and index are required")
		return
	}

	s.mu.Lock()
	timer := newRecomputeTimer("toggle")
	state, res, err := s.engine.Toggle(category.ID(req.Category), *req.Index)
	timer.ObserveDuration()
	s.mu.Unlock()

	if errors.Is(err, category.ErrUnknownCategory) || errors.Is(err, category.ErrIndexOutOfRange) {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	filterToggles.WithLabelValues(req.Category).Inc()
	visibleRecords.Set(float64(len(res.Records)))
	httputil.WriteJSONOK(w, ToggleResponse{
		Category:   req.Category,
		Index:      *req.Index,
		State:      state.String(),
		Categories: res.Categories,
	})
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s.mu.Lock()
	summary := s.engine.Summary()
	s.mu.Unlock()
	httputil.WriteJSONOK(w, summary)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]any{
		"city":   s.cfg.GetCity(),
		"region": s.cfg.GetRegion(),
		"center": s.cfg.GetMapCenter(),
		"zoom":   s.cfg.GetMapZoom(),
		"years":  s.cfg.GetYears(),
		"colors": map[string]string{
			"fatal":  s.cfg.GetFatalColor(),
			"severe": s.cfg.GetSevereColor(),
			"other":  s.cfg.GetOtherColor(),
		},
	})
}
