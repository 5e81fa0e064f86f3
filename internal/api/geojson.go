package api

import (
	"net/http"

	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/collision.report/internal/httputil"
)

// groupsGeoJSON serves the visible groups as point features in render
// order. Groups without a marker coordinate have nothing to place and are
// left out.
func (s *Server) groupsGeoJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	s.mu.Lock()
	views := s.engine.Groups()
	s.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	for _, g := range views {
		if !g.HasAnchor {
			continue
		}
		gj := s.groupJSON(g)
		f := geojson.NewFeature(g.Anchor.Point())
		f.ID = gj.Handle
		f.Properties["key"] = gj.Key
		f.Properties["intersection"] = gj.Intersection
		f.Properties["severity"] = gj.Severity
		f.Properties["color"] = gj.Color
		f.Properties["records"] = gj.Records
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}
