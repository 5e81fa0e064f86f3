package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/collision.report/internal/category"
	"github.com/banshee-data/collision.report/internal/httputil"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// categoryBar renders one category as a bar chart. Excluded values keep
// their bar but are greyed out.
func categoryBar(snap category.Snapshot) *charts.Bar {
	y := make([]opts.BarData, len(snap.Counts))
	for i, n := range snap.Counts {
		y[i] = opts.BarData{Value: n}
		if i < len(snap.Active) && !snap.Active[i] {
			y[i].ItemStyle = &opts.ItemStyle{Color: "#cccccc"}
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: string(snap.ID), Subtitle: fmt.Sprintf("%d counted", snap.Total())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(snap.Names).
		AddSeries(string(snap.ID), y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// handleCategoryCharts renders every category's counts on one page.
func (s *Server) handleCategoryCharts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	s.mu.Lock()
	snaps := s.engine.Result().Categories
	s.mu.Unlock()

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	for _, snap := range snaps {
		page.AddCharts(categoryBar(snap))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
