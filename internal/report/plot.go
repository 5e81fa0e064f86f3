// Package report writes static PNG charts of the category counts.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/collision.report/internal/category"
	"github.com/banshee-data/collision.report/internal/monitoring"
)

var (
	activeColor   = color.RGBA{R: 0x33, G: 0x66, B: 0xcc, A: 0xff}
	excludedColor = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
)

// Plotter renders one bar chart per category into outputDir.
type Plotter struct {
	outputDir string
	width     vg.Length
	height    vg.Length
}

// NewPlotter creates outputDir if needed.
func NewPlotter(outputDir string) (*Plotter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outputDir, err)
	}
	return &Plotter{outputDir: outputDir, width: 8 * vg.Inch, height: 4 * vg.Inch}, nil
}

// FileName is the chart file for a category.
func FileName(id category.ID) string {
	return string(id) + ".png"
}

// Plot draws the counts of one category. Excluded values are drawn grey.
func (p *Plotter) Plot(snap category.Snapshot) (string, error) {
	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%s (%d counted)", snap.ID, snap.Total())
	pl.Y.Label.Text = "count"

	width := vg.Points(24)
	for i, n := range snap.Counts {
		values := make(plotter.Values, len(snap.Counts))
		values[i] = float64(n)
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return "", fmt.Errorf("%s: %w", snap.ID, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = activeColor
		if i < len(snap.Active) && !snap.Active[i] {
			bars.Color = excludedColor
		}
		pl.Add(bars)
	}
	pl.NominalX(snap.Names...)

	path := filepath.Join(p.outputDir, FileName(snap.ID))
	if err := pl.Save(p.width, p.height, path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, nil
}

// PlotAll draws every snapshot and returns the written paths.
func (p *Plotter) PlotAll(snaps []category.Snapshot) ([]string, error) {
	paths := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		path, err := p.Plot(snap)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	monitoring.Logf("report: wrote %d charts to %s", len(paths), p.outputDir)
	return paths, nil
}
