package report

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/collision.report/internal/category"
	"github.com/banshee-data/collision.report/internal/monitoring"
)

func TestPlotAll(t *testing.T) {
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	defer func() { monitoring.Logf = original }()

	dir := filepath.Join(t.TempDir(), "charts")
	p, err := NewPlotter(dir)
	require.NoError(t, err)

	snaps := []category.Snapshot{
		{ID: category.Sex, Names: []string{"Female", "Male", "Unknown"}, Counts: []int{3, 5, 0}, Active: []bool{true, false, true}},
		{ID: category.TimeOfDay, Names: []string{"Day", "Night"}, Counts: []int{0, 0}, Active: []bool{true, true}},
	}
	paths, err := p.PlotAll(snaps)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "sex.png"),
		filepath.Join(dir, "time_of_day.png"),
	}, paths)

	for _, path := range paths {
		f, err := os.Open(path)
		require.NoError(t, err)
		_, err = png.DecodeConfig(f)
		f.Close()
		assert.NoError(t, err, path)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "age.png", FileName(category.AgeGroup))
}
