// Package dataset turns the stored bike and pedestrian collisions into the
// documents served to the map: one "<city>-<year>.json" per year and a
// shared markers.json of coordinates.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/banshee-data/collision.report/internal/loader"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/security"
	"github.com/banshee-data/collision.report/internal/switrs"
)

// Source is the store the exporter reads from.
type Source interface {
	BikeAndPedestrianCollisions(ctx context.Context) ([]switrs.Collision, error)
	VictimsOf(ctx context.Context, ids []string) (map[string][]switrs.Victim, error)
}

// Documents is the content of an export before it is written.
type Documents struct {
	Years   map[int][]collision.RawCollision
	Markers [][2]float64
	Skipped int
}

// Build converts collisions and their victims into documents. Times are
// read as wall-clock time in loc. A marker index is the position of the
// first collision with an identical coordinate.
func Build(cs []switrs.Collision, victims map[string][]switrs.Victim, loc *time.Location) Documents {
	docs := Documents{Years: make(map[int][]collision.RawCollision)}
	markerIndex := make(map[[2]float64]int)

	for i := range cs {
		c := &cs[i]
		typ, ok := c.Type()
		if !ok {
			docs.Skipped++
			continue
		}
		ts, err := c.Timestamp(loc)
		if err != nil {
			monitoring.Logf("dataset: skipping %v", err)
			docs.Skipped++
			continue
		}

		// Failed geocodes are stored as [0,0]; they group by intersection.
		marker := -1
		if loc := (collision.Location{Lat: c.Latitude, Lon: c.Longitude}); !loc.IsZero() {
			coord := [2]float64{c.Latitude, c.Longitude}
			var seen bool
			marker, seen = markerIndex[coord]
			if !seen {
				marker = len(docs.Markers)
				markerIndex[coord] = marker
				docs.Markers = append(docs.Markers, coord)
			}
		}

		vs := victims[c.ID]
		raws := make([]collision.RawVictim, len(vs))
		for j := range vs {
			raws[j] = collision.RawVictim{
				Age:    vs[j].ReportAge(),
				Sex:    vs[j].SexCode(),
				Injury: vs[j].DegreeOfInjury,
			}
		}

		docs.Years[ts.Year()] = append(docs.Years[ts.Year()], collision.RawCollision{
			Intersection: c.IntersectionString(),
			Time:         ts.Unix(),
			Type:         int(typ),
			Marker:       marker,
			Victims:      raws,
		})
	}
	return docs
}

// YearFile names the document for one year.
func YearFile(city string, year int) string {
	return fmt.Sprintf("%s-%d.json", city, year)
}

// Write stores the documents under dir. Only the listed years are written;
// a listed year without collisions gets an empty document. Each file is
// renamed into place so a concurrent loader never sees a partial file.
func (d Documents) Write(dir, city string, years []int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	markers := d.Markers
	if markers == nil {
		markers = [][2]float64{}
	}
	if err := writeJSON(filepath.Join(dir, loader.MarkersFile), markers); err != nil {
		return nil, err
	}
	written := []string{loader.MarkersFile}

	sorted := append([]int(nil), years...)
	sort.Ints(sorted)
	for _, y := range sorted {
		records := d.Years[y]
		if records == nil {
			records = []collision.RawCollision{}
		}
		name := YearFile(city, y)
		path := filepath.Join(dir, name)
		if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
			return written, err
		}
		if err := writeJSON(path, records); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

func writeJSON(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Export reads src and writes the documents for the given years.
func Export(ctx context.Context, src Source, dir, city string, years []int, loc *time.Location) ([]string, error) {
	cs, err := src.BikeAndPedestrianCollisions(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(cs))
	for i := range cs {
		ids[i] = cs[i].ID
	}
	victims, err := src.VictimsOf(ctx, ids)
	if err != nil {
		return nil, err
	}

	docs := Build(cs, victims, loc)
	if docs.Skipped > 0 {
		monitoring.Logf("dataset: skipped %d collisions", docs.Skipped)
	}
	for y, records := range docs.Years {
		if !slices.Contains(years, y) {
			monitoring.Logf("dataset: %d collisions in %d are outside the configured years", len(records), y)
		}
	}
	return docs.Write(dir, city, years)
}
