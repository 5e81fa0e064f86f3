// Package loader reads the markers document and the yearly collision
// documents from a data directory and hands the records to a sink as each
// file arrives.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/banshee-data/collision.report/internal/monitoring"
)

// MarkersFile is the name of the marker coordinate document.
const MarkersFile = "markers.json"

// maxConcurrentReads bounds how many yearly files are decoded at once.
const maxConcurrentReads = 4

// Sink receives decoded data. Calls are serialised by the Loader.
type Sink interface {
	SetLocations(locs []collision.Location)
	Append(file string, cs []collision.Collision)
}

// Loader tracks which yearly files have been applied so that repeated
// loads only pick up new files.
type Loader struct {
	fsys    fs.FS
	city    string
	builder *collision.Builder

	// loadMu serialises whole Load calls and guards markers; mu guards
	// loaded.
	loadMu  sync.Mutex
	markers []byte
	mu      sync.Mutex
	loaded  map[string]bool
}

// New creates a loader over fsys for files named "<city>-<year>.json".
func New(fsys fs.FS, city string, builder *collision.Builder) *Loader {
	return &Loader{
		fsys:    fsys,
		city:    city,
		builder: builder,
		loaded:  make(map[string]bool),
	}
}

// refreshMarkers applies the markers document when its content differs
// from the last one applied. An export rewrites it with every new
// coordinate appended, so existing indices keep their meaning.
func (l *Loader) refreshMarkers(sink Sink) error {
	data, err := fs.ReadFile(l.fsys, MarkersFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", MarkersFile, err)
	}
	if l.markers != nil && bytes.Equal(data, l.markers) {
		return nil
	}
	locs, err := collision.DecodeMarkers(bytes.NewReader(data))
	if err != nil {
		return err
	}
	sink.SetLocations(locs)
	l.markers = data
	monitoring.Logf("loader: applied %d markers", len(locs))
	return nil
}

// YearFiles lists the yearly documents in name order.
func (l *Loader) YearFiles() ([]string, error) {
	matches, err := fs.Glob(l.fsys, l.city+"-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list yearly files: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Loaded reports whether file has already been applied.
func (l *Loader) Loaded(file string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[file]
}

// LoadFile decodes one yearly document into collisions. Records with an
// unknown collision type are skipped and counted.
func (l *Loader) LoadFile(file string) ([]collision.Collision, int, error) {
	f, err := l.fsys.Open(file)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	raws, err := collision.DecodeYear(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", file, err)
	}

	out := make([]collision.Collision, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		c, err := l.builder.Build(raw)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, c)
	}
	return out, skipped, nil
}

// Load applies the markers document when it changed and every yearly file
// not yet applied. Files are decoded concurrently and applied to sink one at a time
// as they finish. A file that fails to load is logged, left unapplied for
// the next call and reported in the returned error; it never affects files
// that loaded.
func (l *Loader) Load(ctx context.Context, sink Sink) (int, error) {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	var errs []error
	if err := l.refreshMarkers(sink); err != nil {
		monitoring.Logf("loader: %v", err)
		errs = append(errs, err)
	}

	files, err := l.YearFiles()
	if err != nil {
		return 0, err
	}

	var (
		applyMu sync.Mutex
		applied int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for _, file := range files {
		if l.Loaded(file) {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cs, skipped, err := l.LoadFile(file)
			if err != nil {
				monitoring.Logf("loader: skipping %s: %v", file, err)
				applyMu.Lock()
				errs = append(errs, err)
				applyMu.Unlock()
				return nil
			}

			applyMu.Lock()
			defer applyMu.Unlock()
			sink.Append(path.Base(file), cs)
			applied++
			l.mu.Lock()
			l.loaded[file] = true
			l.mu.Unlock()
			if skipped > 0 {
				monitoring.Logf("loader: %s: skipped %d records with unknown type", file, skipped)
			}
			monitoring.Logf("loader: applied %d collisions from %s", len(cs), file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	return applied, errors.Join(errs...)
}
