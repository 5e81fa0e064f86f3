package loader

import (
	"context"
	"sort"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/banshee-data/collision.report/internal/monitoring"
)

type recordingSink struct {
	mu    sync.Mutex
	locs  []collision.Location
	files []string
	recs  []collision.Collision
}

func (s *recordingSink) SetLocations(locs []collision.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locs = locs
}

func (s *recordingSink) Append(file string, cs []collision.Collision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, file)
	s.recs = append(s.recs, cs...)
}

func (s *recordingSink) sortedFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.files...)
	sort.Strings(out)
	return out
}

func newTestLoader(fsys fstest.MapFS) *Loader {
	b := collision.NewBuilder()
	b.DayNight.Location = time.UTC
	return New(fsys, "oakland", b)
}

func quietLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func TestLoadAppliesAllFiles(t *testing.T) {
	quietLogs(t)

	fsys := fstest.MapFS{
		"markers.json":      {Data: []byte(`[[37.8,-122.27],[37.81,-122.26]]`)},
		"oakland-2010.json": {Data: []byte(`[{"intersection":"A & B","time":1275000000,"type":0,"marker":0,"victims":[{"age":30,"sex":1,"injury":2}]}]`)},
		"oakland-2011.json": {Data: []byte(`[{"intersection":"C & D","time":1306000000,"type":1,"marker":1,"victims":[]},{"intersection":"bad","time":1306000000,"type":9,"marker":1,"victims":[]}]`)},
		"notes.txt":         {Data: []byte("ignored")},
	}
	l := newTestLoader(fsys)
	sink := &recordingSink{}

	n, err := l.Load(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, sink.locs, 2)
	assert.Equal(t, []string{"oakland-2010.json", "oakland-2011.json"}, sink.sortedFiles())
	assert.Len(t, sink.recs, 2, "unknown collision type is skipped")

	// A second load finds nothing new.
	n, err = l.Load(context.Background(), sink)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, sink.recs, 2)

	// New files are picked up later.
	fsys["oakland-2012.json"] = &fstest.MapFile{Data: []byte(`[]`)}
	n, err = l.Load(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, l.Loaded("oakland-2012.json"))
}

func TestLoadIsolatesBadFiles(t *testing.T) {
	quietLogs(t)

	fsys := fstest.MapFS{
		"markers.json":      {Data: []byte(`[[1,2]]`)},
		"oakland-2010.json": {Data: []byte(`[{"intersection":"A & B","time":1275000000,"type":0,"marker":0,"victims":[]}]`)},
		"oakland-2011.json": {Data: []byte(`[{"intersection":`)},
	}
	l := newTestLoader(fsys)
	sink := &recordingSink{}

	n, err := l.Load(context.Background(), sink)
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, sink.recs, 1)
	assert.False(t, l.Loaded("oakland-2011.json"))

	// Fixing the file lets a later load apply it.
	fsys["oakland-2011.json"] = &fstest.MapFile{Data: []byte(`[]`)}
	n, err = l.Load(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoadRefreshesChangedMarkers(t *testing.T) {
	quietLogs(t)

	fsys := fstest.MapFS{
		"markers.json":      {Data: []byte(`[[37.8,-122.27]]`)},
		"oakland-2010.json": {Data: []byte(`[{"intersection":"A & B","time":1275000000,"type":0,"marker":0,"victims":[]}]`)},
	}
	l := newTestLoader(fsys)
	sink := &recordingSink{}

	_, err := l.Load(context.Background(), sink)
	require.NoError(t, err)
	require.Len(t, sink.locs, 1)

	// A later export appends a coordinate and adds a year that uses it.
	fsys["markers.json"] = &fstest.MapFile{Data: []byte(`[[37.8,-122.27],[37.9,-122.2]]`)}
	fsys["oakland-2011.json"] = &fstest.MapFile{Data: []byte(`[{"intersection":"C & D","time":1306000000,"type":1,"marker":1,"victims":[]}]`)}

	n, err := l.Load(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sink.locs, 2)
	assert.Equal(t, collision.Location{Lat: 37.9, Lon: -122.2}, sink.locs[1])
	require.Len(t, sink.recs, 2)
	assert.Less(t, sink.recs[1].Marker, len(sink.locs))

	// Unchanged markers are not applied again.
	sink.locs = nil
	_, err = l.Load(context.Background(), sink)
	require.NoError(t, err)
	assert.Nil(t, sink.locs)
}

func TestLoadWithoutMarkers(t *testing.T) {
	quietLogs(t)

	l := newTestLoader(fstest.MapFS{
		"oakland-2010.json": {Data: []byte(`[]`)},
	})
	sink := &recordingSink{}

	n, err := l.Load(context.Background(), sink)
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Nil(t, sink.locs)
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	l := newTestLoader(fstest.MapFS{})
	_, err := l.Schedule(context.Background(), cron.New(), "every now and then", &recordingSink{})
	assert.Error(t, err)

	id, err := l.Schedule(context.Background(), cron.New(), "@every 10m", &recordingSink{})
	require.NoError(t, err)
	assert.NotZero(t, id)
}
