package category

import (
	"testing"

	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ages, err := collision.NewAgeGroups(collision.DefaultAgeBoundaries)
	require.NoError(t, err)
	r, err := NewRegistry(DefaultConfig([]int{2010, 2011}, ages))
	require.NoError(t, err)
	return r
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	ages, err := collision.NewAgeGroups(collision.DefaultAgeBoundaries)
	require.NoError(t, err)
	cfg := DefaultConfig([]int{2008, 2009}, ages)

	assert.Equal(t, []string{"2008", "2009", OtherYear}, cfg[Year].Names)
	assert.Len(t, cfg[AgeGroup].Names, 6)
	assert.Equal(t, collision.DefaultAgeBoundaries, cfg[AgeGroup].Boundaries)
	assert.Len(t, cfg[Injury].Names, collision.NumInjuryRanks)
	assert.Len(t, cfg[Sex].Names, 3)
}

func TestNewRegistryValidates(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(Config{Year: {Names: []string{"2010"}}})
	assert.Error(t, err)

	ages, _ := collision.NewAgeGroups(collision.DefaultAgeBoundaries)
	cfg := DefaultConfig(nil, ages)
	cfg[Sex] = Definition{}
	_, err = NewRegistry(cfg)
	assert.Error(t, err)
}

func TestToggleRoundTrip(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	assert.True(t, r.IsActive(Sex, 1))

	state, err := r.Toggle(Sex, 1)
	require.NoError(t, err)
	assert.Equal(t, Excluded, state)
	assert.False(t, r.IsActive(Sex, 1))
	assert.True(t, r.MustGet(Sex).IsExcluded(1))
	assert.False(t, r.MustGet(Sex).IsExcluded(0))

	state, err = r.Toggle(Sex, 1)
	require.NoError(t, err)
	assert.Equal(t, Active, state)
	assert.True(t, r.IsActive(Sex, 1))
	assert.False(t, r.MustGet(Sex).IsExcluded(1))
}

func TestToggleErrors(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)

	_, err := r.Toggle(Sex, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.Toggle(Sex, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.Toggle(ID("weather"), 0)
	assert.ErrorIs(t, err, ErrUnknownCategory)

	assert.False(t, r.IsActive(ID("weather"), 0))
	assert.False(t, r.IsActive(Sex, 9))
}

func TestCountsAndSnapshot(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(t)
	c := r.MustGet(CollisionType)
	c.Increment(0)
	c.Increment(0)
	c.Increment(1)
	c.Increment(5) // ignored

	snap := c.Snapshot()
	assert.Equal(t, []int{2, 1}, snap.Counts)
	assert.Equal(t, 3, snap.Total())
	assert.Equal(t, []bool{true, true}, snap.Active)

	// Snapshots never alias live state.
	snap.Counts[0] = 99
	assert.Equal(t, 2, c.Count(0))

	r.ResetCounts()
	assert.Equal(t, []int{0, 0}, c.Counts())

	snaps := r.Snapshots()
	require.Len(t, snaps, len(All))
	for i, id := range All {
		assert.Equal(t, id, snaps[i].ID)
		assert.Len(t, snaps[i].Counts, len(snaps[i].Names))
	}
}
