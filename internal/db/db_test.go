package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/switrs"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testDataset() switrs.Dataset {
	return switrs.Dataset{
		Collisions: []switrs.Collision{
			{ID: "1", Date: "20100101", Time: "1200", PrimaryRoad: "BROADWAY", SecondaryRoad: "14TH ST", MotorVehicleWith: "G"},
			{ID: "2", Date: "20100102", Time: "0800", PrimaryRoad: "RT 80", SecondaryRoad: "METERING LIGHTS", MotorVehicleWith: "B"},
			{ID: "3", Date: "20100103", Time: "0900", PrimaryRoad: "MAIN", SecondaryRoad: "1ST", MotorVehicleWith: "C"},
		},
		Victims: []switrs.Victim{
			{CollisionID: "1", PartyID: "1", Role: "4", Sex: "M", Age: 30, DegreeOfInjury: 2},
			{CollisionID: "2", PartyID: "1", Role: "3", Sex: "F", Age: 998, DegreeOfInjury: 1},
			{CollisionID: "2", PartyID: "2", Role: "3", Sex: "M", Age: 12, DegreeOfInjury: 4},
		},
	}
}

func TestMigrations(t *testing.T) {
	db := setupTestDB(t)

	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
}

func TestImportAndQuery(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Import(ctx, testDataset()))

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Collisions: 3, Victims: 3}, stats)

	cs, err := db.BikeAndPedestrianCollisions(ctx)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "1", cs[0].ID)
	assert.Equal(t, "RT 80 & METERING LIGHTS", cs[1].IntersectionString())

	victims, err := db.VictimsOf(ctx, []string{"1", "2"})
	require.NoError(t, err)
	assert.Len(t, victims["1"], 1)
	require.Len(t, victims["2"], 2)
	assert.Equal(t, 998, victims["2"][0].Age)
	assert.Equal(t, 4, victims["2"][1].DegreeOfInjury)

	// Re-importing replaces rather than duplicates.
	require.NoError(t, db.Import(ctx, testDataset()))
	stats, err = db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Collisions)
	assert.Equal(t, 3, stats.Victims)
}

func TestUpdateCollisionLocation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Import(ctx, testDataset()))

	require.NoError(t, db.UpdateCollisionLocation(ctx, "1", 37.8, -122.27))
	cs, err := db.BikeAndPedestrianCollisions(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 37.8, cs[0].Latitude, 1e-9)
	assert.InDelta(t, -122.27, cs[0].Longitude, 1e-9)
}

func TestLocationCache(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, ok, err := db.LocationFor(ctx, "BROADWAY & 14TH ST")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SaveLocation(ctx, Location{Intersection: "BROADWAY & 14TH ST", Latitude: 1, Longitude: 2, Source: "google"}))
	require.NoError(t, db.SaveLocation(ctx, Location{Intersection: "BROADWAY & 14TH ST", Latitude: 3, Longitude: 4, Source: "overpass"}))

	loc, ok, err := db.LocationFor(ctx, "BROADWAY & 14TH ST")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3.0, loc.Latitude)
	assert.Equal(t, "overpass", loc.Source)

	locs, err := db.Locations(ctx)
	require.NoError(t, err)
	assert.Len(t, locs, 1)
}

func TestAttachAdminRoutes(t *testing.T) {
	db := setupTestDB(t)
	mux := http.NewServeMux()
	db.AttachAdminRoutes(mux)

	for _, path := range []string{"/debug/backup", "/debug/tailsql/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusNotFound, rec.Code, "route %s should be registered", path)
	}
}
