package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Location is a cached geocoding result for one intersection string.
type Location struct {
	Intersection string    `db:"intersection" json:"intersection"`
	Latitude     float64   `db:"latitude" json:"latitude"`
	Longitude    float64   `db:"longitude" json:"longitude"`
	Source       string    `db:"source" json:"source"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LocationFor looks up a cached location. ok is false when the intersection
// has not been geocoded.
func (db *DB) LocationFor(ctx context.Context, intersection string) (loc Location, ok bool, err error) {
	err = db.GetContext(ctx, &loc, `
		SELECT intersection, latitude, longitude, source, updated_at
		FROM locations WHERE intersection = ?`, intersection)
	if errors.Is(err, sql.ErrNoRows) {
		return Location{}, false, nil
	}
	if err != nil {
		return Location{}, false, fmt.Errorf("failed to look up %q: %w", intersection, err)
	}
	return loc, true, nil
}

// SaveLocation caches a geocoding result, replacing any earlier entry.
func (db *DB) SaveLocation(ctx context.Context, loc Location) error {
	_, err := db.NamedExecContext(ctx, `
		INSERT INTO locations (intersection, latitude, longitude, source, updated_at)
		VALUES (:intersection, :latitude, :longitude, :source, CURRENT_TIMESTAMP)
		ON CONFLICT (intersection) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			source = excluded.source,
			updated_at = excluded.updated_at`, loc)
	if err != nil {
		return fmt.Errorf("failed to save location for %q: %w", loc.Intersection, err)
	}
	return nil
}

// Locations returns the whole cache ordered by intersection.
func (db *DB) Locations(ctx context.Context) ([]Location, error) {
	var locs []Location
	if err := db.SelectContext(ctx, &locs, `
		SELECT intersection, latitude, longitude, source, updated_at
		FROM locations ORDER BY intersection`); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locs, nil
}
