package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/banshee-data/collision.report/internal/switrs"
)

const insertCollisionSQL = `
	INSERT OR REPLACE INTO collisions (
		id, date, time, primary_road, secondary_road, intersection,
		motor_vehicle_with, latitude, longitude
	) VALUES (
		:id, :date, :time, :primary_road, :secondary_road, :intersection,
		:motor_vehicle_with, :latitude, :longitude
	)`

const insertVictimSQL = `
	INSERT INTO victims (collision_id, party_id, role, sex, age, degree_of_injury)
	VALUES (:collision_id, :party_id, :role, :sex, :age, :degree_of_injury)`

// Import stores a dataset in one transaction. Re-importing a collision
// replaces it and its victims.
func (db *DB) Import(ctx context.Context, ds switrs.Dataset) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	if err := insertCollisions(ctx, tx, ds.Collisions); err != nil {
		return err
	}
	if err := insertVictims(ctx, tx, ds.Victims); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func insertCollisions(ctx context.Context, tx *sqlx.Tx, cs []switrs.Collision) error {
	stmt, err := tx.PrepareNamedContext(ctx, insertCollisionSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare collision insert: %w", err)
	}
	defer stmt.Close()

	for i := range cs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM victims WHERE collision_id = ?`, cs[i].ID); err != nil {
			return fmt.Errorf("failed to clear victims of %s: %w", cs[i].ID, err)
		}
		if _, err := stmt.ExecContext(ctx, &cs[i]); err != nil {
			return fmt.Errorf("failed to insert collision %s: %w", cs[i].ID, err)
		}
	}
	return nil
}

func insertVictims(ctx context.Context, tx *sqlx.Tx, vs []switrs.Victim) error {
	stmt, err := tx.PrepareNamedContext(ctx, insertVictimSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare victim insert: %w", err)
	}
	defer stmt.Close()

	for i := range vs {
		if _, err := stmt.ExecContext(ctx, &vs[i]); err != nil {
			return fmt.Errorf("failed to insert victim of %s: %w", vs[i].CollisionID, err)
		}
	}
	return nil
}

// BikeAndPedestrianCollisions returns every collision involving a bicycle
// or a pedestrian, oldest first.
func (db *DB) BikeAndPedestrianCollisions(ctx context.Context) ([]switrs.Collision, error) {
	var cs []switrs.Collision
	err := db.SelectContext(ctx, &cs, `
		SELECT id, date, time, primary_road, secondary_road, intersection,
		       motor_vehicle_with, latitude, longitude
		FROM collisions
		WHERE motor_vehicle_with IN (?, ?)
		ORDER BY date, time, id`,
		switrs.WithBicycle, switrs.WithPedestrian,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collisions: %w", err)
	}
	return cs, nil
}

// VictimsOf returns the victims of the given collisions keyed by
// collision id.
func (db *DB) VictimsOf(ctx context.Context, ids []string) (map[string][]switrs.Victim, error) {
	out := make(map[string][]switrs.Victim, len(ids))
	const batch = 500
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))
		query, args, err := sqlx.In(`
			SELECT collision_id, party_id, role, sex, age, degree_of_injury
			FROM victims
			WHERE collision_id IN (?)
			ORDER BY collision_id, rowid`, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to build victim query: %w", err)
		}
		var vs []switrs.Victim
		if err := db.SelectContext(ctx, &vs, db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("failed to query victims: %w", err)
		}
		for _, v := range vs {
			out[v.CollisionID] = append(out[v.CollisionID], v)
		}
	}
	return out, nil
}

// UpdateCollisionLocation stores a geocoded coordinate on a collision.
func (db *DB) UpdateCollisionLocation(ctx context.Context, id string, lat, lon float64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE collisions SET latitude = ?, longitude = ? WHERE id = ?`, lat, lon, id)
	if err != nil {
		return fmt.Errorf("failed to update location of %s: %w", id, err)
	}
	return nil
}

// Stats counts stored rows.
type Stats struct {
	Collisions int `db:"collisions" json:"collisions"`
	Victims    int `db:"victims" json:"victims"`
	Locations  int `db:"locations" json:"locations"`
}

func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := db.GetContext(ctx, &s, `
		SELECT
			(SELECT COUNT(*) FROM collisions) AS collisions,
			(SELECT COUNT(*) FROM victims)    AS victims,
			(SELECT COUNT(*) FROM locations)  AS locations`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count rows: %w", err)
	}
	return s, nil
}
