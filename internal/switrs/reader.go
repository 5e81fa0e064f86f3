package switrs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/banshee-data/collision.report/internal/monitoring"
)

const (
	CollisionFile = "CollisionRecords.txt"
	VictimFile    = "VictimRecords.txt"
)

// Column positions in CollisionRecords.txt.
const (
	colID               = 0
	colDate             = 4
	colTime             = 5
	colPrimaryRoad      = 18
	colSecondaryRoad    = 19
	colIntersection     = 22
	colMotorVehicleWith = 47
	colLatitude         = 74
	colLongitude        = 75
	collisionColumns    = colLongitude + 1
)

// Column positions in VictimRecords.txt.
const (
	vicCollisionID    = 0
	vicPartyID        = 1
	vicRole           = 2
	vicSex            = 3
	vicAge            = 4
	vicDegreeOfInjury = 5
	victimColumns     = vicDegreeOfInjury + 1
)

// Dataset is everything read from one or more export directories.
type Dataset struct {
	Collisions []Collision
	Victims    []Victim
}

func readRows(r io.Reader, name string, minColumns int, row func([]string)) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if len(rec) < minColumns {
			line, _ := cr.FieldPos(0)
			return fmt.Errorf("%s:%d: expected at least %d columns, got %d", name, line, minColumns, len(rec))
		}
		row(rec)
	}
}

// ReadCollisions parses a CollisionRecords.txt stream. name is used in
// error messages.
func ReadCollisions(r io.Reader, name string) ([]Collision, error) {
	var out []Collision
	err := readRows(r, name, collisionColumns, func(rec []string) {
		out = append(out, Collision{
			ID:               rec[colID],
			Date:             rec[colDate],
			Time:             rec[colTime],
			PrimaryRoad:      rec[colPrimaryRoad],
			SecondaryRoad:    rec[colSecondaryRoad],
			Intersection:     rec[colIntersection],
			MotorVehicleWith: rec[colMotorVehicleWith],
			Latitude:         parseCoordinate(rec[colLatitude]),
			Longitude:        parseCoordinate(rec[colLongitude]),
		})
	})
	return out, err
}

// ReadVictims parses a VictimRecords.txt stream.
func ReadVictims(r io.Reader, name string) ([]Victim, error) {
	var out []Victim
	err := readRows(r, name, victimColumns, func(rec []string) {
		out = append(out, Victim{
			CollisionID:    rec[vicCollisionID],
			PartyID:        rec[vicPartyID],
			Role:           rec[vicRole],
			Sex:            rec[vicSex],
			Age:            parseAge(rec[vicAge]),
			DegreeOfInjury: parseInjury(rec[vicDegreeOfInjury]),
		})
	})
	return out, err
}

func readFile[T any](fsys fs.FS, name string, read func(io.Reader, string) ([]T, error)) ([]T, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()
	return read(f, name)
}

// ReadDir reads the collision and victim files of one export directory.
func ReadDir(fsys fs.FS, dir string) (Dataset, error) {
	cs, err := readFile(fsys, path.Join(dir, CollisionFile), ReadCollisions)
	if err != nil {
		return Dataset{}, err
	}
	vs, err := readFile(fsys, path.Join(dir, VictimFile), ReadVictims)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Collisions: cs, Victims: vs}, nil
}

// ReadCity reads every immediate subdirectory of the city directory as an
// export directory, in name order.
func ReadCity(fsys fs.FS) (Dataset, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to list city directory: %w", err)
	}

	var all Dataset
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		monitoring.Logf("switrs: reading data from %s", e.Name())
		ds, err := ReadDir(fsys, e.Name())
		if err != nil {
			return Dataset{}, err
		}
		all.Collisions = append(all.Collisions, ds.Collisions...)
		all.Victims = append(all.Victims, ds.Victims...)
	}
	return all, nil
}

// VictimsByCollision indexes victims by collision id, preserving order.
func VictimsByCollision(vs []Victim) map[string][]Victim {
	out := make(map[string][]Victim)
	for _, v := range vs {
		out[v.CollisionID] = append(out[v.CollisionID], v)
	}
	return out
}
