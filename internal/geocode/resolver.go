package geocode

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/switrs"
)

// Cache is the persistent location cache.
type Cache interface {
	LocationFor(ctx context.Context, intersection string) (db.Location, bool, error)
	SaveLocation(ctx context.Context, loc db.Location) error
}

// CollisionStore provides the collisions to geocode and receives results.
type CollisionStore interface {
	BikeAndPedestrianCollisions(ctx context.Context) ([]switrs.Collision, error)
	UpdateCollisionLocation(ctx context.Context, id string, lat, lon float64) error
}

// Resolver looks intersections up in the cache, then the overrides, then
// the remote geocoder. Remote lookups wait on a rate limiter.
type Resolver struct {
	cache     Cache
	geocoder  Geocoder
	overrides []Override
	limiter   *rate.Limiter
}

// NewResolver allows one remote request per interval. A non-positive
// interval disables throttling.
func NewResolver(cache Cache, g Geocoder, interval time.Duration) *Resolver {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Resolver{
		cache:     cache,
		geocoder:  g,
		overrides: DefaultOverrides,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// SetOverrides replaces DefaultOverrides.
func (r *Resolver) SetOverrides(o []Override) { r.overrides = o }

// Resolve returns the location of an intersection and where it came from:
// "cache", "override" or the geocoder's name. Remote failures are not
// cached.
func (r *Resolver) Resolve(ctx context.Context, intersection string) (collision.Location, string, error) {
	if cached, ok, err := r.cache.LocationFor(ctx, intersection); err != nil {
		return collision.Location{}, "", err
	} else if ok {
		return collision.Location{Lat: cached.Latitude, Lon: cached.Longitude}, "cache", nil
	}

	for _, o := range r.overrides {
		if o.matches(intersection) {
			return o.Location, "override", nil
		}
	}

	if r.geocoder == nil {
		return collision.Location{}, "", ErrNotFound
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return collision.Location{}, "", err
	}

	source := r.geocoder.Name()
	var (
		loc collision.Location
		err error
	)
	if chain, ok := r.geocoder.(Chain); ok {
		source, loc, err = chain.geocode(ctx, intersection)
	} else {
		loc, err = r.geocoder.Geocode(ctx, intersection)
	}
	if err != nil {
		return collision.Location{}, "", err
	}

	if err := r.cache.SaveLocation(ctx, db.Location{
		Intersection: intersection,
		Latitude:     loc.Lat,
		Longitude:    loc.Lon,
		Source:       source,
	}); err != nil {
		return collision.Location{}, "", err
	}
	return loc, source, nil
}

// RunStats summarises one geocoding pass.
type RunStats struct {
	Collisions int
	Resolved   int
	Failed     int
	BySource   map[string]int
}

// Run resolves every bike and pedestrian collision in store and writes the
// coordinate back. Unresolvable intersections are written as [0,0] and are
// only tried once per run.
func (r *Resolver) Run(ctx context.Context, store CollisionStore) (RunStats, error) {
	cs, err := store.BikeAndPedestrianCollisions(ctx)
	if err != nil {
		return RunStats{}, err
	}

	stats := RunStats{Collisions: len(cs), BySource: make(map[string]int)}
	failed := make(map[string]bool)
	for _, c := range cs {
		key := c.IntersectionString()

		var loc collision.Location
		if !failed[key] {
			var source string
			loc, source, err = r.Resolve(ctx, key)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			if err != nil {
				monitoring.Logf("geocode: %s: %v", key, err)
				failed[key] = true
			} else {
				stats.BySource[source]++
			}
		}
		if failed[key] {
			stats.Failed++
			loc = collision.Location{}
		} else {
			stats.Resolved++
		}

		if err := store.UpdateCollisionLocation(ctx, c.ID, loc.Lat, loc.Lon); err != nil {
			return stats, fmt.Errorf("failed to store location: %w", err)
		}
	}
	return stats, nil
}
