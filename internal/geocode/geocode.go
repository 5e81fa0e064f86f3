// Package geocode resolves intersection strings such as
// "BROADWAY & 14TH ST" to coordinates. Results are cached in the store and
// remote lookups are throttled.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/collision.report/internal/collision"
)

// ErrNotFound is returned when a geocoder has no result for a query.
var ErrNotFound = errors.New("no geocoding result")

// Geocoder resolves one intersection string.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, intersection string) (collision.Location, error)
}

// Chain tries each geocoder in order and returns the first result.
type Chain []Geocoder

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, g := range c {
		names[i] = g.Name()
	}
	return strings.Join(names, ",")
}

func (c Chain) Geocode(ctx context.Context, intersection string) (collision.Location, error) {
	_, loc, err := c.geocode(ctx, intersection)
	return loc, err
}

// geocode also reports which member answered.
func (c Chain) geocode(ctx context.Context, intersection string) (string, collision.Location, error) {
	var errs []error
	for _, g := range c {
		loc, err := g.Geocode(ctx, intersection)
		if err == nil {
			return g.Name(), loc, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", collision.Location{}, ctxErr
		}
		errs = append(errs, fmt.Errorf("%s: %w", g.Name(), err))
	}
	if len(errs) == 0 {
		return "", collision.Location{}, ErrNotFound
	}
	return "", collision.Location{}, errors.Join(errs...)
}

// Override pins intersections containing every one of Contains to a fixed
// location. Some places are consistently misplaced by remote geocoders.
type Override struct {
	Contains []string
	Location collision.Location
}

func (o Override) matches(intersection string) bool {
	if len(o.Contains) == 0 {
		return false
	}
	for _, s := range o.Contains {
		if !strings.Contains(intersection, s) {
			return false
		}
	}
	return true
}

// DefaultOverrides holds the known corrections. The Bay Bridge metering
// lights on RT 80 are not recognised by Google.
var DefaultOverrides = []Override{
	{Contains: []string{"RT 80", "METERING"}, Location: collision.Location{Lat: 37.82479, Lon: -122.31384}},
}

// splitIntersection returns the two roads of "A & B".
func splitIntersection(intersection string) (string, string) {
	a, b, _ := strings.Cut(intersection, "&")
	return strings.TrimSpace(a), strings.TrimSpace(b)
}
