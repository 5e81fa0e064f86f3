package geocode

import (
	"context"
	"fmt"
	"os"

	"googlemaps.github.io/maps"

	"github.com/banshee-data/collision.report/internal/collision"
)

// CredentialsEnv names the environment variable holding the Maps API key.
const CredentialsEnv = "MAPS_CREDENTIALS"

type mapsClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Google geocodes through the Google Maps Geocoding API. Queries are
// suffixed with the region, e.g. "BROADWAY & 14TH ST, Oakland, CA".
type Google struct {
	client mapsClient
	region string
}

// NewGoogle creates a geocoder using apiKey. An empty key falls back to
// the CredentialsEnv environment variable.
func NewGoogle(apiKey, region string) (*Google, error) {
	if apiKey == "" {
		apiKey = os.Getenv(CredentialsEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", CredentialsEnv)
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error creating Google Maps client: %w", err)
	}
	return &Google{client: client, region: region}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) Geocode(ctx context.Context, intersection string) (collision.Location, error) {
	address := intersection
	if g.region != "" {
		address = intersection + ", " + g.region
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return collision.Location{}, fmt.Errorf("error requesting geocode from google: %w", err)
	}
	if len(results) == 0 {
		return collision.Location{}, ErrNotFound
	}
	ll := results[0].Geometry.Location
	return collision.Location{Lat: ll.Lat, Lon: ll.Lng}, nil
}
