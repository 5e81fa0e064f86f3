package geocode

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/serjvanilla/go-overpass"

	"github.com/banshee-data/collision.report/internal/collision"
)

// DefaultOverpassEndpoint is the public Overpass API interpreter.
const DefaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"

type overpassClient interface {
	Query(query string) (overpass.Result, error)
}

// Overpass finds the OpenStreetMap node shared by the two named roads of
// an intersection inside an administrative area.
type Overpass struct {
	client overpassClient
	area   string
}

// NewOverpass creates a geocoder that searches within the named area,
// e.g. "Oakland".
func NewOverpass(endpoint, area string, timeout time.Duration) *Overpass {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 1, httpClient)
	return &Overpass{client: &client, area: area}
}

// AreaFromRegion takes the first comma separated part of a region, so
// "Oakland, CA" searches the "Oakland" area.
func AreaFromRegion(region string) string {
	area, _, _ := strings.Cut(region, ",")
	return strings.TrimSpace(area)
}

func (o *Overpass) Name() string { return "overpass" }

func (o *Overpass) Geocode(ctx context.Context, intersection string) (collision.Location, error) {
	a, b := splitIntersection(intersection)
	if a == "" || b == "" {
		return collision.Location{}, fmt.Errorf("%q is not an intersection", intersection)
	}
	if err := ctx.Err(); err != nil {
		return collision.Location{}, err
	}

	result, err := o.client.Query(intersectionQuery(o.area, a, b))
	if err != nil {
		return collision.Location{}, fmt.Errorf("overpass query failed: %w", err)
	}
	if len(result.Nodes) == 0 {
		return collision.Location{}, ErrNotFound
	}

	// The lowest node id keeps repeated lookups stable.
	ids := make([]int64, 0, len(result.Nodes))
	for id := range result.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	n := result.Nodes[ids[0]]
	return collision.Location{Lat: n.Lat, Lon: n.Lon}, nil
}

func intersectionQuery(area, a, b string) string {
	return fmt.Sprintf(`
		[out:json][timeout:25];
		area["name"="%s"]["boundary"="administrative"]->.a;
		way(area.a)["highway"]["name"~"%s",i]->.w1;
		way(area.a)["highway"]["name"~"%s",i]->.w2;
		node(w.w1)(w.w2);
		out body;
	`, area, roadPattern(a), roadPattern(b))
}

var roadSuffixes = map[string]string{
	"AV":   "Avenue",
	"AVE":  "Avenue",
	"BLVD": "Boulevard",
	"CT":   "Court",
	"DR":   "Drive",
	"HWY":  "Highway",
	"LN":   "Lane",
	"PKWY": "Parkway",
	"PL":   "Place",
	"RD":   "Road",
	"ST":   "Street",
	"WY":   "Way",
	"WAY":  "Way",
}

// roadPattern turns an export road name such as "14TH ST" into an anchored
// case-insensitive pattern matching "14th Street".
func roadPattern(road string) string {
	words := strings.Fields(road)
	if n := len(words); n > 1 {
		if full, ok := roadSuffixes[strings.ToUpper(words[n-1])]; ok {
			words[n-1] = full
		}
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return "^" + strings.Join(words, " ") + "$"
}
