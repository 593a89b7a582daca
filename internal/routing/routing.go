package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang/geo/s2"
)

// DefaultBaseURL is the public OSRM instance.
const DefaultBaseURL = "https://router.project-osrm.org"

// earthRadiusMeters converts great-circle angles to meters.
const earthRadiusMeters = 6371000.0

var (
	// ErrNotEnoughPoints is returned when fewer than two coordinates remain
	// after filtering.
	ErrNotEnoughPoints = errors.New("route needs at least two points")
	// errNoRoute is returned when the router finds no route.
	errNoRoute = errors.New("router returned no route")
)

// Coordinate is one lat/lon pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Route is a computed walking route.
type Route struct {
	// DistanceMeters and DurationSeconds summarize the route.
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	// Geometry is the GeoJSON line geometry as returned by the router.
	Geometry json.RawMessage `json:"geometry"`
}

// Client plans walking routes through an OSRM-compatible HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a routing client with a bounded request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WalkingRoute plans a walking route through the ordered coordinates.
func (c *Client) WalkingRoute(ctx context.Context, points []Coordinate) (*Route, error) {
	if len(points) < 2 {
		return nil, ErrNotEnoughPoints
	}

	pairs := make([]string, 0, len(points))
	for _, p := range points {
		// OSRM expects lon,lat order.
		pairs = append(pairs, fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat))
	}

	endpoint := fmt.Sprintf("%s/route/v1/foot/%s?overview=full&geometries=geojson", c.baseURL, strings.Join(pairs, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("router returned %d", resp.StatusCode)
	}

	var payload struct {
		Routes []struct {
			Distance float64         `json:"distance"`
			Duration float64         `json:"duration"`
			Geometry json.RawMessage `json:"geometry"`
		} `json:"routes"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode route response: %w", err)
	}

	if len(payload.Routes) == 0 {
		return nil, errNoRoute
	}

	best := payload.Routes[0]

	return &Route{
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
		Geometry:        best.Geometry,
	}, nil
}

// Downsample reduces an overlong path to at most maxPoints coordinates.
// Near-duplicate neighbors (under minSpacingMeters apart) are dropped first;
// if the path is still overlong it is stride-sampled. The first and last
// points always survive.
func Downsample(points []Coordinate, maxPoints int, minSpacingMeters float64) []Coordinate {
	if maxPoints < 2 {
		maxPoints = 2
	}

	thinned := thin(points, minSpacingMeters)
	if len(thinned) <= maxPoints {
		return thinned
	}

	sampled := make([]Coordinate, 0, maxPoints)
	step := float64(len(thinned)-1) / float64(maxPoints-1)

	for i := 0; i < maxPoints; i++ {
		sampled = append(sampled, thinned[int(float64(i)*step+0.5)])
	}

	sampled[maxPoints-1] = thinned[len(thinned)-1]

	return sampled
}

// thin drops points closer than spacing to the previously kept one.
func thin(points []Coordinate, spacingMeters float64) []Coordinate {
	if len(points) <= 2 || spacingMeters <= 0 {
		return points
	}

	kept := []Coordinate{points[0]}

	for _, p := range points[1 : len(points)-1] {
		last := kept[len(kept)-1]
		if haversineMeters(last, p) >= spacingMeters {
			kept = append(kept, p)
		}
	}

	return append(kept, points[len(points)-1])
}

// haversineMeters is the great-circle distance between two coordinates.
func haversineMeters(a, b Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)

	return p1.Distance(p2).Radians() * earthRadiusMeters
}
