// Package maps is the geocoding and routing collaborator, built on the free
// OpenStreetMap services: Nominatim for geocoding and OSRM for driving
// routes. It backs the external-router tier of the ETA fallback ladder.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"clinic-scheduler/internal/eta"
)

const (
	defaultOSRMBase      = "https://router.project-osrm.org"
	defaultNominatimBase = "https://nominatim.openstreetmap.org"
	defaultUserAgent     = "clinic-scheduler/1.0 (queue management)"
	requestTimeout       = 5 * time.Second
)

// Client talks to Nominatim and OSRM. Safe for concurrent use.
type Client struct {
	httpClient    *http.Client
	osrmBase      string
	nominatimBase string
	userAgent     string

	mu    sync.Mutex
	cache map[string]eta.Coord
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithOSRMBase overrides the OSRM endpoint (used by tests and self-hosted
// routers).
func WithOSRMBase(base string) ClientOption {
	return func(c *Client) { c.osrmBase = base }
}

// WithNominatimBase overrides the Nominatim endpoint.
func WithNominatimBase(base string) ClientOption {
	return func(c *Client) { c.nominatimBase = base }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: requestTimeout},
		osrmBase:      defaultOSRMBase,
		nominatimBase: defaultNominatimBase,
		userAgent:     defaultUserAgent,
		cache:         make(map[string]eta.Coord),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fallbackAreas covers common Mumbai localities so geocoding still resolves
// when Nominatim is unreachable.
var fallbackAreas = []struct {
	name  string
	coord eta.Coord
}{
	{"bandra west", eta.Coord{Lat: 19.0596, Lon: 72.8295}},
	{"bandra", eta.Coord{Lat: 19.0596, Lon: 72.8295}},
	{"andheri west", eta.Coord{Lat: 19.1136, Lon: 72.8697}},
	{"andheri east", eta.Coord{Lat: 19.1197, Lon: 72.8697}},
	{"andheri", eta.Coord{Lat: 19.1136, Lon: 72.8697}},
	{"juhu", eta.Coord{Lat: 19.1075, Lon: 72.8263}},
	{"powai", eta.Coord{Lat: 19.1176, Lon: 72.9060}},
	{"goregaon", eta.Coord{Lat: 19.1663, Lon: 72.8526}},
	{"malad", eta.Coord{Lat: 19.1868, Lon: 72.8479}},
	{"borivali", eta.Coord{Lat: 19.2304, Lon: 72.8581}},
	{"dadar", eta.Coord{Lat: 19.0176, Lon: 72.8562}},
	{"kurla", eta.Coord{Lat: 19.0728, Lon: 72.8826}},
	{"mumbai", eta.Coord{Lat: 19.0760, Lon: 72.8777}},
}

var defaultCoord = eta.Coord{Lat: 19.0760, Lon: 72.8777} // central Mumbai

// Geocode resolves an address to coordinates. Results are cached. When
// Nominatim fails, a curated locality table answers instead, so geocoding
// always yields a coordinate.
func (c *Client) Geocode(ctx context.Context, address string) (eta.Coord, error) {
	c.mu.Lock()
	if coord, ok := c.cache[address]; ok {
		c.mu.Unlock()
		return coord, nil
	}
	c.mu.Unlock()

	coord, err := c.geocodeRemote(ctx, address)
	if err != nil {
		log.Printf("maps: geocoding %q failed, using locality fallback: %v", address, err)
		coord = fallbackGeocode(address)
	}

	c.mu.Lock()
	c.cache[address] = coord
	c.mu.Unlock()
	return coord, nil
}

func (c *Client) geocodeRemote(ctx context.Context, address string) (eta.Coord, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("countrycodes", "in")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.nominatimBase+"/search?"+q.Encode(), nil)
	if err != nil {
		return eta.Coord{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eta.Coord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eta.Coord{}, fmt.Errorf("nominatim status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return eta.Coord{}, err
	}
	if len(results) == 0 {
		return eta.Coord{}, fmt.Errorf("no geocoding result for %q", address)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return eta.Coord{}, err
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return eta.Coord{}, err
	}
	return eta.Coord{Lat: lat, Lon: lon}, nil
}

func fallbackGeocode(address string) eta.Coord {
	lower := strings.ToLower(address)
	for _, area := range fallbackAreas {
		if strings.Contains(lower, area.name) {
			return area.coord
		}
	}
	return defaultCoord
}

// RouteTime queries OSRM for driving time and distance between two points.
// Implements the eta.Router collaborator; failures send the estimator to its
// straight-line tier.
func (c *Client) RouteTime(ctx context.Context, origin, dest eta.Coord) (float64, float64, error) {
	// OSRM expects lon,lat ordering.
	path := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f",
		c.osrmBase, origin.Lon, origin.Lat, dest.Lon, dest.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path+"?overview=false&steps=false&alternatives=false", nil)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", eta.ErrRouteUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", eta.ErrRouteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("%w: osrm status %d", eta.ErrRouteUnavailable, resp.StatusCode)
	}

	var payload struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"` // meters
			Duration float64 `json:"duration"` // seconds
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", eta.ErrRouteUnavailable, err)
	}
	if payload.Code != "Ok" || len(payload.Routes) == 0 {
		return 0, 0, fmt.Errorf("%w: osrm code %q", eta.ErrRouteUnavailable, payload.Code)
	}

	route := payload.Routes[0]
	return route.Duration / 60, route.Distance / 1000, nil
}
