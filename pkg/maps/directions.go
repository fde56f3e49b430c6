// Package maps wraps the Google Maps Directions API as the routing
// capability the dispatch core depends on: given an origin, destination and
// a set of waypoints it returns an optimized visiting order with per-leg
// durations.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrNoRoute is returned when the provider answered but produced no usable
// route for the requested stops.
var ErrNoRoute = errors.New("routing provider returned no route")

// Leg is one segment of the computed route, in visiting order.
type Leg struct {
	DurationMs int64
}

// Route is the provider's answer: legs in visiting order, the waypoint
// permutation chosen by the optimizer (nil when optimization was not
// requested or not returned), and the duration of the whole circuit.
type Route struct {
	Legs            []Leg
	WaypointOrder   []int
	TotalDurationMs int64
}

// Provider is the routing capability consumed by the route planner.
type Provider interface {
	ComputeRoute(ctx context.Context, origin, destination string, waypoints []string, optimize bool) (*Route, error)
}

// Client calls the Google Maps Directions API over HTTP.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Directions client with the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    "https://maps.googleapis.com/maps/api/directions/json",
		httpClient: &http.Client{},
	}
}

// directionsResponse is a minimal structure of the parts of the Directions
// API response we care about. Durations come back in seconds.
type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		WaypointOrder []int `json:"waypoint_order"`
		Legs          []struct {
			Duration struct {
				Value int64 `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// ComputeRoute requests a route from origin through each waypoint to
// destination. With optimize set, waypoint reordering is requested and the
// returned permutation maps visiting position to input waypoint index.
func (c *Client) ComputeRoute(ctx context.Context, origin, destination string, waypoints []string, optimize bool) (*Route, error) {
	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	params.Set("key", c.apiKey)
	if len(waypoints) > 0 {
		wp := strings.Join(waypoints, "|")
		if optimize {
			wp = "optimize:true|" + wp
		}
		params.Set("waypoints", wp)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("maps.ComputeRoute build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("maps.ComputeRoute call directions: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("maps.ComputeRoute read body: %w", err)
	}

	var directions directionsResponse
	if err := json.Unmarshal(body, &directions); err != nil {
		return nil, fmt.Errorf("maps.ComputeRoute unmarshal: %w", err)
	}

	if directions.Status != "OK" || len(directions.Routes) == 0 {
		return nil, fmt.Errorf("maps.ComputeRoute status %q: %w", directions.Status, ErrNoRoute)
	}

	raw := directions.Routes[0]
	route := &Route{
		Legs:          make([]Leg, 0, len(raw.Legs)),
		WaypointOrder: raw.WaypointOrder,
	}
	for _, leg := range raw.Legs {
		ms := leg.Duration.Value * 1000
		route.Legs = append(route.Legs, Leg{DurationMs: ms})
		route.TotalDurationMs += ms
	}
	return route, nil
}
