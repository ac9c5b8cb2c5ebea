// Package routing provides driving directions between geocoded places.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/routecast/routecast/pkg/polyline"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetDirections retrieves a driving route through the requested points.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Coordinate represents a geographic point.
type Coordinate = polyline.Coordinate

// DirectionsRequest is the request for computing a route.
type DirectionsRequest struct {
	Origin      Coordinate
	Destination Coordinate
	// Stops are visited in order between origin and destination.
	Stops []Coordinate
	// Alternatives asks the provider for alternate routes when available.
	Alternatives bool
}

// Points returns origin, stops and destination in travel order.
func (r DirectionsRequest) Points() []Coordinate {
	pts := make([]Coordinate, 0, len(r.Stops)+2)
	pts = append(pts, r.Origin)
	pts = append(pts, r.Stops...)
	return append(pts, r.Destination)
}

// DirectionsResponse is the response containing the primary route first.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Primary returns the first (recommended) route.
func (r *DirectionsResponse) Primary() (Route, bool) {
	if r == nil || len(r.Routes) == 0 {
		return Route{}, false
	}
	return r.Routes[0], true
}

// Route represents a single route option.
type Route struct {
	GeometryPolyline string  // Encoded polyline (precision 5)
	DistanceMeters   float64 // Total distance in meters
	DurationSeconds  float64 // Total duration in seconds
	Summary          string  // Human-readable route summary (main roads)
}

// DurationMinutes returns the route duration truncated to whole minutes.
func (r Route) DurationMinutes() int {
	return int(r.DurationSeconds / 60)
}

// DistanceMiles returns the route distance in statute miles.
func (r Route) DistanceMiles() float64 {
	return r.DistanceMeters / 1609.34
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
