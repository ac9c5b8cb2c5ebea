// Package geocoding resolves free-text places to coordinates and coordinates
// back to short "Place, ST" names.
package geocoding

import (
	"context"
	"errors"
	"time"

	"github.com/routecast/routecast/pkg/polyline"
)

// Sentinel errors for geocoding operations.
var (
	// ErrLocationNotFound indicates the query matched no place.
	ErrLocationNotFound = errors.New("location not found")
	// ErrProviderUnavailable indicates the geocoding provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
	// ErrInvalidQuery indicates an empty or malformed query.
	ErrInvalidQuery = errors.New("invalid geocoding query")
)

// Provider defines the interface for geocoding providers.
type Provider interface {
	// Geocode returns the best match for a free-text place.
	Geocode(ctx context.Context, query string) (*Place, error)
	// ReverseGeocode returns the locality containing the point.
	ReverseGeocode(ctx context.Context, lat, lon float64) (*Place, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Place is a resolved location.
type Place struct {
	Coordinate polyline.Coordinate
	// Name is the short place name (city or locality).
	Name string
	// Region is the state or region short code without country prefix ("CO").
	Region string
	// FullName is the provider's full display name.
	FullName  string
	FetchedAt time.Time
}

// DisplayName returns "Place, ST" when the region is known, otherwise the bare name.
func (p *Place) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" && p.Region != "" {
		return p.Name + ", " + p.Region
	}
	return p.Name
}
