// Package clearance provides height-restricted structures (low bridges, tunnels,
// underpasses) near a route.
package clearance

import (
	"context"
	"errors"

	"github.com/routecast/routecast/pkg/polyline"
)

// ErrProviderUnavailable indicates the structure source could not be queried.
var ErrProviderUnavailable = errors.New("clearance provider unavailable")

// Provider looks up height-restricted structures.
type Provider interface {
	// StructuresInBox returns every structure carrying a height restriction inside the box.
	StructuresInBox(ctx context.Context, box polyline.BoundingBox) ([]Structure, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Structure is a mapped way with a posted height restriction.
type Structure struct {
	ID int64
	// Name is the structure name, or empty when untagged.
	Name string
	// Road is the road reference or name passing under the restriction.
	Road string
	// MaxHeight is the raw restriction tag ("13'6\"", "4.1", "12 ft").
	MaxHeight string
	// Nodes are the way's node coordinates in order.
	Nodes []polyline.Coordinate
}

// Centroid returns the arithmetic mean of the node coordinates.
func (s Structure) Centroid() (polyline.Coordinate, bool) {
	if len(s.Nodes) == 0 {
		return polyline.Coordinate{}, false
	}
	var lat, lon float64
	for _, n := range s.Nodes {
		lat += n.Lat
		lon += n.Lon
	}
	n := float64(len(s.Nodes))
	return polyline.Coordinate{Lat: lat / n, Lon: lon / n}, true
}
