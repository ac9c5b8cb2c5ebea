// Package polyline decodes and measures encoded route geometries.
// The encoding is Google's polyline algorithm with 5 decimal places of precision,
// as returned by the Mapbox and Google directions APIs.
package polyline

import (
	"errors"
	"fmt"
	"math"

	gopolyline "github.com/twpayne/go-polyline"
)

// EarthRadiusMiles is the mean Earth radius used for all great-circle distances.
const EarthRadiusMiles = 3959.0

// ErrEmpty is returned when decoding an empty polyline.
var ErrEmpty = errors.New("polyline is empty")

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within WGS-84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Decode decodes a polyline-encoded string into a slice of coordinates.
// Trailing garbage and out-of-range points are reported as errors.
func Decode(encoded string) ([]Coordinate, error) {
	if encoded == "" {
		return nil, ErrEmpty
	}

	coords, rest, err := gopolyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}

	points := make([]Coordinate, 0, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("decode polyline: point %d has %d dimensions", i, len(c))
		}
		p := Coordinate{Lat: c[0], Lon: c[1]}
		if !p.Valid() {
			return nil, fmt.Errorf("decode polyline: point %d out of range (%f, %f)", i, p.Lat, p.Lon)
		}
		points = append(points, p)
	}

	return points, nil
}

// Encode encodes a slice of coordinates into a polyline-encoded string.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	raw := make([][]float64, len(coords))
	for i, c := range coords {
		raw[i] = []float64{c.Lat, c.Lon}
	}
	return string(gopolyline.EncodeCoords(raw))
}

// Haversine returns the great-circle distance between two coordinates in miles.
func Haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(h))
}

// Length returns the total path length in miles.
func Length(coords []Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(coords); i++ {
		total += Haversine(coords[i-1], coords[i])
	}
	return total
}

// BoundingBox is an axis-aligned latitude/longitude box.
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Bounds returns the bounding box of the path expanded by buffer degrees on every side.
// An empty path yields the zero box and false.
func Bounds(coords []Coordinate, buffer float64) (BoundingBox, bool) {
	if len(coords) == 0 {
		return BoundingBox{}, false
	}

	box := BoundingBox{
		South: coords[0].Lat,
		North: coords[0].Lat,
		West:  coords[0].Lon,
		East:  coords[0].Lon,
	}
	for _, c := range coords[1:] {
		box.South = math.Min(box.South, c.Lat)
		box.North = math.Max(box.North, c.Lat)
		box.West = math.Min(box.West, c.Lon)
		box.East = math.Max(box.East, c.Lon)
	}

	box.South -= buffer
	box.West -= buffer
	box.North += buffer
	box.East += buffer
	return box, true
}

// Contains checks if a point is within the bounding box.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.South && c.Lat <= b.North && c.Lon >= b.West && c.Lon <= b.East
}
