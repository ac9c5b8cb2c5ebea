package hazard

import (
	"math"
	"sort"

	"github.com/routecast/routecast/internal/clearance"
	"github.com/routecast/routecast/pkg/polyline"
)

const (
	// BridgeSearchBuffer pads the route bounding box for the structure query, in degrees.
	BridgeSearchBuffer = 0.01

	clearanceMarginFeet = 1.0
	warningMarginFeet   = 0.5
	onRouteMiles        = 0.5
)

// PathBoundingBox returns the structure search box for a path.
func PathBoundingBox(path []polyline.Coordinate) (polyline.BoundingBox, bool) {
	return polyline.Bounds(path, BridgeSearchBuffer)
}

// MatchBridges keeps the structures whose clearance is within a foot of the
// vehicle height and that lie within half a mile of the path, ordered by
// distance from the start. Distances are capped at totalMiles when it is positive.
func MatchBridges(path []polyline.Coordinate, vehicleHeightFt, totalMiles float64, structures []clearance.Structure) []BridgeClearance {
	matches := make([]BridgeClearance, 0)
	if len(path) == 0 || vehicleHeightFt <= 0 {
		return matches
	}

	// Cumulative distance at each path sample.
	cumulative := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		cumulative[i] = cumulative[i-1] + polyline.Haversine(path[i-1], path[i])
	}

	for _, s := range structures {
		feet, ok := ParseClearance(s.MaxHeight)
		if !ok || feet > vehicleHeightFt+clearanceMarginFeet {
			continue
		}
		point, ok := s.Centroid()
		if !ok {
			continue
		}

		distance := -1.0
		for i, p := range path {
			if polyline.Haversine(p, point) < onRouteMiles {
				distance = cumulative[i]
				break
			}
		}
		if distance < 0 {
			continue
		}
		if totalMiles > 0 {
			distance = math.Min(distance, totalMiles)
		}

		name := s.Name
		if name == "" {
			name = "Low clearance structure"
		}

		matches = append(matches, BridgeClearance{
			Name:           name,
			ClearanceFeet:  roundTenth(feet),
			ClearanceMeter: math.Round(feet/FeetPerMeter*100) / 100,
			Coordinate:     point,
			DistanceMiles:  roundTenth(distance),
			Road:           s.Road,
			Level:          clearanceLevel(feet, vehicleHeightFt),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceMiles < matches[j].DistanceMiles
	})
	return matches
}

func clearanceLevel(clearanceFt, vehicleFt float64) WarningLevel {
	switch {
	case clearanceFt < vehicleFt:
		return ClearanceCritical
	case clearanceFt < vehicleFt+warningMarginFeet:
		return ClearanceWarning
	default:
		return ClearanceCaution
	}
}
