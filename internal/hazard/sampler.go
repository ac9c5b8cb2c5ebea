package hazard

import (
	"fmt"
	"math"
	"time"

	"github.com/routecast/routecast/pkg/polyline"
)

// Sampler defaults.
const (
	DefaultIntervalMiles   = 50.0
	DefaultAverageSpeedMPH = 55.0

	// closingThresholdMiles forces a final waypoint when the last sample is
	// farther than this from the true end of the path.
	closingThresholdMiles = 10.0
)

// SampleOptions configures waypoint sampling. Zero values select the defaults.
type SampleOptions struct {
	IntervalMiles   float64
	AverageSpeedMPH float64
	Departure       time.Time
}

func (o SampleOptions) withDefaults() SampleOptions {
	if o.IntervalMiles <= 0 {
		o.IntervalMiles = DefaultIntervalMiles
	}
	if o.AverageSpeedMPH <= 0 {
		o.AverageSpeedMPH = DefaultAverageSpeedMPH
	}
	if o.Departure.IsZero() {
		o.Departure = time.Now()
	}
	return o
}

// SampleEncoded decodes an encoded polyline and samples it. A malformed or empty
// polyline yields no waypoints.
func SampleEncoded(encoded string, opts SampleOptions) []Waypoint {
	path, err := polyline.Decode(encoded)
	if err != nil {
		return []Waypoint{}
	}
	return SampleWaypoints(path, opts)
}

// SampleWaypoints walks the path and emits a waypoint each time the cumulative
// great-circle distance since the previous waypoint reaches the interval.
// The first point is always emitted; the true end is emitted when the last
// sample is more than ten miles short of it or nothing else was emitted.
func SampleWaypoints(path []polyline.Coordinate, opts SampleOptions) []Waypoint {
	if len(path) == 0 {
		return []Waypoint{}
	}
	for _, c := range path {
		if !c.Valid() || math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
			return []Waypoint{}
		}
	}

	opts = opts.withDefaults()

	waypoints := []Waypoint{{
		Coordinate:  path[0],
		Name:        "Start",
		ArrivalTime: opts.Departure,
	}}

	var total, lastEmitted float64
	for i := 1; i < len(path); i++ {
		total += polyline.Haversine(path[i-1], path[i])
		if total-lastEmitted >= opts.IntervalMiles {
			waypoints = append(waypoints, opts.waypointAt(path[i], fmt.Sprintf("Mile %d", int(total)), total))
			lastEmitted = total
		}
	}

	end := path[len(path)-1]
	last := waypoints[len(waypoints)-1]
	if len(waypoints) == 1 || polyline.Haversine(last.Coordinate, end) > closingThresholdMiles {
		waypoints = append(waypoints, opts.waypointAt(end, "Destination", total))
	}

	return waypoints
}

func (o SampleOptions) waypointAt(c polyline.Coordinate, name string, miles float64) Waypoint {
	eta := etaMinutes(miles, o.AverageSpeedMPH)
	return Waypoint{
		Coordinate:    c,
		Name:          name,
		DistanceMiles: roundTenth(miles),
		ETAMinutes:    eta,
		ArrivalTime:   o.Departure.Add(time.Duration(eta) * time.Minute),
	}
}

func etaMinutes(miles, mph float64) int {
	return int(miles / mph * 60)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
