package hazard

import (
	"time"

	"github.com/routecast/routecast/internal/clearance"
	"github.com/routecast/routecast/pkg/polyline"
)

// AnalysisInput is everything the engine needs for one route.
type AnalysisInput struct {
	// Waypoints carry the sampled points and whatever weather was fetched for them.
	// Condition is overwritten by the engine.
	Waypoints []WaypointReport

	// Path is the decoded route geometry, used for bridge matching.
	Path       []polyline.Coordinate
	TotalMiles float64

	Vehicle         VehicleType
	VehicleHeightFt float64
	Structures      []clearance.Structure

	Departure time.Time
}

// Engine runs the classifier and every scorer over a route.
type Engine struct {
	classifier *Classifier
	safety     *SafetyScorer
}

// NewEngine creates an engine from the given lookup data.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		classifier: NewClassifier(cfg.Conditions),
		safety:     NewSafetyScorer(cfg.Vehicles),
	}
}

// Analyze classifies every waypoint and produces the full assessment.
// The input slice is not modified.
func (e *Engine) Analyze(in AnalysisInput) Analysis {
	reports := make([]WaypointReport, len(in.Waypoints))
	severe := false
	for i, r := range in.Waypoints {
		r.Condition = e.classifier.Classify(r.Observation, r.Alerts)
		reports[i] = r
		severe = severe || r.HasSevereAlert()
	}

	delay := ScoreDelayRisk(reports)

	vehicle := in.Vehicle
	if vehicle == "" {
		vehicle = VehicleCar
	}

	departure := in.Departure
	if departure.IsZero() && len(reports) > 0 {
		departure = reports[0].Waypoint.ArrivalTime
	}

	return Analysis{
		Waypoints:        reports,
		Safety:           e.safety.Score(reports, vehicle),
		Delay:            delay,
		Alerts:           GenerateHazardAlerts(reports),
		Window:           AdviseDriveWindow(delay, departure),
		Bridges:          MatchBridges(in.Path, in.VehicleHeightFt, in.TotalMiles, in.Structures),
		Packing:          SuggestPacking(reports),
		Timeline:         BuildTimeline(reports),
		HasSevereWeather: severe,
	}
}
