// Package hazard turns a driving route plus per-point weather and alerts into
// road conditions, risk scores, hazard alerts and departure advice.
//
// Everything in this package is pure: no I/O, no clocks other than values
// passed in, and no errors for partial data.
package hazard

import (
	"time"

	"github.com/routecast/routecast/internal/weather"
	"github.com/routecast/routecast/pkg/polyline"
)

// Waypoint is a sampled point along the route.
type Waypoint struct {
	Coordinate    polyline.Coordinate
	Name          string
	DistanceMiles float64 // cumulative, rounded to 0.1
	ETAMinutes    int     // offset from departure, truncated
	ArrivalTime   time.Time
}

// WaypointReport is a waypoint with whatever weather data could be fetched for it.
type WaypointReport struct {
	Waypoint    Waypoint
	Observation *weather.Observation // nil when unavailable
	Alerts      []weather.Alert
	Condition   RoadCondition
	// Error notes a fetch failure; the waypoint is still scored.
	Error string
}

// HasSevereAlert reports whether any alert at this waypoint is Extreme or Severe.
func (r *WaypointReport) HasSevereAlert() bool {
	return weather.HasSevere(r.Alerts)
}

// ConditionKind enumerates road surface states.
type ConditionKind string

// Road condition kinds.
const (
	ConditionDry           ConditionKind = "dry"
	ConditionWet           ConditionKind = "wet"
	ConditionSlippery      ConditionKind = "slippery"
	ConditionIcy           ConditionKind = "icy"
	ConditionSnowCovered   ConditionKind = "snow_covered"
	ConditionFlooded       ConditionKind = "flooded"
	ConditionLowVisibility ConditionKind = "low_visibility"
	ConditionDangerousWind ConditionKind = "dangerous_wind"
	ConditionUnknown       ConditionKind = "unknown"
)

// RoadCondition is the classified surface state at one waypoint.
type RoadCondition struct {
	Kind           ConditionKind
	Severity       int // 0-4
	Label          string
	Recommendation string
}

// RiskLevel is a banded risk classification.
type RiskLevel string

// Risk levels. Safety uses low/moderate/high/extreme; delay uses low/medium/high/critical.
const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskExtreme  RiskLevel = "extreme"
	RiskCritical RiskLevel = "critical"
)

// SafetyScore is the vehicle-aware safety assessment of a whole route.
type SafetyScore struct {
	Score           int // 0-100, higher is safer
	Level           RiskLevel
	VehicleType     VehicleType
	Factors         []string
	Recommendations []string
}

// DelayRiskScore estimates the chance and size of weather delays.
type DelayRiskScore struct {
	Percent        int // 0-100
	Level          RiskLevel
	DelayMinutes   int
	Factors        []string
	Confidence     string
	EvaluatedCount int // waypoints that carried an observation
}

// AlertSeverity grades a hazard alert.
type AlertSeverity string

// Hazard alert severities.
const (
	AlertMedium  AlertSeverity = "medium"
	AlertHigh    AlertSeverity = "high"
	AlertExtreme AlertSeverity = "extreme"
)

// HazardType names the rule that produced a hazard alert.
type HazardType string

// Hazard types.
const (
	HazardWind      HazardType = "wind"
	HazardRain      HazardType = "rain"
	HazardSnow      HazardType = "snow"
	HazardIce       HazardType = "ice"
	HazardFog       HazardType = "fog"
	HazardNOAAAlert HazardType = "weather_alert"
)

// HazardAlert is one triggered rule at one waypoint.
type HazardAlert struct {
	Type           HazardType
	Severity       AlertSeverity
	DistanceMiles  float64
	ETAMinutes     int
	Location       string
	Message        string
	Recommendation string
	Countdown      string
}

// WarningLevel grades a low-clearance structure against the vehicle height.
type WarningLevel string

// Clearance warning levels.
const (
	ClearanceCaution  WarningLevel = "caution"
	ClearanceWarning  WarningLevel = "warning"
	ClearanceCritical WarningLevel = "critical"
)

// BridgeClearance is a low structure on or near the route.
type BridgeClearance struct {
	Name           string
	ClearanceFeet  float64
	ClearanceMeter float64
	Coordinate     polyline.Coordinate
	DistanceMiles  float64
	Road           string
	Level          WarningLevel
}

// DepartureAction is the drive window recommendation.
type DepartureAction string

// Departure actions.
const (
	DepartNow     DepartureAction = "depart_now"
	DepartEarlier DepartureAction = "depart_earlier"
	DepartLater   DepartureAction = "depart_later"
	Postpone      DepartureAction = "postpone"
)

// DriveWindowAdvice recommends when to leave.
type DriveWindowAdvice struct {
	Action             DepartureAction
	SuggestedDeparture *time.Time
	Reason             string
	ShiftMinutes       int
	AlternateRoute     bool
}

// PackingPriority ranks a packing suggestion.
type PackingPriority string

// Packing priorities.
const (
	PriorityEssential   PackingPriority = "essential"
	PriorityRecommended PackingPriority = "recommended"
	PriorityOptional    PackingPriority = "optional"
)

// PackingSuggestion is an item worth bringing given the route weather.
type PackingSuggestion struct {
	Item     string
	Reason   string
	Priority PackingPriority
}

// Analysis is the full engine output for one route.
type Analysis struct {
	Waypoints        []WaypointReport
	Safety           SafetyScore
	Delay            DelayRiskScore
	Alerts           []HazardAlert
	Window           DriveWindowAdvice
	Bridges          []BridgeClearance
	Packing          []PackingSuggestion
	Timeline         []weather.HourlyForecast
	HasSevereWeather bool
}
