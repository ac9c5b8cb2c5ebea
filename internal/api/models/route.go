package models

import (
	"github.com/routecast/routecast/internal/weather"
)

// StopPoint is an intermediate stop on a requested trip.
type StopPoint struct {
	Location string `json:"location" validate:"required,max=200"`
	Type     string `json:"type,omitempty" validate:"omitempty,oneof=stop gas food rest"`
}

// RouteWeatherRequest is the body of POST /v1/routes/weather.
type RouteWeatherRequest struct {
	Origin          string      `json:"origin" validate:"required,max=200"`
	Destination     string      `json:"destination" validate:"required,max=200"`
	Stops           []StopPoint `json:"stops,omitempty" validate:"max=10,dive"`
	DepartureTime   string      `json:"departureTime,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	VehicleType     string      `json:"vehicleType,omitempty" validate:"omitempty,oneof=car suv truck semi rv motorcycle trailer"`
	VehicleHeightFt float64     `json:"vehicleHeightFt,omitempty" validate:"omitempty,gt=0,lte=20"`
}

// RouteWeatherResponse is a full route report.
type RouteWeatherResponse struct {
	ID                   string                   `json:"id"`
	Origin               string                   `json:"origin"`
	Destination          string                   `json:"destination"`
	Stops                []string                 `json:"stops"`
	DepartureTime        Timestamp                `json:"departureTime"`
	RouteSummary         string                   `json:"routeSummary,omitempty"`
	RouteGeometry        string                   `json:"routeGeometry"`
	TotalDistanceMiles   float64                  `json:"totalDistanceMiles"`
	TotalDurationMinutes int                      `json:"totalDurationMinutes"`
	Alternates           []AlternateRoute         `json:"alternates"`
	VehicleType          string                   `json:"vehicleType"`
	VehicleHeightFt      float64                  `json:"vehicleHeightFt,omitempty"`
	Waypoints            []WaypointWeather        `json:"waypoints"`
	AISummary            string                   `json:"aiSummary"`
	HasSevereWeather     bool                     `json:"hasSevereWeather"`
	SafetyScore          SafetyScore              `json:"safetyScore"`
	DelayRisk            DelayRisk                `json:"delayRisk"`
	HazardAlerts         []HazardAlert            `json:"hazardAlerts"`
	DriveWindow          DriveWindow              `json:"driveWindow"`
	BridgeClearances     []BridgeClearance        `json:"bridgeClearances"`
	PackingSuggestions   []PackingSuggestion      `json:"packingSuggestions"`
	WeatherTimeline      []weather.HourlyForecast `json:"weatherTimeline"`
	CreatedAt            Timestamp                `json:"createdAt"`
}

// AlternateRoute summarizes a route the directions provider offered besides the primary.
type AlternateRoute struct {
	Summary         string  `json:"summary"`
	DistanceMiles   float64 `json:"distanceMiles"`
	DurationMinutes int     `json:"durationMinutes"`
}

// Waypoint is a sampled point with its distance and arrival estimate.
type Waypoint struct {
	Lat               float64   `json:"lat"`
	Lon               float64   `json:"lon"`
	Name              string    `json:"name"`
	DistanceFromStart float64   `json:"distanceFromStart"`
	ETAMinutes        int       `json:"etaMinutes"`
	ArrivalTime       Timestamp `json:"arrivalTime"`
}

// WaypointWeather is a waypoint with its forecast, alerts and road condition.
type WaypointWeather struct {
	Waypoint      Waypoint             `json:"waypoint"`
	Weather       *weather.Observation `json:"weather"`
	Alerts        []weather.Alert      `json:"alerts"`
	RoadCondition RoadCondition        `json:"roadCondition"`
	Error         string               `json:"error,omitempty"`
}

type RoadCondition struct {
	Condition      string `json:"condition"`
	Severity       int    `json:"severity"`
	Label          string `json:"label"`
	Recommendation string `json:"recommendation"`
}

type SafetyScore struct {
	Score           int      `json:"overallScore"`
	Level           string   `json:"riskLevel"`
	VehicleType     string   `json:"vehicleType"`
	Factors         []string `json:"factors"`
	Recommendations []string `json:"recommendations"`
}

type DelayRisk struct {
	Percent          int      `json:"delayRiskPercent"`
	Level            string   `json:"riskLevel"`
	EstimatedMinutes int      `json:"estimatedDelayMinutes"`
	Factors          []string `json:"factors"`
	Confidence       string   `json:"confidence"`
}

type HazardAlert struct {
	Type           string  `json:"type"`
	Severity       string  `json:"severity"`
	DistanceMiles  float64 `json:"distanceMiles"`
	ETAMinutes     int     `json:"etaMinutes"`
	Location       string  `json:"location"`
	Message        string  `json:"message"`
	Recommendation string  `json:"recommendation"`
	Countdown      string  `json:"countdown"`
}

type DriveWindow struct {
	Recommendation     string     `json:"recommendation"`
	SuggestedDeparture *Timestamp `json:"suggestedDeparture,omitempty"`
	Reason             string     `json:"reason"`
	ShiftMinutes       int        `json:"shiftMinutes"`
	AlternateRoute     bool       `json:"alternateRouteAvailable"`
}

type BridgeClearance struct {
	Name           string  `json:"name"`
	ClearanceFeet  float64 `json:"clearanceFeet"`
	ClearanceMeter float64 `json:"clearanceMeters"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	DistanceMiles  float64 `json:"distanceMiles"`
	Road           string  `json:"road,omitempty"`
	WarningLevel   string  `json:"warningLevel"`
}

type PackingSuggestion struct {
	Item     string `json:"item"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
}

// SavedRoute is a history or favorites list entry.
type SavedRoute struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Stops       []string  `json:"stops"`
	IsFavorite  bool      `json:"isFavorite"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// FavoriteRouteRequest is the body of POST /v1/routes/favorites.
type FavoriteRouteRequest struct {
	Name        string      `json:"name,omitempty" validate:"max=100"`
	Origin      string      `json:"origin" validate:"required,max=200"`
	Destination string      `json:"destination" validate:"required,max=200"`
	Stops       []StopPoint `json:"stops,omitempty" validate:"max=10,dive"`
}

// GeocodeResponse is the body of GET /v1/geocode.
type GeocodeResponse struct {
	Query    string  `json:"query"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Name     string  `json:"name"`
	FullName string  `json:"fullName,omitempty"`
}
