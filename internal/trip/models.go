// Package trip evaluates driving trips end to end and keeps the history of
// evaluated routes and the user's favorite routes.
package trip

import (
	"errors"
	"fmt"
	"time"

	"github.com/routecast/routecast/internal/hazard"
)

// Trip errors.
var (
	ErrRouteNotEvaluable = errors.New("route could not be evaluated")
	ErrReportNotFound    = errors.New("route report not found")
	ErrFavoriteNotFound  = errors.New("favorite route not found")
	ErrInvalidRequest    = errors.New("invalid trip request")
)

// Limits for stored lists.
const (
	HistoryLimit   = 10
	FavoritesLimit = 20
)

// LocationError reports a place that could not be geocoded.
type LocationError struct {
	Role  string // "origin" or "destination"
	Query string
	Err   error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("could not geocode %s %q: %v", e.Role, e.Query, e.Err)
}

func (e *LocationError) Unwrap() error {
	return e.Err
}

// Request is a trip to evaluate.
type Request struct {
	Origin      string
	Destination string
	Stops       []string

	// Departure defaults to the evaluation time.
	Departure time.Time

	Vehicle hazard.VehicleType
	// VehicleHeightFt enables low-clearance matching when positive.
	VehicleHeightFt float64

	// Ephemeral reports are returned but not stored in history.
	Ephemeral bool
}

// RouteOption is an alternate route returned by the directions provider.
type RouteOption struct {
	Summary         string
	DistanceMiles   float64
	DurationMinutes int
}

// Report is a completed trip evaluation.
type Report struct {
	ID          string
	Origin      string
	Destination string
	Stops       []string
	Departure   time.Time

	RouteSummary         string
	RouteGeometry        string
	TotalDistanceMiles   float64
	TotalDurationMinutes int
	Alternates           []RouteOption

	Vehicle         hazard.VehicleType
	VehicleHeightFt float64

	Analysis hazard.Analysis
	Summary  string

	CreatedAt time.Time
}

// ReportSummary is the history listing view of a report.
type ReportSummary struct {
	ID          string
	Origin      string
	Destination string
	Stops       []string
	IsFavorite  bool
	CreatedAt   time.Time
}

// Favorite is a saved route the user wants to re-check.
type Favorite struct {
	ID          string
	Name        string
	Origin      string
	Destination string
	Stops       []string
	CreatedAt   time.Time
}

// FavoriteInput creates a favorite.
type FavoriteInput struct {
	Name        string
	Origin      string
	Destination string
	Stops       []string
}
