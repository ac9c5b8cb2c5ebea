package trip

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/routecast/routecast/internal/clearance"
	"github.com/routecast/routecast/internal/geocoding"
	"github.com/routecast/routecast/internal/hazard"
	"github.com/routecast/routecast/internal/routing"
	"github.com/routecast/routecast/internal/summary"
	"github.com/routecast/routecast/internal/weather"
	"github.com/routecast/routecast/pkg/polyline"
)

// Defaults for ServiceConfig.
const (
	DefaultMaxConcurrency    = 8
	DefaultEvaluationTimeout = 25 * time.Second
)

// Metric labels for outbound calls.
const (
	providerGeocoding = "geocoding"
	providerRouting   = "routing"
	providerWeather   = "weather"
	providerClearance = "clearance"
)

const deadlineExceeded = "evaluation deadline exceeded"

// Geocoder resolves place names to coordinates and back.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocoding.Place, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (*geocoding.Place, error)
}

// Router fetches driving directions.
type Router interface {
	GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error)
}

// WeatherSource fetches point forecasts and active alerts.
type WeatherSource interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error)
	GetAlerts(ctx context.Context, lat, lon float64) ([]weather.Alert, error)
}

// Recorder receives one sample per outbound provider call.
type Recorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// ServiceConfig holds the collaborators and tunables for a Service.
type ServiceConfig struct {
	Geocoder   Geocoder
	Router     Router
	Weather    WeatherSource
	Repository Repository

	// Clearance is optional; without it no bridge warnings are produced.
	Clearance clearance.Provider
	// Summarizer is optional; without it reports carry the fallback summary.
	Summarizer summary.Summarizer
	// Metrics is optional.
	Metrics Recorder

	// Hazard holds the condition catalog and vehicle profiles. Zero value uses the defaults.
	Hazard hazard.Config

	Logger zerolog.Logger

	IntervalMiles     float64
	AverageSpeedMPH   float64
	MaxConcurrency    int
	EvaluationTimeout time.Duration

	// Now is overridable for tests.
	Now func() time.Time
}

// Service evaluates trips and manages history and favorites.
type Service struct {
	geocoder   Geocoder
	router     Router
	weather    WeatherSource
	repo       Repository
	clearance  clearance.Provider
	summarizer summary.Summarizer
	metrics    Recorder
	engine     *hazard.Engine
	logger     zerolog.Logger

	intervalMiles     float64
	averageSpeedMPH   float64
	maxConcurrency    int
	evaluationTimeout time.Duration
	now               func() time.Time
}

// NewService creates a trip service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Hazard.Conditions == nil && cfg.Hazard.Vehicles == nil {
		cfg.Hazard = hazard.DefaultConfig()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.EvaluationTimeout <= 0 {
		cfg.EvaluationTimeout = DefaultEvaluationTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		geocoder:          cfg.Geocoder,
		router:            cfg.Router,
		weather:           cfg.Weather,
		repo:              cfg.Repository,
		clearance:         cfg.Clearance,
		summarizer:        cfg.Summarizer,
		metrics:           cfg.Metrics,
		engine:            hazard.NewEngine(cfg.Hazard),
		logger:            cfg.Logger.With().Str("component", "trip").Logger(),
		intervalMiles:     cfg.IntervalMiles,
		averageSpeedMPH:   cfg.AverageSpeedMPH,
		maxConcurrency:    cfg.MaxConcurrency,
		evaluationTimeout: cfg.EvaluationTimeout,
		now:               cfg.Now,
	}
}

// Evaluate geocodes the trip, fetches the route, gathers weather along it and
// returns the stored hazard report.
//
// Per-waypoint failures never fail the evaluation. When the evaluation deadline
// passes, waypoints still in flight are reported without weather.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Report, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	origin, err := s.locate(ctx, "origin", req.Origin)
	if err != nil {
		return nil, err
	}
	destination, err := s.locate(ctx, "destination", req.Destination)
	if err != nil {
		return nil, err
	}

	stops := make([]routing.Coordinate, 0, len(req.Stops))
	for _, q := range req.Stops {
		place, err := s.geocode(ctx, q)
		if err != nil {
			s.logger.Warn().Err(err).Str("stop", q).Msg("skipping stop that could not be geocoded")
			continue
		}
		stops = append(stops, place.Coordinate)
	}

	start := time.Now()
	directions, err := s.router.GetDirections(ctx, routing.DirectionsRequest{
		Origin:       origin.Coordinate,
		Destination:  destination.Coordinate,
		Stops:        stops,
		Alternatives: true,
	})
	s.record(providerRouting, "directions", start, err)
	if err != nil {
		return nil, fmt.Errorf("get directions: %w", err)
	}

	primary, ok := directions.Primary()
	if !ok {
		return nil, ErrRouteNotEvaluable
	}
	path, err := polyline.Decode(primary.GeometryPolyline)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteNotEvaluable, err)
	}

	waypoints := hazard.SampleWaypoints(path, hazard.SampleOptions{
		IntervalMiles:   s.intervalMiles,
		AverageSpeedMPH: s.averageSpeedMPH,
		Departure:       req.Departure,
	})
	if len(waypoints) == 0 {
		return nil, ErrRouteNotEvaluable
	}

	totalMiles := polyline.Length(path)
	reports, structures := s.gather(ctx, req, waypoints, path)

	analysis := s.engine.Analyze(hazard.AnalysisInput{
		Waypoints:       reports,
		Path:            path,
		TotalMiles:      totalMiles,
		Vehicle:         req.Vehicle,
		VehicleHeightFt: req.VehicleHeightFt,
		Structures:      structures,
		Departure:       req.Departure,
	})

	prompt := summary.BuildPrompt(summary.PromptInput{
		Origin:      req.Origin,
		Destination: req.Destination,
		Waypoints:   analysis.Waypoints,
		Packing:     analysis.Packing,
	})

	report := &Report{
		ID:                   uuid.NewString(),
		Origin:               req.Origin,
		Destination:          req.Destination,
		Stops:                req.Stops,
		Departure:            req.Departure,
		RouteSummary:         primary.Summary,
		RouteGeometry:        primary.GeometryPolyline,
		TotalDistanceMiles:   primary.DistanceMiles(),
		TotalDurationMinutes: primary.DurationMinutes(),
		Alternates:           alternates(directions.Routes),
		Vehicle:              req.Vehicle,
		VehicleHeightFt:      req.VehicleHeightFt,
		Analysis:             analysis,
		Summary:              summary.Generate(ctx, s.summarizer, prompt, s.logger),
		CreatedAt:            s.now(),
	}

	if !req.Ephemeral {
		if err := s.repo.SaveReport(ctx, report); err != nil {
			s.logger.Warn().Err(err).Str("report_id", report.ID).Msg("failed to save route report")
		}
	}

	s.logger.Info().
		Str("report_id", report.ID).
		Int("waypoints", len(analysis.Waypoints)).
		Int("safety_score", analysis.Safety.Score).
		Int("delay_percent", analysis.Delay.Percent).
		Bool("severe", analysis.HasSevereWeather).
		Msg("route evaluated")

	return report, nil
}

// gather fetches weather, alerts and place names for every waypoint, plus the
// height-restricted structures along the path, under one overall deadline.
// Results come back in waypoint order.
func (s *Service) gather(ctx context.Context, req Request, waypoints []hazard.Waypoint, path []polyline.Coordinate) ([]hazard.WaypointReport, []clearance.Structure) {
	ctx, cancel := context.WithTimeout(ctx, s.evaluationTimeout)
	defer cancel()

	slots := make([]atomic.Pointer[hazard.WaypointReport], len(waypoints))
	var structures atomic.Pointer[[]clearance.Structure]

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if req.VehicleHeightFt > 0 && s.clearance != nil {
			g.Go(func() error {
				found := s.structuresAlong(ctx, path)
				structures.Store(&found)
				return nil
			})
		}
		for i := range waypoints {
			g.Go(func() error {
				r := s.evaluateWaypoint(ctx, req, i, len(waypoints), waypoints[i])
				slots[i].Store(&r)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn().Err(ctx.Err()).Int("waypoints", len(waypoints)).Msg("returning partial route evaluation")
	}

	reports := make([]hazard.WaypointReport, len(waypoints))
	for i, wp := range waypoints {
		if r := slots[i].Load(); r != nil {
			reports[i] = *r
			continue
		}
		wp.Name = displayName(i, len(waypoints), wp.Name, "", req)
		reports[i] = hazard.WaypointReport{Waypoint: wp, Error: deadlineExceeded}
	}

	var found []clearance.Structure
	if p := structures.Load(); p != nil {
		found = *p
	}
	return reports, found
}

// evaluateWaypoint runs the three lookups for one waypoint concurrently.
// Reverse geocoding is skipped for the endpoints, which are named after the request.
func (s *Service) evaluateWaypoint(ctx context.Context, req Request, i, n int, wp hazard.Waypoint) hazard.WaypointReport {
	lat, lon := wp.Coordinate.Lat, wp.Coordinate.Lon

	var (
		obs                           *weather.Observation
		alerts                        []weather.Alert
		place                         *geocoding.Place
		obsErr, alertsErr, reverseErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		obs, obsErr = s.weather.GetCurrentWeather(ctx, lat, lon)
		s.record(providerWeather, "current", start, obsErr)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		alerts, alertsErr = s.weather.GetAlerts(ctx, lat, lon)
		s.record(providerWeather, "alerts", start, alertsErr)
		return nil
	})
	if i > 0 && i < n-1 {
		g.Go(func() error {
			start := time.Now()
			place, reverseErr = s.geocoder.ReverseGeocode(ctx, lat, lon)
			s.record(providerGeocoding, "reverse", start, reverseErr)
			return nil
		})
	}
	_ = g.Wait()

	var problems []string
	if obsErr != nil {
		obs = nil
		problems = append(problems, "weather: "+obsErr.Error())
	}
	if alertsErr != nil {
		alerts = nil
		problems = append(problems, "alerts: "+alertsErr.Error())
	}
	if len(problems) > 0 {
		s.logger.Warn().
			Int("waypoint", i).
			Float64("lat", lat).
			Float64("lon", lon).
			Strs("errors", problems).
			Msg("waypoint weather unavailable")
	}
	if reverseErr != nil {
		s.logger.Debug().Err(reverseErr).Int("waypoint", i).Msg("reverse geocode failed")
	}

	wp.Name = displayName(i, n, wp.Name, place.DisplayName(), req)
	if alerts == nil {
		alerts = []weather.Alert{}
	}

	return hazard.WaypointReport{
		Waypoint:    wp,
		Observation: obs,
		Alerts:      alerts,
		Error:       strings.Join(problems, "; "),
	}
}

func (s *Service) structuresAlong(ctx context.Context, path []polyline.Coordinate) []clearance.Structure {
	box, ok := hazard.PathBoundingBox(path)
	if !ok {
		return nil
	}

	start := time.Now()
	found, err := s.clearance.StructuresInBox(ctx, box)
	s.record(providerClearance, "structures", start, err)
	if err != nil {
		s.logger.Warn().Err(err).Msg("clearance lookup failed, skipping bridge warnings")
		return nil
	}
	return found
}

// displayName labels the endpoints after the request and interior points after
// the nearest place when one is known.
func displayName(i, n int, sampled, place string, req Request) string {
	switch {
	case i == 0:
		return "Start - " + req.Origin
	case i == n-1:
		return "End - " + req.Destination
	case place != "":
		return sampled + " - " + place
	default:
		return sampled
	}
}

func alternates(routes []routing.Route) []RouteOption {
	if len(routes) < 2 {
		return []RouteOption{}
	}
	out := make([]RouteOption, 0, len(routes)-1)
	for _, r := range routes[1:] {
		out = append(out, RouteOption{
			Summary:         r.Summary,
			DistanceMiles:   r.DistanceMiles(),
			DurationMinutes: r.DurationMinutes(),
		})
	}
	return out
}

// GetReport returns a stored report.
func (s *Service) GetReport(ctx context.Context, id string) (*Report, error) {
	return s.repo.GetReport(ctx, id)
}

// History returns the most recent evaluations, flagging those saved as favorites.
func (s *Service) History(ctx context.Context) ([]ReportSummary, error) {
	items, err := s.repo.ListReports(ctx, HistoryLimit)
	if err != nil {
		return nil, err
	}

	favorites, err := s.repo.ListFavorites(ctx, FavoritesLimit)
	if err != nil {
		return nil, err
	}
	saved := make(map[string]bool, len(favorites))
	for _, f := range favorites {
		saved[routeKey(f.Origin, f.Destination, f.Stops)] = true
	}
	for i := range items {
		items[i].IsFavorite = saved[routeKey(items[i].Origin, items[i].Destination, items[i].Stops)]
	}
	return items, nil
}

// AddFavorite saves a route for later re-evaluation.
func (s *Service) AddFavorite(ctx context.Context, input FavoriteInput) (*Favorite, error) {
	origin := strings.TrimSpace(input.Origin)
	destination := strings.TrimSpace(input.Destination)
	if origin == "" || destination == "" {
		return nil, fmt.Errorf("%w: origin and destination are required", ErrInvalidRequest)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = origin + " to " + destination
	}

	fav := &Favorite{
		ID:          uuid.NewString(),
		Name:        name,
		Origin:      origin,
		Destination: destination,
		Stops:       cleanStops(input.Stops),
		CreatedAt:   s.now(),
	}
	if err := s.repo.SaveFavorite(ctx, fav); err != nil {
		return nil, err
	}
	return fav, nil
}

// Favorites returns the most recently saved favorites.
func (s *Service) Favorites(ctx context.Context) ([]*Favorite, error) {
	return s.repo.ListFavorites(ctx, FavoritesLimit)
}

// DeleteFavorite removes a favorite.
func (s *Service) DeleteFavorite(ctx context.Context, id string) error {
	return s.repo.DeleteFavorite(ctx, id)
}

// Geocode resolves a free-text place.
func (s *Service) Geocode(ctx context.Context, query string) (*geocoding.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidRequest)
	}
	return s.geocode(ctx, query)
}

// TripRequest converts a favorite into an evaluation request departing at t.
func (f *Favorite) TripRequest(t time.Time) Request {
	return Request{
		Origin:      f.Origin,
		Destination: f.Destination,
		Stops:       f.Stops,
		Departure:   t,
	}
}

func (s *Service) normalize(req Request) (Request, error) {
	req.Origin = strings.TrimSpace(req.Origin)
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Origin == "" || req.Destination == "" {
		return req, fmt.Errorf("%w: origin and destination are required", ErrInvalidRequest)
	}
	if req.VehicleHeightFt < 0 {
		return req, fmt.Errorf("%w: vehicle height must not be negative", ErrInvalidRequest)
	}
	req.Stops = cleanStops(req.Stops)
	if req.Departure.IsZero() {
		req.Departure = s.now()
	}
	if req.Vehicle == "" {
		req.Vehicle = hazard.VehicleCar
	}
	return req, nil
}

func (s *Service) locate(ctx context.Context, role, query string) (*geocoding.Place, error) {
	place, err := s.geocode(ctx, query)
	if err != nil {
		return nil, &LocationError{Role: role, Query: query, Err: err}
	}
	return place, nil
}

func (s *Service) geocode(ctx context.Context, query string) (*geocoding.Place, error) {
	start := time.Now()
	place, err := s.geocoder.Geocode(ctx, query)
	s.record(providerGeocoding, "forward", start, err)
	if err == nil && place == nil {
		err = geocoding.ErrLocationNotFound
	}
	return place, err
}

func (s *Service) record(provider, operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	s.metrics.RecordRequest(provider, operation, time.Since(start), err)
}

func cleanStops(stops []string) []string {
	out := make([]string, 0, len(stops))
	for _, st := range stops {
		if st = strings.TrimSpace(st); st != "" {
			out = append(out, st)
		}
	}
	return out
}

func routeKey(origin, destination string, stops []string) string {
	parts := append([]string{origin}, stops...)
	parts = append(parts, destination)
	return strings.ToLower(strings.Join(parts, "|"))
}
