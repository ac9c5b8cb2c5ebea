package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/api/middleware"
	"github.com/routecast/routecast/internal/api/models"
	"github.com/routecast/routecast/internal/api/response"
	"github.com/routecast/routecast/internal/export/kmlexport"
	"github.com/routecast/routecast/internal/geocoding"
	"github.com/routecast/routecast/internal/routing"
	"github.com/routecast/routecast/internal/trip"
)

// TripService is the trip evaluation and storage surface used by RouteHandler.
type TripService interface {
	Evaluate(ctx context.Context, req trip.Request) (*trip.Report, error)
	GetReport(ctx context.Context, id string) (*trip.Report, error)
	History(ctx context.Context) ([]trip.ReportSummary, error)
	AddFavorite(ctx context.Context, input trip.FavoriteInput) (*trip.Favorite, error)
	Favorites(ctx context.Context) ([]*trip.Favorite, error)
	DeleteFavorite(ctx context.Context, id string) error
	Geocode(ctx context.Context, query string) (*geocoding.Place, error)
}

// RouteHandler serves route evaluation, history, favorites and geocoding.
type RouteHandler struct {
	trips    TripService
	validate *validator.Validate
	log      zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(trips TripService, log zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		trips:    trips,
		validate: newValidator(),
		log:      log.With().Str("component", "route_handler").Logger(),
	}
}

// EvaluateRoute handles POST /v1/routes/weather.
func (h *RouteHandler) EvaluateRoute(w http.ResponseWriter, r *http.Request) {
	var input models.RouteWeatherRequest
	if err := decodeJSON(w, r, h.validate, &input); err != nil {
		writeRequestError(w, r, err)
		return
	}

	report, err := h.trips.Evaluate(r.Context(), toTripRequest(input))
	if err != nil {
		h.writeTripError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, toRouteResponse(report))
}

// GetRoute handles GET /v1/routes/{routeId}.
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	report, err := h.trips.GetReport(r.Context(), chi.URLParam(r, "routeId"))
	if err != nil {
		h.writeTripError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toRouteResponse(report))
}

// ExportKML handles GET /v1/routes/{routeId}/kml.
func (h *RouteHandler) ExportKML(w http.ResponseWriter, r *http.Request) {
	report, err := h.trips.GetReport(r.Context(), chi.URLParam(r, "routeId"))
	if err != nil {
		h.writeTripError(w, r, err)
		return
	}

	body, err := kmlexport.Render(report)
	if err != nil {
		h.writeTripError(w, r, err)
		return
	}
	response.Attachment(w, r, kmlexport.ContentType, kmlexport.Filename(report), body)
}

// History handles GET /v1/routes/history.
func (h *RouteHandler) History(w http.ResponseWriter, r *http.Request) {
	items, err := h.trips.History(r.Context())
	if err != nil {
		h.writeTripError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toSavedRoutes(items))
}

// ListFavorites handles GET /v1/routes/favorites.
func (h *RouteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := h.trips.Favorites(r.Context())
	if err != nil {
		h.writeTripError(w, r, err)
		return
	}

	out := make([]models.SavedRoute, 0, len(favorites))
	for _, f := range favorites {
		out = append(out, toFavorite(f))
	}
	response.JSON(w, r, http.StatusOK, out)
}

// AddFavorite handles POST /v1/routes/favorites.
func (h *RouteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var input models.FavoriteRouteRequest
	if err := decodeJSON(w, r, h.validate, &input); err != nil {
		writeRequestError(w, r, err)
		return
	}

	fav, err := h.trips.AddFavorite(r.Context(), trip.FavoriteInput{
		Name:        input.Name,
		Origin:      input.Origin,
		Destination: input.Destination,
		Stops:       stopLocations(input.Stops),
	})
	if err != nil {
		h.writeTripError(w, r, err)
		return
	}

	response.Created(w, r, "/v1/routes/favorites/"+fav.ID, toFavorite(fav))
}

// DeleteFavorite handles DELETE /v1/routes/favorites/{favoriteId}.
func (h *RouteHandler) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.trips.DeleteFavorite(r.Context(), chi.URLParam(r, "favoriteId")); err != nil {
		h.writeTripError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// Geocode handles GET /v1/geocode?location=.
func (h *RouteHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("location"))
	if query == "" {
		response.BadRequest(w, r, "location is required", []models.FieldError{
			{Field: "location", Message: "is required", Code: "required"},
		})
		return
	}

	place, err := h.trips.Geocode(r.Context(), query)
	if err != nil {
		if errors.Is(err, geocoding.ErrLocationNotFound) {
			response.NotFound(w, r, "Location not found: "+query)
			return
		}
		h.writeTripError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.GeocodeResponse{
		Query:    query,
		Lat:      place.Coordinate.Lat,
		Lon:      place.Coordinate.Lon,
		Name:     place.DisplayName(),
		FullName: place.FullName,
	})
}

// writeTripError maps service errors onto problem responses.
func (h *RouteHandler) writeTripError(w http.ResponseWriter, r *http.Request, err error) {
	var locErr *trip.LocationError
	switch {
	case errors.As(err, &locErr) && !errors.Is(err, geocoding.ErrProviderUnavailable):
		response.LocationNotFound(w, r, "Could not geocode "+locErr.Role+": "+locErr.Query)
	case errors.Is(err, trip.ErrInvalidRequest):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, trip.ErrRouteNotEvaluable), errors.Is(err, routing.ErrNoRouteFound):
		response.Unprocessable(w, r, err.Error())
	case errors.Is(err, trip.ErrReportNotFound):
		response.NotFound(w, r, "Route not found")
	case errors.Is(err, trip.ErrFavoriteNotFound):
		response.NotFound(w, r, "Favorite not found")
	case errors.Is(err, geocoding.ErrProviderUnavailable),
		errors.Is(err, routing.ErrProviderUnavailable),
		errors.Is(err, routing.ErrRateLimitExceeded):
		h.log.Warn().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("upstream provider failed")
		response.BadGateway(w, r, "An upstream provider is unavailable. Please try again shortly.")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
	default:
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
