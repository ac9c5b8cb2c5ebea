package handler

import (
	"time"

	"github.com/routecast/routecast/internal/api/models"
	"github.com/routecast/routecast/internal/hazard"
	"github.com/routecast/routecast/internal/trip"
	"github.com/routecast/routecast/internal/weather"
)

func toTripRequest(in models.RouteWeatherRequest) trip.Request {
	req := trip.Request{
		Origin:          in.Origin,
		Destination:     in.Destination,
		Stops:           stopLocations(in.Stops),
		Vehicle:         hazard.ParseVehicleType(in.VehicleType),
		VehicleHeightFt: in.VehicleHeightFt,
	}
	if in.DepartureTime != "" {
		// Already checked by the datetime validation tag.
		if t, err := time.Parse(time.RFC3339, in.DepartureTime); err == nil {
			req.Departure = t
		}
	}
	return req
}

func stopLocations(stops []models.StopPoint) []string {
	out := make([]string, 0, len(stops))
	for _, s := range stops {
		out = append(out, s.Location)
	}
	return out
}

func toRouteResponse(r *trip.Report) models.RouteWeatherResponse {
	a := r.Analysis
	resp := models.RouteWeatherResponse{
		ID:                   r.ID,
		Origin:               r.Origin,
		Destination:          r.Destination,
		Stops:                nonNil(r.Stops),
		DepartureTime:        models.Timestamp(r.Departure),
		RouteSummary:         r.RouteSummary,
		RouteGeometry:        r.RouteGeometry,
		TotalDistanceMiles:   r.TotalDistanceMiles,
		TotalDurationMinutes: r.TotalDurationMinutes,
		Alternates:           make([]models.AlternateRoute, 0, len(r.Alternates)),
		VehicleType:          string(r.Vehicle),
		VehicleHeightFt:      r.VehicleHeightFt,
		Waypoints:            make([]models.WaypointWeather, 0, len(a.Waypoints)),
		AISummary:            r.Summary,
		HasSevereWeather:     a.HasSevereWeather,
		SafetyScore: models.SafetyScore{
			Score:           a.Safety.Score,
			Level:           string(a.Safety.Level),
			VehicleType:     string(a.Safety.VehicleType),
			Factors:         nonNil(a.Safety.Factors),
			Recommendations: nonNil(a.Safety.Recommendations),
		},
		DelayRisk: models.DelayRisk{
			Percent:          a.Delay.Percent,
			Level:            string(a.Delay.Level),
			EstimatedMinutes: a.Delay.DelayMinutes,
			Factors:          nonNil(a.Delay.Factors),
			Confidence:       a.Delay.Confidence,
		},
		HazardAlerts: make([]models.HazardAlert, 0, len(a.Alerts)),
		DriveWindow: models.DriveWindow{
			Recommendation:     string(a.Window.Action),
			SuggestedDeparture: models.TimestampPtr(a.Window.SuggestedDeparture),
			Reason:             a.Window.Reason,
			ShiftMinutes:       a.Window.ShiftMinutes,
			AlternateRoute:     a.Window.AlternateRoute,
		},
		BridgeClearances:   make([]models.BridgeClearance, 0, len(a.Bridges)),
		PackingSuggestions: make([]models.PackingSuggestion, 0, len(a.Packing)),
		WeatherTimeline:    a.Timeline,
		CreatedAt:          models.Timestamp(r.CreatedAt),
	}
	if resp.WeatherTimeline == nil {
		resp.WeatherTimeline = []weather.HourlyForecast{}
	}

	for _, alt := range r.Alternates {
		resp.Alternates = append(resp.Alternates, models.AlternateRoute{
			Summary:         alt.Summary,
			DistanceMiles:   alt.DistanceMiles,
			DurationMinutes: alt.DurationMinutes,
		})
	}
	for _, w := range a.Waypoints {
		alerts := w.Alerts
		if alerts == nil {
			alerts = []weather.Alert{}
		}
		resp.Waypoints = append(resp.Waypoints, models.WaypointWeather{
			Waypoint: models.Waypoint{
				Lat:               w.Waypoint.Coordinate.Lat,
				Lon:               w.Waypoint.Coordinate.Lon,
				Name:              w.Waypoint.Name,
				DistanceFromStart: w.Waypoint.DistanceMiles,
				ETAMinutes:        w.Waypoint.ETAMinutes,
				ArrivalTime:       models.Timestamp(w.Waypoint.ArrivalTime),
			},
			Weather: w.Observation,
			Alerts:  alerts,
			RoadCondition: models.RoadCondition{
				Condition:      string(w.Condition.Kind),
				Severity:       w.Condition.Severity,
				Label:          w.Condition.Label,
				Recommendation: w.Condition.Recommendation,
			},
			Error: w.Error,
		})
	}
	for _, h := range a.Alerts {
		resp.HazardAlerts = append(resp.HazardAlerts, models.HazardAlert{
			Type:           string(h.Type),
			Severity:       string(h.Severity),
			DistanceMiles:  h.DistanceMiles,
			ETAMinutes:     h.ETAMinutes,
			Location:       h.Location,
			Message:        h.Message,
			Recommendation: h.Recommendation,
			Countdown:      h.Countdown,
		})
	}
	for _, b := range a.Bridges {
		resp.BridgeClearances = append(resp.BridgeClearances, models.BridgeClearance{
			Name:           b.Name,
			ClearanceFeet:  b.ClearanceFeet,
			ClearanceMeter: b.ClearanceMeter,
			Lat:            b.Coordinate.Lat,
			Lon:            b.Coordinate.Lon,
			DistanceMiles:  b.DistanceMiles,
			Road:           b.Road,
			WarningLevel:   string(b.Level),
		})
	}
	for _, p := range a.Packing {
		resp.PackingSuggestions = append(resp.PackingSuggestions, models.PackingSuggestion{
			Item:     p.Item,
			Reason:   p.Reason,
			Priority: string(p.Priority),
		})
	}
	return resp
}

func toSavedRoutes(items []trip.ReportSummary) []models.SavedRoute {
	out := make([]models.SavedRoute, 0, len(items))
	for _, it := range items {
		out = append(out, models.SavedRoute{
			ID:          it.ID,
			Origin:      it.Origin,
			Destination: it.Destination,
			Stops:       nonNil(it.Stops),
			IsFavorite:  it.IsFavorite,
			CreatedAt:   models.Timestamp(it.CreatedAt),
		})
	}
	return out
}

func toFavorite(f *trip.Favorite) models.SavedRoute {
	return models.SavedRoute{
		ID:          f.ID,
		Name:        f.Name,
		Origin:      f.Origin,
		Destination: f.Destination,
		Stops:       nonNil(f.Stops),
		IsFavorite:  true,
		CreatedAt:   models.Timestamp(f.CreatedAt),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
