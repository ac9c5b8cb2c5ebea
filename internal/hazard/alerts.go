package hazard

import (
	"fmt"
	"sort"

	"github.com/routecast/routecast/internal/weather"
)

// MaxHazardAlerts bounds the hazard alert list.
const MaxHazardAlerts = 10

// GenerateHazardAlerts evaluates every threshold rule at every waypoint and
// returns one alert per triggered rule, nearest first.
func GenerateHazardAlerts(reports []WaypointReport) []HazardAlert {
	alerts := make([]HazardAlert, 0)

	for i := range reports {
		r := &reports[i]
		wp := r.Waypoint

		emit := func(typ HazardType, sev AlertSeverity, label, message, recommendation string) {
			alerts = append(alerts, HazardAlert{
				Type:           typ,
				Severity:       sev,
				DistanceMiles:  wp.DistanceMiles,
				ETAMinutes:     wp.ETAMinutes,
				Location:       wp.Name,
				Message:        message,
				Recommendation: recommendation,
				Countdown:      countdown(label, wp.ETAMinutes),
			})
		}

		if o := r.Observation; o != nil {
			text := conditionsText(o)
			wind := WindMPH(o)

			switch {
			case wind > 45:
				emit(HazardWind, AlertExtreme, "Extreme winds",
					fmt.Sprintf("Wind speeds of %d mph", wind), "Avoid travel in high-profile vehicles")
			case wind > 35:
				emit(HazardWind, AlertHigh, "High winds",
					fmt.Sprintf("Wind speeds of %d mph", wind), "Reduce speed and keep a firm grip on the wheel")
			case wind > 25:
				emit(HazardWind, AlertMedium, "Gusty winds",
					fmt.Sprintf("Wind speeds of %d mph", wind), "Watch for crosswinds on open roads")
			}

			switch {
			case containsAny(text, "thunder") || (containsAny(text, "heavy") && containsAny(text, "rain", "shower")):
				emit(HazardRain, AlertHigh, "Heavy rain",
					fmt.Sprintf("%s expected", o.Conditions), "Slow down and avoid standing water")
			case containsAny(text, "rain", "shower", "drizzle"):
				emit(HazardRain, AlertMedium, "Rain",
					fmt.Sprintf("%s expected", o.Conditions), "Turn on headlights and increase following distance")
			}

			if containsAny(text, "snow", "blizzard") {
				sev := AlertMedium
				if containsAny(text, "heavy", "blizzard") {
					sev = AlertHigh
				}
				emit(HazardSnow, sev, "Snow",
					fmt.Sprintf("%s expected", o.Conditions), "Allow extra time and carry chains")
			}

			if temp := TemperatureF(o); temp <= freezingF {
				emit(HazardIce, AlertHigh, "Icy roads",
					fmt.Sprintf("Freezing temperature of %d°F", temp), "Watch for black ice on bridges and overpasses")
			}

			if containsAny(text, "fog", "mist") {
				emit(HazardFog, AlertMedium, "Fog",
					"Reduced visibility from fog", "Use low beams and reduce speed")
			}
		}

		for _, a := range r.Alerts {
			label := a.Event
			if label == "" {
				label = "Weather alert"
			}
			message := a.Headline
			if message == "" {
				message = label
			}
			emit(HazardNOAAAlert, alertSeverityFor(a.Severity), label, message,
				"Check local conditions before reaching this area")
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DistanceMiles < alerts[j].DistanceMiles
	})
	if len(alerts) > MaxHazardAlerts {
		alerts = alerts[:MaxHazardAlerts]
	}
	return alerts
}

func alertSeverityFor(s weather.Severity) AlertSeverity {
	switch s {
	case weather.SeverityExtreme:
		return AlertExtreme
	case weather.SeveritySevere:
		return AlertHigh
	default:
		return AlertMedium
	}
}

func countdown(label string, etaMinutes int) string {
	if etaMinutes <= 0 {
		return label + " at start"
	}
	return fmt.Sprintf("%s in %d minutes", label, etaMinutes)
}
