package hazard

import (
	"math"

	"github.com/routecast/routecast/internal/weather"
)

const (
	alertPointsCap   = 40
	weatherPointsCap = 50
	maxDelayFactors  = 5

	// highConfidenceWaypoints is the number of observed waypoints needed for
	// a "high" confidence estimate.
	highConfidenceWaypoints = 3
)

var alertPoints = map[weather.Severity]int{
	weather.SeverityExtreme:  40,
	weather.SeveritySevere:   30,
	weather.SeverityModerate: 15,
	weather.SeverityMinor:    5,
}

// ScoreDelayRisk estimates the likelihood of weather-related delays as the
// ratio of accumulated risk points to the maximum possible points.
//
// Every waypoint that carries an observation or at least one alert adds the
// alert cap to the denominator; waypoints with an observation also add the
// weather cap. Waypoints with no data at all are left out entirely so that
// failed lookups do not dilute the percentage.
func ScoreDelayRisk(reports []WaypointReport) DelayRiskScore {
	var points, possible, observed int
	var factors orderedSet

	for i := range reports {
		r := &reports[i]
		if r.Observation == nil && len(r.Alerts) == 0 {
			continue
		}

		alertPts := 0
		for _, a := range r.Alerts {
			alertPts += alertPoints[a.Severity]
			if a.Event != "" {
				factors.add(a.Event)
			} else {
				factors.add("Weather alert")
			}
		}
		points += min(alertPts, alertPointsCap)
		possible += alertPointsCap

		if r.Observation == nil {
			continue
		}
		observed++
		possible += weatherPointsCap
		points += min(weatherPointsFor(r.Observation, &factors), weatherPointsCap)
	}

	percent := clampInt(int(math.Round(100*float64(points)/float64(max(possible, 1)))), 0, 100)
	level, delay := BandForPercent(percent)
	if factors.len() > 3 {
		delay = int(float64(delay) * 1.5)
	}

	confidence := "medium"
	if observed >= highConfidenceWaypoints {
		confidence = "high"
	}

	items := factors.items
	if len(items) > maxDelayFactors {
		items = items[:maxDelayFactors]
	}

	return DelayRiskScore{
		Percent:        percent,
		Level:          level,
		DelayMinutes:   delay,
		Factors:        items,
		Confidence:     confidence,
		EvaluatedCount: observed,
	}
}

func weatherPointsFor(o *weather.Observation, factors *orderedSet) int {
	pts := 0
	text := conditionsText(o)

	if containsAny(text, "rain", "snow", "sleet", "drizzle", "shower", "storm", "thunder", "blizzard", "flurr", "ice") {
		if containsAny(text, "heavy", "thunder", "blizzard") {
			pts += 20
			factors.add("Heavy precipitation")
		} else {
			pts += 10
			factors.add("Precipitation")
		}
	}

	switch wind := WindMPH(o); {
	case wind > 40:
		pts += 15
		factors.add("Strong winds")
	case wind > 25:
		pts += 8
		factors.add("Gusty winds")
	}

	switch temp := TemperatureF(o); {
	case temp <= freezingF:
		pts += 10
		factors.add("Freezing temperatures")
	case temp >= 100:
		pts += 5
		factors.add("Extreme heat")
	}

	return pts
}

// BandForPercent maps a delay-risk percentage to its level and base delay in minutes.
func BandForPercent(percent int) (RiskLevel, int) {
	switch {
	case percent < 20:
		return RiskLow, 0
	case percent < 50:
		return RiskMedium, 15
	case percent < 80:
		return RiskHigh, 45
	default:
		return RiskCritical, 120
	}
}
