package hazard

import (
	"math"
)

const (
	maxSafetyFactors         = 5
	maxSafetyRecommendations = 4
)

// SafetyScorer computes vehicle-aware safety scores.
type SafetyScorer struct {
	profiles VehicleProfiles
}

// NewSafetyScorer creates a scorer using the given vehicle profiles.
// A nil map selects the built-in profiles.
func NewSafetyScorer(profiles VehicleProfiles) *SafetyScorer {
	if profiles == nil {
		profiles = DefaultConfig().Vehicles
	}
	return &SafetyScorer{profiles: profiles}
}

// Score starts at 100 and deducts for each hazard found at each waypoint,
// scaled by the vehicle's sensitivity to that hazard.
func (s *SafetyScorer) Score(reports []WaypointReport, vehicle VehicleType) SafetyScore {
	profile := s.profiles.Lookup(vehicle)

	score := 100.0
	var factors, recs orderedSet

	for i := range reports {
		r := &reports[i]

		if o := r.Observation; o != nil {
			temp := TemperatureF(o)
			wind := WindMPH(o)
			text := conditionsText(o)

			switch {
			case temp <= freezingF:
				score -= 15 * profile.IceSensitivity
				factors.add("Freezing temperatures")
				recs.add("Watch for ice on bridges and overpasses")
			case temp <= 40:
				score -= 5 * profile.IceSensitivity
				factors.add("Near-freezing temperatures")
				recs.add("Be alert for black ice in shaded areas")
			}

			switch {
			case wind > 30:
				score -= 20 * profile.WindSensitivity
				factors.add("High winds")
				recs.add("Keep both hands on the wheel and watch for gusts")
			case wind >= 20:
				score -= 8 * profile.WindSensitivity
				factors.add("Moderate winds")
				recs.add("Expect crosswinds on open stretches")
			}

			switch {
			case containsAny(text, "snow", "blizzard"):
				score -= 25 * profile.VisibilitySensitivity
				factors.add("Snow on route")
				recs.add("Carry chains and a winter emergency kit")
			case containsAny(text, "rain", "storm"):
				score -= 15 * profile.VisibilitySensitivity
				factors.add("Rain on route")
				recs.add("Turn on headlights and increase following distance")
			}

			if containsAny(text, "fog") {
				score -= 20 * profile.VisibilitySensitivity
				factors.add("Fog reducing visibility")
				recs.add("Use low beams and reduce speed in fog")
			}
		}

		for _, a := range r.Alerts {
			if !a.Severity.IsSevere() {
				continue
			}
			score -= 20
			if a.Event != "" {
				factors.add(a.Event)
			} else {
				factors.add("Severe weather alert")
			}
			recs.add("Monitor active weather alerts along your route")
		}
	}

	final := clampInt(int(math.Round(score)), 0, 100)
	level := safetyLevel(final)

	recommendations := recs.items
	if level == RiskExtreme {
		recommendations = append([]string{"Consider postponing your trip"}, recommendations...)
	}

	return SafetyScore{
		Score:           final,
		Level:           level,
		VehicleType:     vehicle,
		Factors:         capOrDefault(factors.items, maxSafetyFactors, "Good driving conditions"),
		Recommendations: capOrDefault(recommendations, maxSafetyRecommendations, "Safe travels"),
	}
}

func safetyLevel(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLow
	case score >= 60:
		return RiskModerate
	case score >= 40:
		return RiskHigh
	default:
		return RiskExtreme
	}
}

// orderedSet keeps the first occurrence of each non-empty string.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) len() int {
	return len(s.items)
}

func capOrDefault(items []string, limit int, fallback string) []string {
	if len(items) == 0 {
		return []string{fallback}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
