package hazard

import (
	"fmt"
	"strings"
)

// MaxPackingSuggestions bounds the packing list.
const MaxPackingSuggestions = 8

// windyMPH is the peak wind speed that calls for a windbreaker.
const windyMPH = 15

// SuggestPacking recommends items based on the temperatures and conditions
// seen along the route.
func SuggestPacking(reports []WaypointReport) []PackingSuggestion {
	var suggestions []PackingSuggestion
	var temps []int
	var hasRain, hasSnow, hasWind, sunny bool

	for i := range reports {
		o := reports[i].Observation
		if o == nil {
			continue
		}
		temps = append(temps, TemperatureF(o))

		text := conditionsText(o)
		hasRain = hasRain || containsAny(text, "rain", "shower")
		hasSnow = hasSnow || containsAny(text, "snow", "flurr")
		peak, _ := PeakWindSpeed(o.WindSpeed)
		hasWind = hasWind || strings.Contains(text, "wind") || peak >= windyMPH
		sunny = sunny || containsAny(text, "sun", "clear")
	}

	if len(temps) > 0 {
		lo, hi := temps[0], temps[0]
		for _, t := range temps[1:] {
			lo = min(lo, t)
			hi = max(hi, t)
		}

		if lo < 40 {
			suggestions = append(suggestions, PackingSuggestion{
				Item: "Warm jacket", Reason: fmt.Sprintf("Temperatures as low as %d°F expected", lo), Priority: PriorityEssential,
			})
		}
		if lo < freezingF {
			suggestions = append(suggestions, PackingSuggestion{
				Item: "Gloves & hat", Reason: "Freezing temperatures along route", Priority: PriorityEssential,
			})
		}
		if hi > 85 {
			suggestions = append(suggestions, PackingSuggestion{
				Item: "Extra water", Reason: fmt.Sprintf("High temperatures up to %d°F", hi), Priority: PriorityEssential,
			})
		}
		if hi-lo > 20 {
			suggestions = append(suggestions, PackingSuggestion{
				Item: "Layers", Reason: fmt.Sprintf("Temperature range of %d°F", hi-lo), Priority: PriorityRecommended,
			})
		}
	}

	if hasRain {
		suggestions = append(suggestions, PackingSuggestion{
			Item: "Umbrella/rain jacket", Reason: "Rain expected along route", Priority: PriorityEssential,
		})
	}
	if hasSnow {
		suggestions = append(suggestions, PackingSuggestion{
			Item: "Snow gear & emergency kit", Reason: "Snow conditions expected", Priority: PriorityEssential,
		})
	}
	if hasWind {
		suggestions = append(suggestions, PackingSuggestion{
			Item: "Windbreaker", Reason: "Windy conditions expected", Priority: PriorityRecommended,
		})
	}
	if sunny {
		suggestions = append(suggestions,
			PackingSuggestion{Item: "Sunglasses", Reason: "Sunny conditions expected", Priority: PriorityRecommended},
			PackingSuggestion{Item: "Sunscreen", Reason: "Sun exposure during drive", Priority: PriorityOptional},
		)
	}

	suggestions = append(suggestions,
		PackingSuggestion{Item: "Phone charger", Reason: "Keep devices charged for navigation", Priority: PriorityEssential},
		PackingSuggestion{Item: "Snacks & water", Reason: "Stay hydrated and energized", Priority: PriorityRecommended},
	)

	if len(suggestions) > MaxPackingSuggestions {
		suggestions = suggestions[:MaxPackingSuggestions]
	}
	return suggestions
}
