// Package summary produces a short natural-language briefing for a route
// from the hazard analysis, using an OpenAI-compatible chat model.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/routecast/routecast/internal/hazard"
)

// FallbackText is returned whenever the model cannot produce a summary.
const FallbackText = "Route forecast generated successfully."

// SystemPrompt sets the assistant persona.
const SystemPrompt = "You are a helpful travel weather assistant providing concise, driver-friendly weather summaries."

const promptPackingItems = 5

// PromptInput is the route data rendered into the user prompt.
type PromptInput struct {
	Origin      string
	Destination string
	Waypoints   []hazard.WaypointReport
	Packing     []hazard.PackingSuggestion
}

// BuildPrompt renders the user prompt for a route.
func BuildPrompt(in PromptInput) string {
	var weatherLines []string
	alertSet := make(map[string]struct{})

	for i := range in.Waypoints {
		r := &in.Waypoints[i]
		if o := r.Observation; o != nil {
			name := r.Waypoint.Name
			if name == "" {
				name = "Point"
			}
			unit := o.TemperatureUnit
			if unit == "" {
				unit = "F"
			}
			line := fmt.Sprintf("- %s (%.1f mi): %d°%s, %s, Wind: %s %s",
				name, r.Waypoint.DistanceMiles, o.Temperature, unit, o.Conditions,
				strings.TrimSpace(o.WindSpeed), strings.TrimSpace(o.WindDirection))
			if !r.Waypoint.ArrivalTime.IsZero() {
				line += " ETA " + r.Waypoint.ArrivalTime.Format("2006-01-02T15:04")
			}
			weatherLines = append(weatherLines, strings.TrimSpace(line))
		}
		for _, a := range r.Alerts {
			alertSet[fmt.Sprintf("- %s: %s", a.Event, a.Headline)] = struct{}{}
		}
	}

	weatherText := "No weather data available"
	if len(weatherLines) > 0 {
		weatherText = strings.Join(weatherLines, "\n")
	}

	alertsText := "No active alerts"
	if len(alertSet) > 0 {
		alertLines := make([]string, 0, len(alertSet))
		for line := range alertSet {
			alertLines = append(alertLines, line)
		}
		sort.Strings(alertLines)
		alertsText = strings.Join(alertLines, "\n")
	}

	packingText := "Standard travel items"
	if len(in.Packing) > 0 {
		n := min(len(in.Packing), promptPackingItems)
		items := make([]string, n)
		for i := range items {
			items[i] = in.Packing[i].Item
		}
		packingText = strings.Join(items, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Route: %s to %s\n\n", in.Origin, in.Destination)
	fmt.Fprintf(&b, "Weather along route:\n%s\n\n", weatherText)
	fmt.Fprintf(&b, "Active Alerts:\n%s\n\n", alertsText)
	fmt.Fprintf(&b, "Suggested packing: %s\n\n", packingText)
	b.WriteString("Provide a 2-3 sentence summary focusing on:\n")
	b.WriteString("1. Overall driving conditions\n")
	b.WriteString("2. Any weather concerns or hazards\n")
	b.WriteString("3. Key recommendations for the driver\n\n")
	b.WriteString("Be concise and practical.\n")
	return b.String()
}
