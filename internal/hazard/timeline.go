package hazard

import (
	"sort"

	"github.com/routecast/routecast/internal/weather"
)

const (
	timelineEntriesPerWaypoint = 4
	maxTimelineEntries         = 12
)

// BuildTimeline merges the first few hourly periods of every waypoint into a
// single time-ordered forecast. Periods are keyed by their reported time.
func BuildTimeline(reports []WaypointReport) []weather.HourlyForecast {
	timeline := make([]weather.HourlyForecast, 0)
	seen := make(map[string]struct{})

	for i := range reports {
		o := reports[i].Observation
		if o == nil {
			continue
		}
		hourly := o.Hourly
		if len(hourly) > timelineEntriesPerWaypoint {
			hourly = hourly[:timelineEntriesPerWaypoint]
		}
		for _, h := range hourly {
			if h.Time == "" {
				continue
			}
			if _, ok := seen[h.Time]; ok {
				continue
			}
			seen[h.Time] = struct{}{}
			timeline = append(timeline, h)
		}
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Time < timeline[j].Time
	})
	if len(timeline) > maxTimelineEntries {
		timeline = timeline[:maxTimelineEntries]
	}
	return timeline
}
