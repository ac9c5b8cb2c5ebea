package hazard

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecast/routecast/internal/weather"
)

func at(name string, miles float64, eta int, o *weather.Observation, alerts ...weather.Alert) WaypointReport {
	return WaypointReport{
		Waypoint:    Waypoint{Name: name, DistanceMiles: miles, ETAMinutes: eta},
		Observation: o,
		Alerts:      alerts,
	}
}

func TestGenerateHazardAlerts_Rules(t *testing.T) {
	got := GenerateHazardAlerts([]WaypointReport{
		at("Start", 0, 0, obs(30, "Heavy Snow", "50 mph")),
	})

	require.Len(t, got, 3)
	assert.Equal(t, HazardWind, got[0].Type)
	assert.Equal(t, AlertExtreme, got[0].Severity)
	assert.Equal(t, "Extreme winds at start", got[0].Countdown)
	assert.Equal(t, HazardSnow, got[1].Type)
	assert.Equal(t, AlertHigh, got[1].Severity)
	assert.Equal(t, HazardIce, got[2].Type)
	assert.Equal(t, "Start", got[2].Location)
}

func TestGenerateHazardAlerts_WindTiers(t *testing.T) {
	tests := []struct {
		wind string
		want []AlertSeverity
	}{
		{"25 mph", nil},
		{"26 mph", []AlertSeverity{AlertMedium}},
		{"36 mph", []AlertSeverity{AlertHigh}},
		{"46 mph", []AlertSeverity{AlertExtreme}},
	}

	for _, tt := range tests {
		got := GenerateHazardAlerts([]WaypointReport{at("A", 10, 11, obs(60, "Sunny", tt.wind))})
		var sevs []AlertSeverity
		for _, a := range got {
			sevs = append(sevs, a.Severity)
		}
		assert.Equal(t, tt.want, sevs, tt.wind)
	}
}

func TestGenerateHazardAlerts_RainAndFog(t *testing.T) {
	got := GenerateHazardAlerts([]WaypointReport{
		at("Mile 50", 50.2, 54, obs(60, "Light Rain And Fog", "5 mph")),
		at("Mile 100", 100.4, 109, obs(70, "Thunderstorms", "5 mph")),
	})

	require.Len(t, got, 3)
	assert.Equal(t, HazardRain, got[0].Type)
	assert.Equal(t, AlertMedium, got[0].Severity)
	assert.Equal(t, "Rain in 54 minutes", got[0].Countdown)
	assert.Equal(t, HazardFog, got[1].Type)
	assert.Equal(t, HazardRain, got[2].Type)
	assert.Equal(t, AlertHigh, got[2].Severity)
}

func TestGenerateHazardAlerts_NOAAMapping(t *testing.T) {
	got := GenerateHazardAlerts([]WaypointReport{
		at("A", 5, 5, nil,
			weather.Alert{Event: "Tornado Warning", Headline: "Tornado Warning until 5PM", Severity: weather.SeverityExtreme},
			weather.Alert{Event: "Flood Watch", Severity: weather.SeveritySevere},
			weather.Alert{Event: "Wind Advisory", Severity: weather.SeverityModerate},
			weather.Alert{Event: "Special Statement", Severity: weather.SeverityUnknown},
		),
	})

	require.Len(t, got, 4)
	assert.Equal(t, AlertExtreme, got[0].Severity)
	assert.Equal(t, "Tornado Warning until 5PM", got[0].Message)
	assert.Equal(t, "Tornado Warning in 5 minutes", got[0].Countdown)
	assert.Equal(t, AlertHigh, got[1].Severity)
	assert.Equal(t, "Flood Watch", got[1].Message)
	assert.Equal(t, AlertMedium, got[2].Severity)
	assert.Equal(t, AlertMedium, got[3].Severity)
	for _, a := range got {
		assert.Equal(t, HazardNOAAAlert, a.Type)
	}
}

func TestGenerateHazardAlerts_SortedAndCapped(t *testing.T) {
	var reports []WaypointReport
	// Reverse order so sorting has work to do.
	for i := 8; i >= 0; i-- {
		miles := float64(i * 50)
		reports = append(reports, at("wp", miles, i*55, obs(20, "Heavy Snow", "40 mph")))
	}

	got := GenerateHazardAlerts(reports)
	assert.Len(t, got, MaxHazardAlerts)
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool {
		return got[i].DistanceMiles < got[j].DistanceMiles
	}))
	assert.Equal(t, 0.0, got[0].DistanceMiles)
}

func TestGenerateHazardAlerts_NoHazards(t *testing.T) {
	got := GenerateHazardAlerts([]WaypointReport{at("A", 0, 0, obs(70, "Sunny", "5 mph")), at("B", 50, 54, nil)})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
