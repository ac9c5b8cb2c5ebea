// Package weather provides point forecasts and active hazard alerts along a route.
package weather

import (
	"errors"
	"strings"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Observation is the current forecast period at a point, as reported by the provider.
// Text fields are kept verbatim; numeric interpretation happens downstream.
type Observation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// Temperature in TemperatureUnit (NOAA reports Fahrenheit for US points).
	Temperature     int    `json:"temperature"`
	TemperatureUnit string `json:"temperatureUnit"`

	// Conditions is the short forecast phrase, e.g. "Light Snow Likely".
	Conditions string `json:"conditions"`

	// WindSpeed is free text such as "10 to 15 mph".
	WindSpeed     string `json:"windSpeed"`
	WindDirection string `json:"windDirection"`

	// Humidity percentage, nil when not reported.
	Humidity *int `json:"humidity,omitempty"`

	IsDaytime bool   `json:"isDaytime"`
	Icon      string `json:"icon,omitempty"`

	// Sunrise and Sunset are fixed local approximations ("06:30", "18:30").
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`

	Hourly []HourlyForecast `json:"hourly,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// HourlyForecast represents weather for a specific hour.
type HourlyForecast struct {
	// Time is the period start as reported by the provider (RFC3339 with offset).
	Time                string `json:"time"`
	Temperature         int    `json:"temperature"`
	Conditions          string `json:"conditions"`
	WindSpeed           string `json:"windSpeed"`
	PrecipitationChance *int   `json:"precipitationChance,omitempty"`
	Icon                string `json:"icon,omitempty"`
}

// Severity is the NOAA alert severity.
type Severity string

const (
	SeverityExtreme  Severity = "Extreme"
	SeveritySevere   Severity = "Severe"
	SeverityModerate Severity = "Moderate"
	SeverityMinor    Severity = "Minor"
	SeverityUnknown  Severity = "Unknown"
)

// ParseSeverity normalizes a provider severity string. Unrecognized values map to SeverityUnknown.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "extreme":
		return SeverityExtreme
	case "severe":
		return SeveritySevere
	case "moderate":
		return SeverityModerate
	case "minor":
		return SeverityMinor
	default:
		return SeverityUnknown
	}
}

// Rank orders severities: Extreme 4, Severe 3, Moderate 2, Minor 1, Unknown 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityExtreme:
		return 4
	case SeveritySevere:
		return 3
	case SeverityModerate:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

// IsSevere reports whether the severity is Severe or Extreme.
func (s Severity) IsSevere() bool {
	return s.Rank() >= SeveritySevere.Rank()
}

// MaxAlertDescription bounds the stored alert description length.
const MaxAlertDescription = 500

// Alert is an active weather alert affecting a point.
type Alert struct {
	ID          string   `json:"id"`
	Headline    string   `json:"headline"`
	Severity    Severity `json:"severity"`
	Event       string   `json:"event"`
	Description string   `json:"description"`
	Areas       string   `json:"areas"`
}

// TruncateDescription cuts s to MaxAlertDescription runes.
func TruncateDescription(s string) string {
	r := []rune(s)
	if len(r) <= MaxAlertDescription {
		return s
	}
	return string(r[:MaxAlertDescription])
}

// HasSevere reports whether any alert is Severe or Extreme.
func HasSevere(alerts []Alert) bool {
	for _, a := range alerts {
		if a.Severity.IsSevere() {
			return true
		}
	}
	return false
}
