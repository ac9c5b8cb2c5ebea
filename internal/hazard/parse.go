package hazard

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/routecast/routecast/internal/weather"
)

// FeetPerMeter converts metric clearance tags.
const FeetPerMeter = 3.28084

var (
	integers = regexp.MustCompile(`\d+`)

	// 13'6", 13', 12 ft, 12.5 feet, 13 ft 6 in
	feetNotation = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:'|ft|feet|foot)\s*(?:(\d+(?:\.\d+)?)\s*(?:"|in|inches)?)?$`)

	// 4.1, 4.1 m, 4.1 meters
	meterNotation = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(?:m|meters?|metres?)?$`)
)

// ParseWindSpeed extracts the first integer from a free-text wind speed
// ("10 to 15 mph" is 10). ok is false when the text carries no number.
func ParseWindSpeed(text string) (mph int, ok bool) {
	m := integers.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PeakWindSpeed returns the largest integer in a free-text wind speed
// ("5 to 20 mph" is 20). ok is false when the text carries no number.
func PeakWindSpeed(text string) (mph int, ok bool) {
	for _, m := range integers.FindAllString(text, -1) {
		v, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if !ok || v > mph {
			mph, ok = v, true
		}
	}
	return mph, ok
}

// WindMPH returns the parsed wind speed of an observation, or 0.
func WindMPH(obs *weather.Observation) int {
	if obs == nil {
		return 0
	}
	mph, _ := ParseWindSpeed(obs.WindSpeed)
	return mph
}

// ParseClearance converts an OSM maxheight tag to feet. Feet and inch
// notations are read as-is; any other number is taken as meters.
// Values such as "default", "none" or "below_default" are not parsable.
func ParseClearance(tag string) (feet float64, ok bool) {
	s := strings.ToLower(strings.TrimSpace(tag))
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.ReplaceAll(s, "”", `"`)
	if s == "" {
		return 0, false
	}

	if m := feetNotation.FindStringSubmatch(s); m != nil {
		ft, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		if m[2] != "" {
			in, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return 0, false
			}
			ft += in / 12
		}
		return positive(ft)
	}

	if m := meterNotation.FindStringSubmatch(s); m != nil {
		meters, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return positive(meters * FeetPerMeter)
	}

	return 0, false
}

func positive(v float64) (float64, bool) {
	if v <= 0 {
		return 0, false
	}
	return v, true
}

// containsAny reports whether s contains any of the substrings.
// s is expected to be lower case already.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func conditionsText(obs *weather.Observation) string {
	if obs == nil {
		return ""
	}
	return strings.ToLower(obs.Conditions)
}
