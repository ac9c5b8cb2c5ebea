package hazard

import (
	"strings"

	"github.com/routecast/routecast/internal/weather"
)

const (
	freezingF     = 32
	nearFreezingF = 36
	dangerWindMPH = 35
)

// Classifier grades road surface conditions at a single waypoint.
type Classifier struct {
	catalog ConditionCatalog
}

// NewClassifier creates a classifier backed by the given catalog.
// A nil catalog selects the built-in one.
func NewClassifier(catalog ConditionCatalog) *Classifier {
	if catalog == nil {
		catalog = DefaultConfig().Conditions
	}
	return &Classifier{catalog: catalog}
}

// Classify maps one waypoint's observation and alerts to a road condition.
// Rules are evaluated in order and the first match wins.
func (c *Classifier) Classify(obs *weather.Observation, alerts []weather.Alert) RoadCondition {
	// Flooding outranks ice across the whole alert list.
	if severeAlertMentions(alerts, "flood") {
		return c.condition(ConditionFlooded, 4)
	}
	if severeAlertMentions(alerts, "ice", "freezing") {
		return c.condition(ConditionIcy, 3)
	}

	if obs == nil {
		return c.condition(ConditionUnknown, 0)
	}

	text := conditionsText(obs)
	temp := TemperatureF(obs)

	switch {
	case temp <= freezingF && containsAny(text, "rain", "drizzle", "freezing", "sleet", "ice"):
		return c.condition(ConditionIcy, 3)
	case containsAny(text, "snow", "blizzard"):
		if containsAny(text, "heavy", "blizzard") {
			return c.condition(ConditionSnowCovered, 3)
		}
		return c.condition(ConditionSnowCovered, 2)
	case temp > freezingF && temp <= nearFreezingF:
		return c.condition(ConditionSlippery, 2)
	case containsAny(text, "fog", "mist", "smoke"):
		return c.condition(ConditionLowVisibility, 2)
	case WindMPH(obs) > dangerWindMPH:
		return c.condition(ConditionDangerousWind, 3)
	case containsAny(text, "rain", "shower", "drizzle", "storm", "thunder"):
		if containsAny(text, "heavy", "thunder") {
			return c.condition(ConditionWet, 2)
		}
		return c.condition(ConditionWet, 1)
	default:
		return c.condition(ConditionDry, 0)
	}
}

func severeAlertMentions(alerts []weather.Alert, words ...string) bool {
	for _, a := range alerts {
		if a.Severity.IsSevere() && containsAny(strings.ToLower(a.Event), words...) {
			return true
		}
	}
	return false
}

func (c *Classifier) condition(kind ConditionKind, severity int) RoadCondition {
	info, ok := c.catalog[kind]
	if !ok {
		info = ConditionInfo{Label: string(kind)}
	}
	return RoadCondition{
		Kind:           kind,
		Severity:       severity,
		Label:          info.Label,
		Recommendation: info.Recommendation,
	}
}

// TemperatureF returns the observation temperature in Fahrenheit.
func TemperatureF(obs *weather.Observation) int {
	if strings.EqualFold(obs.TemperatureUnit, "C") {
		return int(float64(obs.Temperature)*9/5 + 32)
	}
	return obs.Temperature
}
