package hazard

import "strings"

// ConditionInfo is the display metadata for one road condition kind.
type ConditionInfo struct {
	Label          string
	Recommendation string
}

// ConditionCatalog maps each condition kind to its display metadata.
type ConditionCatalog map[ConditionKind]ConditionInfo

// VehicleType identifies a vehicle sensitivity profile.
type VehicleType string

// Known vehicle types.
const (
	VehicleCar        VehicleType = "car"
	VehicleSUV        VehicleType = "suv"
	VehicleTruck      VehicleType = "truck"
	VehicleSemi       VehicleType = "semi"
	VehicleRV         VehicleType = "rv"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleTrailer    VehicleType = "trailer"
)

// ParseVehicleType normalizes a vehicle type string. Unknown values map to car.
func ParseVehicleType(s string) VehicleType {
	v := VehicleType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := defaultProfiles[v]; ok {
		return v
	}
	return VehicleCar
}

// VehicleProfile holds per-hazard sensitivity multipliers.
type VehicleProfile struct {
	WindSensitivity       float64
	IceSensitivity        float64
	VisibilitySensitivity float64
}

// VehicleProfiles maps vehicle types to their sensitivity profile.
type VehicleProfiles map[VehicleType]VehicleProfile

// Lookup returns the profile for v, falling back to the car profile.
func (p VehicleProfiles) Lookup(v VehicleType) VehicleProfile {
	if profile, ok := p[v]; ok {
		return profile
	}
	if profile, ok := p[VehicleCar]; ok {
		return profile
	}
	return VehicleProfile{WindSensitivity: 1, IceSensitivity: 1, VisibilitySensitivity: 1}
}

// Config is the immutable lookup data shared by the classifier and scorers.
// Callers must not mutate the maps after handing them to the engine.
type Config struct {
	Conditions ConditionCatalog
	Vehicles   VehicleProfiles
}

// DefaultConfig returns the built-in condition catalog and vehicle profiles.
// Each call returns fresh maps.
func DefaultConfig() Config {
	conditions := make(ConditionCatalog, len(defaultConditions))
	for k, v := range defaultConditions {
		conditions[k] = v
	}
	vehicles := make(VehicleProfiles, len(defaultProfiles))
	for k, v := range defaultProfiles {
		vehicles[k] = v
	}
	return Config{Conditions: conditions, Vehicles: vehicles}
}

var defaultConditions = map[ConditionKind]ConditionInfo{
	ConditionDry: {
		Label:          "Dry",
		Recommendation: "Normal driving conditions",
	},
	ConditionWet: {
		Label:          "Wet",
		Recommendation: "Reduce speed and increase following distance",
	},
	ConditionSlippery: {
		Label:          "Slippery",
		Recommendation: "Watch for black ice on bridges and shaded areas",
	},
	ConditionIcy: {
		Label:          "Icy",
		Recommendation: "Avoid travel if possible; drive very slowly if you must",
	},
	ConditionSnowCovered: {
		Label:          "Snow covered",
		Recommendation: "Use snow tires or chains and reduce speed",
	},
	ConditionFlooded: {
		Label:          "Flooded",
		Recommendation: "Do not drive through flooded roads",
	},
	ConditionLowVisibility: {
		Label:          "Low visibility",
		Recommendation: "Use low beams and slow down",
	},
	ConditionDangerousWind: {
		Label:          "Dangerous wind",
		Recommendation: "High-profile vehicles should use caution or delay travel",
	},
	ConditionUnknown: {
		Label:          "Unknown",
		Recommendation: "Conditions unavailable; check local reports before driving",
	},
}

var defaultProfiles = map[VehicleType]VehicleProfile{
	VehicleCar:        {WindSensitivity: 1.0, IceSensitivity: 1.0, VisibilitySensitivity: 1.0},
	VehicleSUV:        {WindSensitivity: 1.1, IceSensitivity: 0.9, VisibilitySensitivity: 1.0},
	VehicleTruck:      {WindSensitivity: 1.3, IceSensitivity: 1.1, VisibilitySensitivity: 1.0},
	VehicleSemi:       {WindSensitivity: 1.6, IceSensitivity: 1.3, VisibilitySensitivity: 1.1},
	VehicleRV:         {WindSensitivity: 1.7, IceSensitivity: 1.3, VisibilitySensitivity: 1.1},
	VehicleMotorcycle: {WindSensitivity: 1.8, IceSensitivity: 1.6, VisibilitySensitivity: 1.4},
	VehicleTrailer:    {WindSensitivity: 1.5, IceSensitivity: 1.4, VisibilitySensitivity: 1.0},
}
