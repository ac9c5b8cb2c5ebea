package models

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus aggregates subsystem and upstream provider state.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Providers  []ProviderStatus  `json:"providers"`
}

// SubsystemStatus is the state of a local dependency such as the database.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus is the circuit breaker view of one upstream provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	Requests      uint32       `json:"requests"`
	Failures      uint32       `json:"consecutiveFailures"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	LatencyMs     int64        `json:"lastLatencyMs"`
	Message       *string      `json:"message,omitempty"`
}

// Banner is returned by GET /v1/.
type Banner struct {
	Message  string   `json:"message"`
	Version  string   `json:"version"`
	Build    string   `json:"build,omitempty"`
	Features []string `json:"features"`
}
