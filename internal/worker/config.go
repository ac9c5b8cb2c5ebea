// Package worker runs Routecast background jobs delivered over Pub/Sub.
package worker

import (
	"time"
)

// Job types accepted on the job subscription.
const (
	JobFavoritesRefresh = "favorites_refresh"
	JobHealthCheck      = "health_check"
)

// RefreshConfig holds configuration for the favorites refresh job.
type RefreshConfig struct {
	// Concurrency is the number of favorites evaluated at once.
	// Default: 3
	Concurrency int

	// Timeout bounds each favorite evaluation.
	// Default: 30 seconds
	Timeout time.Duration

	// ProbeOrigin and ProbeDestination form the short route the health
	// check evaluates.
	ProbeOrigin      string
	ProbeDestination string
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Concurrency:      3,
		Timeout:          30 * time.Second,
		ProbeOrigin:      "Denver, CO",
		ProbeDestination: "Boulder, CO",
	}
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.ProbeOrigin == "" || c.ProbeDestination == "" {
		c.ProbeOrigin = def.ProbeOrigin
		c.ProbeDestination = def.ProbeDestination
	}
	return c
}
