// Package resilience wraps outbound provider HTTP calls with retries, a
// circuit breaker per provider and a registry that reports provider health.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	Name string

	// MaxRequests is the number of trial requests let through when half-open.
	// Default: 1
	MaxRequests uint32

	// Interval clears the counts while closed, so old failures age out.
	// Default: 2 minutes
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// ReadyToTrip decides when to open. Default: DefaultReadyToTrip.
	ReadyToTrip func(counts gobreaker.Counts) bool

	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker settings used for every
// provider unless overridden.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Interval:    2 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: DefaultReadyToTrip,
	}
}

// Trip thresholds for DefaultReadyToTrip.
const (
	tripConsecutiveFailures = 5
	tripMinRequests         = 10
	tripFailureRatio        = 0.5
)

// DefaultReadyToTrip opens after five consecutive failures, or when at least
// half of ten or more requests in the current interval failed.
//
// A route evaluation fans out one weather call per waypoint, so a dead
// provider produces a burst of consecutive failures well before the ratio
// rule has enough samples.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.ConsecutiveFailures >= tripConsecutiveFailures {
		return true
	}
	if counts.Requests < tripMinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= tripFailureRatio
}

// NewCircuitBreaker creates a breaker, filling unset fields from the defaults.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	def := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = def.ReadyToTrip
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.ReadyToTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
