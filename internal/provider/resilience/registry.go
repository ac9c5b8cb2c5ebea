package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a point-in-time view of one provider.
type ProviderHealth struct {
	Name         string
	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string

	// LastLatency covers the most recent call including retries.
	LastLatency time.Duration
}

// IsHealthy reports a closed breaker.
func (h *ProviderHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded reports a half-open breaker.
func (h *ProviderHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy reports an open breaker.
func (h *ProviderHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks the provider clients of one process. Clients register
// themselves through ClientConfig.Registry and report each call outcome.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*providerEntry
}

type providerEntry struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
	lastLatency   time.Duration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*providerEntry)}
}

// Register adds a client under name. Registering a name again replaces the
// client and clears its history.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &providerEntry{client: client}
}

// Unregister removes a provider.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
}

// RecordSuccess notes a successful call. Unknown names are ignored.
func (r *Registry) RecordSuccess(name string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := time.Now()
		p.lastSuccessAt = &now
		p.lastLatency = latency
	}
}

// RecordFailure notes a failed call. Unknown names are ignored.
func (r *Registry) RecordFailure(name string, err error, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := time.Now()
		p.lastFailureAt = &now
		p.lastLatency = latency
		if err != nil {
			p.lastError = err.Error()
		}
	}
}

// GetHealth returns the health of one provider, or nil if it is not registered.
func (r *Registry) GetHealth(name string) *ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil
	}
	return p.snapshot(name)
}

// GetAllHealth returns the health of every provider, sorted by name.
func (r *Registry) GetAllHealth() []*ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*ProviderHealth, 0, len(r.providers))
	for name, p := range r.providers {
		health = append(health, p.snapshot(name))
	}
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })
	return health
}

// ProviderNames returns the registered names, sorted.
func (r *Registry) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

func (p *providerEntry) snapshot(name string) *ProviderHealth {
	return &ProviderHealth{
		Name:          name,
		CircuitState:  p.client.CircuitBreakerState(),
		Counts:        p.client.CircuitBreakerCounts(),
		LastSuccessAt: p.lastSuccessAt,
		LastFailureAt: p.lastFailureAt,
		LastError:     p.lastError,
		LastLatency:   p.lastLatency,
	}
}
