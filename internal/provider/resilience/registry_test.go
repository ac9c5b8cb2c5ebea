package resilience_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecast/routecast/internal/provider/resilience"
)

func newRegistered(r *resilience.Registry, names ...string) {
	for _, name := range names {
		r.Register(name, resilience.NewClient(resilience.DefaultClientConfig(name)))
	}
}

func TestRegistry_RegisterAndGetHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegistered(registry, "noaa")

	health := registry.GetHealth("noaa")
	require.NotNil(t, health)
	assert.Equal(t, "noaa", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
	assert.Empty(t, health.LastError)

	assert.Nil(t, registry.GetHealth("openweathermap"))
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegistered(registry, "overpass")

	registry.RecordSuccess("overpass", 120*time.Millisecond)
	health := registry.GetHealth("overpass")
	require.NotNil(t, health.LastSuccessAt)
	assert.Equal(t, 120*time.Millisecond, health.LastLatency)

	registry.RecordFailure("overpass", errors.New("provider returned 504 Gateway Timeout"), 3*time.Second)
	health = registry.GetHealth("overpass")
	require.NotNil(t, health.LastFailureAt)
	assert.NotNil(t, health.LastSuccessAt)
	assert.Equal(t, "provider returned 504 Gateway Timeout", health.LastError)
	assert.Equal(t, 3*time.Second, health.LastLatency)

	// A nil error keeps the previous message.
	registry.RecordFailure("overpass", nil, time.Second)
	assert.Equal(t, "provider returned 504 Gateway Timeout", registry.GetHealth("overpass").LastError)
}

func TestRegistry_UnknownNamesAreIgnored(t *testing.T) {
	registry := resilience.NewRegistry()

	registry.RecordSuccess("missing", time.Millisecond)
	registry.RecordFailure("missing", errors.New("boom"), time.Millisecond)

	assert.Zero(t, registry.ProviderCount())
	assert.Nil(t, registry.GetHealth("missing"))
}

func TestRegistry_ReRegisterClearsHistory(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegistered(registry, "noaa")
	registry.RecordFailure("noaa", errors.New("boom"), time.Millisecond)

	newRegistered(registry, "noaa")

	health := registry.GetHealth("noaa")
	assert.Nil(t, health.LastFailureAt)
	assert.Empty(t, health.LastError)
	assert.Equal(t, 1, registry.ProviderCount())
}

func TestRegistry_Unregister(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegistered(registry, "noaa", "overpass")

	registry.Unregister("noaa")
	registry.Unregister("never-registered")

	assert.Equal(t, []string{"overpass"}, registry.ProviderNames())
}

func TestRegistry_SortedSnapshots(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegistered(registry, "overpass", "mapbox-geocoding", "noaa", "mapbox-directions")

	want := []string{"mapbox-directions", "mapbox-geocoding", "noaa", "overpass"}
	assert.Equal(t, want, registry.ProviderNames())

	all := registry.GetAllHealth()
	require.Len(t, all, len(want))
	for i, h := range all {
		assert.Equal(t, want[i], h.Name)
	}
}

func TestRegistry_ConcurrentRecording(t *testing.T) {
	registry := resilience.NewRegistry()
	newRegistered(registry, "noaa")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				registry.RecordSuccess("noaa", time.Millisecond)
			} else {
				registry.RecordFailure("noaa", errors.New("boom"), time.Millisecond)
			}
			_ = registry.GetAllHealth()
		}()
	}
	wg.Wait()

	health := registry.GetHealth("noaa")
	assert.NotNil(t, health.LastSuccessAt)
	assert.NotNil(t, health.LastFailureAt)
}

func TestProviderHealth_States(t *testing.T) {
	tests := []struct {
		state                        gobreaker.State
		healthy, degraded, unhealthy bool
	}{
		{gobreaker.StateClosed, true, false, false},
		{gobreaker.StateHalfOpen, false, true, false},
		{gobreaker.StateOpen, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.healthy, h.IsHealthy())
			assert.Equal(t, tt.degraded, h.IsDegraded())
			assert.Equal(t, tt.unhealthy, h.IsUnhealthy())
		})
	}
}
