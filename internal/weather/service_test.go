package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecast/routecast/internal/weather"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu         sync.Mutex
	obsCalls   int
	alertCalls int
	alerts     []weather.Alert
	err        error
}

func newMockProvider() *mockProvider {
	return &mockProvider{}
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) GetCurrentWeather(_ context.Context, lat, lon float64) (*weather.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obsCalls++

	if m.err != nil {
		return nil, m.err
	}

	return &weather.Observation{
		Lat:             lat,
		Lon:             lon,
		Temperature:     68,
		TemperatureUnit: "F",
		Conditions:      "Sunny",
		WindSpeed:       "5 mph",
		WindDirection:   "NW",
		IsDaytime:       true,
		FetchedAt:       time.Now(),
	}, nil
}

func (m *mockProvider) GetAlerts(_ context.Context, _, _ float64) ([]weather.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertCalls++

	if m.err != nil {
		return nil, m.err
	}
	return m.alerts, nil
}

func (m *mockProvider) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.obsCalls, m.alertCalls
}

func (m *mockProvider) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// memoryStore is an in-memory shared store for testing.
type memoryStore struct {
	mu     sync.Mutex
	obs    map[string]*weather.Observation
	alerts map[string][]weather.Alert
	saves  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		obs:    make(map[string]*weather.Observation),
		alerts: make(map[string][]weather.Alert),
	}
}

func (s *memoryStore) GetObservation(_ context.Context, key string) (*weather.Observation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.obs[key]
	return o, ok, nil
}

func (s *memoryStore) SaveObservation(_ context.Context, key string, obs *weather.Observation, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs[key] = obs
	s.saves++
	return nil
}

func (s *memoryStore) GetAlerts(_ context.Context, key string) ([]weather.Alert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[key]
	return a, ok, nil
}

func (s *memoryStore) SaveAlerts(_ context.Context, key string, alerts []weather.Alert, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[key] = alerts
	s.saves++
	return nil
}

func TestService_GetCurrentWeather(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	obs, err := service.GetCurrentWeather(context.Background(), 39.7392, -104.9903)
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, 68, obs.Temperature)
	assert.Equal(t, "Sunny", obs.Conditions)
}

func TestService_GetCurrentWeather_CacheGriding(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:      provider,
		Logger:        zerolog.Nop(),
		CacheTTL:      5 * time.Minute,
		CacheGridSize: 0.1,
	})

	ctx := context.Background()

	// Two nearby points in the same grid cell
	_, err := service.GetCurrentWeather(ctx, 39.71, -104.99)
	require.NoError(t, err)
	_, err = service.GetCurrentWeather(ctx, 39.75, -104.95)
	require.NoError(t, err)

	obsCalls, _ := provider.calls()
	assert.Equal(t, 1, obsCalls)

	// Point in a different grid cell
	_, err = service.GetCurrentWeather(ctx, 38.83, -104.82)
	require.NoError(t, err)

	obsCalls, _ = provider.calls()
	assert.Equal(t, 2, obsCalls)
}

func TestService_GetCurrentWeather_ConcurrentCallersShareFetch(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.GetCurrentWeather(context.Background(), 39.74, -104.99)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	obsCalls, _ := provider.calls()
	assert.LessOrEqual(t, obsCalls, 20)
	assert.GreaterOrEqual(t, obsCalls, 1)

	// Once warmed, further calls are served from cache.
	_, err := service.GetCurrentWeather(context.Background(), 39.74, -104.99)
	require.NoError(t, err)
	after, _ := provider.calls()
	assert.Equal(t, obsCalls, after)
}

func TestService_GetCurrentWeather_InvalidCoordinates(t *testing.T) {
	service := weather.NewService(weather.ServiceConfig{
		Provider: newMockProvider(),
		Logger:   zerolog.Nop(),
	})

	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"lat too high", 91.0, -104.9},
		{"lat too low", -91.0, -104.9},
		{"lon too high", 39.7, 181.0},
		{"lon too low", 39.7, -181.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetCurrentWeather(context.Background(), tt.lat, tt.lon)
			require.Error(t, err)
			assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)

			_, err = service.GetAlerts(context.Background(), tt.lat, tt.lon)
			assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
		})
	}
}

func TestService_GetCurrentWeather_ProviderError(t *testing.T) {
	provider := newMockProvider()
	provider.setError(errors.New("api error"))

	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	_, err := service.GetCurrentWeather(context.Background(), 39.74, -104.99)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_GetCurrentWeather_StaleOnError(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.Nop(),
		CacheTTL:        100 * time.Millisecond,
		StaleIfErrorTTL: 1 * time.Hour,
	})

	obs1, err := service.GetCurrentWeather(context.Background(), 39.74, -104.99)
	require.NoError(t, err)
	require.NotNil(t, obs1)

	time.Sleep(150 * time.Millisecond)
	provider.setError(errors.New("api error"))

	obs2, err := service.GetCurrentWeather(context.Background(), 39.74, -104.99)
	require.NoError(t, err)
	assert.Same(t, obs1, obs2)
}

func TestService_GetAlerts(t *testing.T) {
	provider := newMockProvider()
	provider.alerts = []weather.Alert{
		{ID: "urn:1", Event: "Winter Storm Warning", Severity: weather.SeveritySevere},
	}
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	alerts, err := service.GetAlerts(context.Background(), 39.74, -104.99)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Winter Storm Warning", alerts[0].Event)

	_, err = service.GetAlerts(context.Background(), 39.74, -104.99)
	require.NoError(t, err)

	_, alertCalls := provider.calls()
	assert.Equal(t, 1, alertCalls)
}

func TestService_GetAlerts_NoneIsEmptyNotNil(t *testing.T) {
	service := weather.NewService(weather.ServiceConfig{
		Provider: newMockProvider(),
		Logger:   zerolog.Nop(),
	})

	alerts, err := service.GetAlerts(context.Background(), 39.74, -104.99)
	require.NoError(t, err)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestService_SharedStore(t *testing.T) {
	store := newMemoryStore()

	first := newMockProvider()
	warm := weather.NewService(weather.ServiceConfig{
		Provider: first,
		Store:    store,
		Logger:   zerolog.Nop(),
	})

	_, err := warm.GetCurrentWeather(context.Background(), 39.74, -104.99)
	require.NoError(t, err)
	_, err = warm.GetAlerts(context.Background(), 39.74, -104.99)
	require.NoError(t, err)
	assert.Equal(t, 2, store.saves)

	// A second instance sharing the store never reaches its provider.
	second := newMockProvider()
	cold := weather.NewService(weather.ServiceConfig{
		Provider: second,
		Store:    store,
		Logger:   zerolog.Nop(),
	})

	obs, err := cold.GetCurrentWeather(context.Background(), 39.74, -104.99)
	require.NoError(t, err)
	assert.Equal(t, "Sunny", obs.Conditions)
	_, err = cold.GetAlerts(context.Background(), 39.74, -104.99)
	require.NoError(t, err)

	obsCalls, alertCalls := second.calls()
	assert.Zero(t, obsCalls)
	assert.Zero(t, alertCalls)
	assert.True(t, cold.CacheStats().SharedStore)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := newMockProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	_, err := service.GetCurrentWeather(context.Background(), 39.74, -104.99)
	require.NoError(t, err)

	service.InvalidateCache()

	_, err = service.GetCurrentWeather(context.Background(), 39.74, -104.99)
	require.NoError(t, err)

	obsCalls, _ := provider.calls()
	assert.Equal(t, 2, obsCalls)
}

func TestService_CacheStats(t *testing.T) {
	service := weather.NewService(weather.ServiceConfig{
		Provider: newMockProvider(),
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	stats := service.CacheStats()
	assert.Equal(t, 0, stats.WeatherEntries)
	assert.Equal(t, "mock", stats.Provider)

	_, _ = service.GetCurrentWeather(context.Background(), 39.74, -104.99)
	_, _ = service.GetAlerts(context.Background(), 39.74, -104.99)

	stats = service.CacheStats()
	assert.Equal(t, 1, stats.WeatherEntries)
	assert.Equal(t, 1, stats.AlertEntries)
	assert.Equal(t, 1, stats.WeatherFreshEntries)
	assert.Equal(t, 1, stats.AlertFreshEntries)
	assert.False(t, stats.SharedStore)
}
