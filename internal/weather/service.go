package weather

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetCurrentWeather fetches the current forecast period and the next hours for a location.
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error)

	// GetAlerts fetches active alerts whose area contains the location.
	GetAlerts(ctx context.Context, lat, lon float64) ([]Alert, error)

	// Name returns the provider name for logging.
	Name() string
}

// Store is a shared cache tier consulted after the in-process cache.
// Implementations report a miss with ok=false and a nil error.
type Store interface {
	GetObservation(ctx context.Context, key string) (*Observation, bool, error)
	SaveObservation(ctx context.Context, key string, obs *Observation, ttl time.Duration) error
	GetAlerts(ctx context.Context, key string) ([]Alert, bool, error)
	SaveAlerts(ctx context.Context, key string, alerts []Alert, ttl time.Duration) error
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Store is an optional shared cache (e.g. Valkey) behind the in-process cache.
	Store Store

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache forecasts (default: 10 minutes).
	CacheTTL time.Duration

	// AlertCacheTTL is how long to cache alerts (default: 5 minutes).
	AlertCacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.1).
	// Points within the same grid cell share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration
}

// Service provides weather data and alerts with caching.
// Concurrent requests for the same grid cell share one provider call.
type Service struct {
	provider        Provider
	store           Store
	logger          zerolog.Logger
	cacheTTL        time.Duration
	alertCacheTTL   time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	group singleflight.Group

	mu              sync.RWMutex
	weatherCache    map[string]*cacheEntry[*Observation]
	alertCache      map[string]*cacheEntry[[]Alert]
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	alertCacheTTL := cfg.AlertCacheTTL
	if alertCacheTTL == 0 {
		alertCacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.1 // ~7 miles
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 1 * time.Hour
	}

	return &Service{
		provider:        cfg.Provider,
		store:           cfg.Store,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		alertCacheTTL:   alertCacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		weatherCache:    make(map[string]*cacheEntry[*Observation]),
		alertCache:      make(map[string]*cacheEntry[[]Alert]),
		cleanupInterval: 5 * time.Minute,
	}
}

// Name returns the underlying provider name.
func (s *Service) Name() string {
	return s.provider.Name()
}

// GetCurrentWeather returns current weather for a location.
// Uses cached data if available and not expired.
func (s *Service) GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	key := s.cacheKey(lat, lon)

	s.mu.RLock()
	if cached, ok := s.weatherCache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.value, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do("obs:"+key, func() (interface{}, error) {
		return s.fetchWeather(ctx, lat, lon, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Observation), nil
}

// GetAlerts returns active alerts for a location.
// An empty slice means no active alerts; an error means the lookup failed.
func (s *Service) GetAlerts(ctx context.Context, lat, lon float64) ([]Alert, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	key := s.cacheKey(lat, lon)

	s.mu.RLock()
	if cached, ok := s.alertCache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.value, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do("alerts:"+key, func() (interface{}, error) {
		return s.fetchAlerts(ctx, lat, lon, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Alert), nil
}

// fetchWeather consults the shared store, then the provider, and updates the cache.
func (s *Service) fetchWeather(ctx context.Context, lat, lon float64, key string) (*Observation, error) {
	if s.store != nil {
		obs, ok, err := s.store.GetObservation(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("cache_key", key).Msg("shared weather cache read failed")
		} else if ok {
			s.putObservation(key, obs)
			return obs, nil
		}
	}

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("provider", s.provider.Name()).
		Msg("fetching weather from provider")

	obs, err := s.provider.GetCurrentWeather(ctx, lat, lon)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("failed to fetch weather")

		s.mu.RLock()
		cached, ok := s.weatherCache[key]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale weather data due to provider error")
			return cached.value, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	s.putObservation(key, obs)
	if s.store != nil {
		if err := s.store.SaveObservation(ctx, key, obs, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("cache_key", key).Msg("shared weather cache write failed")
		}
	}

	return obs, nil
}

// fetchAlerts consults the shared store, then the provider, and updates the cache.
func (s *Service) fetchAlerts(ctx context.Context, lat, lon float64, key string) ([]Alert, error) {
	if s.store != nil {
		alerts, ok, err := s.store.GetAlerts(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("cache_key", key).Msg("shared alert cache read failed")
		} else if ok {
			s.putAlerts(key, alerts)
			return alerts, nil
		}
	}

	alerts, err := s.provider.GetAlerts(ctx, lat, lon)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("failed to fetch alerts")

		s.mu.RLock()
		cached, ok := s.alertCache[key]
		s.mu.RUnlock()
		if ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale alert data due to provider error")
			return cached.value, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	if alerts == nil {
		alerts = []Alert{}
	}

	s.putAlerts(key, alerts)
	if s.store != nil {
		if err := s.store.SaveAlerts(ctx, key, alerts, s.alertCacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("cache_key", key).Msg("shared alert cache write failed")
		}
	}

	return alerts, nil
}

func (s *Service) putObservation(key string, obs *Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.weatherCache[key] = &cacheEntry[*Observation]{value: obs, fetchedAt: now, expiresAt: now.Add(s.cacheTTL)}
	s.cleanupIfNeeded(now)
}

func (s *Service) putAlerts(key string, alerts []Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.alertCache[key] = &cacheEntry[[]Alert]{value: alerts, fetchedAt: now, expiresAt: now.Add(s.alertCacheTTL)}
	s.cleanupIfNeeded(now)
}

// cacheKey generates a cache key for a location.
// Groups nearby points into grid cells to reduce API calls.
func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.2f:%.2f", gridLat, gridLon)
}

// cleanupIfNeeded removes entries past the stale window. Caller holds s.mu.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.weatherCache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.weatherCache, key)
			expired++
		}
	}

	for key, cached := range s.alertCache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.alertCache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired weather cache entries")
	}
}

// InvalidateCache clears all in-process cached data. The shared store is left untouched.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weatherCache = make(map[string]*cacheEntry[*Observation])
	s.alertCache = make(map[string]*cacheEntry[[]Alert])
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	weatherFresh := 0
	alertFresh := 0

	for _, c := range s.weatherCache {
		if now.Before(c.expiresAt) {
			weatherFresh++
		}
	}
	for _, c := range s.alertCache {
		if now.Before(c.expiresAt) {
			alertFresh++
		}
	}

	return CacheStats{
		WeatherEntries:      len(s.weatherCache),
		WeatherFreshEntries: weatherFresh,
		AlertEntries:        len(s.alertCache),
		AlertFreshEntries:   alertFresh,
		Provider:            s.provider.Name(),
		SharedStore:         s.store != nil,
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	WeatherEntries      int
	WeatherFreshEntries int
	AlertEntries        int
	AlertFreshEntries   int
	Provider            string
	SharedStore         bool
}

// validateCoordinates checks if coordinates are valid.
func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
