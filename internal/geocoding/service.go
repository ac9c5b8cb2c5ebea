package geocoding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Provider is the geocoding provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache results (default: 24 hours).
	// Place names and coordinates change rarely.
	CacheTTL time.Duration

	// ReverseGridSize is the grid cell size for reverse lookups in degrees (default: 0.05).
	ReverseGridSize float64

	// MaxEntries bounds each cache; the oldest entries are evicted first (default: 10000).
	MaxEntries int
}

// Service resolves places with caching and request coalescing.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	reverseGridSize float64
	maxEntries      int

	group singleflight.Group

	mu      sync.RWMutex
	forward map[string]*cachedPlace
	reverse map[string]*cachedPlace
}

type cachedPlace struct {
	place     *Place
	expiresAt time.Time
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	gridSize := cfg.ReverseGridSize
	if gridSize == 0 {
		gridSize = 0.05
	}

	maxEntries := cfg.MaxEntries
	if maxEntries == 0 {
		maxEntries = 10000
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		reverseGridSize: gridSize,
		maxEntries:      maxEntries,
		forward:         make(map[string]*cachedPlace),
		reverse:         make(map[string]*cachedPlace),
	}
}

// Name returns the underlying provider name.
func (s *Service) Name() string {
	return s.provider.Name()
}

// Geocode resolves a free-text place to coordinates.
func (s *Service) Geocode(ctx context.Context, query string) (*Place, error) {
	key := normalizeQuery(query)
	if key == "" {
		return nil, ErrInvalidQuery
	}

	if p, ok := s.lookup(s.forward, key); ok {
		return p, nil
	}

	v, err, _ := s.group.Do("fwd:"+key, func() (interface{}, error) {
		p, err := s.provider.Geocode(ctx, strings.TrimSpace(query))
		if err != nil {
			return nil, s.wrap(err, "geocode", zerolog.Dict().Str("query", query))
		}
		s.store(s.forward, key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Place), nil
}

// ReverseGeocode resolves a point to its locality. Nearby points share results.
func (s *Service) ReverseGeocode(ctx context.Context, lat, lon float64) (*Place, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidQuery
	}

	key := s.reverseKey(lat, lon)
	if p, ok := s.lookup(s.reverse, key); ok {
		return p, nil
	}

	v, err, _ := s.group.Do("rev:"+key, func() (interface{}, error) {
		p, err := s.provider.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			return nil, s.wrap(err, "reverse geocode", zerolog.Dict().Float64("lat", lat).Float64("lon", lon))
		}
		s.store(s.reverse, key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Place), nil
}

// wrap logs a provider failure and maps it onto the package sentinels.
func (s *Service) wrap(err error, op string, fields *zerolog.Event) error {
	if errors.Is(err, ErrLocationNotFound) {
		s.logger.Debug().Dict("request", fields).Msg(op + " matched nothing")
		return err
	}
	s.logger.Warn().Err(err).Dict("request", fields).Msg(op + " failed")
	if errors.Is(err, ErrProviderUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

func (s *Service) lookup(cache map[string]*cachedPlace, key string) (*Place, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := cache[key]
	if !ok || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.place, true
}

func (s *Service) store(cache map[string]*cachedPlace, key string, p *Place) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(cache) >= s.maxEntries {
		evictOldest(cache)
	}
	cache[key] = &cachedPlace{place: p, expiresAt: time.Now().Add(s.cacheTTL)}
}

// evictOldest drops the entry closest to expiry.
func evictOldest(cache map[string]*cachedPlace) {
	var oldestKey string
	var oldest time.Time
	for k, c := range cache {
		if oldestKey == "" || c.expiresAt.Before(oldest) {
			oldestKey, oldest = k, c.expiresAt
		}
	}
	delete(cache, oldestKey)
}

func (s *Service) reverseKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.reverseGridSize) * s.reverseGridSize
	gridLon := math.Floor(lon/s.reverseGridSize) * s.reverseGridSize
	return fmt.Sprintf("%.2f:%.2f", gridLat, gridLon)
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// CacheStats returns the number of cached forward and reverse results.
func (s *Service) CacheStats() (forward, reverse int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.forward), len(s.reverse)
}
