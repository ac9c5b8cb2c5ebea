package routing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL is how long a route is served from cache. Default: 1 hour
	CacheTTL time.Duration

	// Precision is the number of decimal places kept when coordinates are
	// folded into a cache key. Default: 3 (about 100 m)
	Precision int

	// StaleFor is how long past expiry a route may still be served when the
	// provider fails. Default: 6 hours
	StaleFor time.Duration

	// MaxEntries bounds the cache. Default: 512
	MaxEntries int
}

// Service resolves directions through a Provider, caching results keyed by
// the rounded request points.
type Service struct {
	provider   Provider
	logger     zerolog.Logger
	ttl        time.Duration
	precision  int
	staleFor   time.Duration
	maxEntries int

	group singleflight.Group

	mu     sync.Mutex
	routes map[string]routeEntry
}

type routeEntry struct {
	resp      *DirectionsResponse
	fetchedAt time.Time
}

// NewService creates a routing service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider:   cfg.Provider,
		logger:     cfg.Logger,
		ttl:        cfg.CacheTTL,
		precision:  cfg.Precision,
		staleFor:   cfg.StaleFor,
		maxEntries: cfg.MaxEntries,
		routes:     make(map[string]routeEntry),
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}
	if s.precision <= 0 {
		s.precision = 3
	}
	if s.staleFor <= 0 {
		s.staleFor = 6 * time.Hour
	}
	if s.maxEntries <= 0 {
		s.maxEntries = 512
	}
	return s
}

// Name returns the name of the underlying provider.
func (s *Service) Name() string {
	return s.provider.Name()
}

// GetDirections returns routes through the requested points. Concurrent
// identical requests share one provider call.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	key := s.cacheKey(req)
	if entry, ok := s.lookup(key); ok && time.Since(entry.fetchedAt) < s.ttl {
		s.logger.Debug().Str("cache_key", key).Msg("directions cache hit")
		return entry.resp, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.fetch(ctx, req, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug().Str("cache_key", key).Msg("joined in-flight directions request")
	}
	return v.(*DirectionsResponse), nil
}

func (s *Service) validate(req DirectionsRequest) error {
	invalid := func(code, what string) error {
		return &Error{
			Provider: s.provider.Name(),
			Code:     code,
			Message:  "invalid " + what + " coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	if !req.Origin.Valid() {
		return invalid("INVALID_ORIGIN", "origin")
	}
	if !req.Destination.Valid() {
		return invalid("INVALID_DESTINATION", "destination")
	}
	for i, stop := range req.Stops {
		if !stop.Valid() {
			return invalid("INVALID_STOP", fmt.Sprintf("stop %d", i+1))
		}
	}
	return nil
}

func (s *Service) fetch(ctx context.Context, req DirectionsRequest, key string) (*DirectionsResponse, error) {
	log := s.logger.With().
		Str("provider", s.provider.Name()).
		Str("cache_key", key).
		Int("stops", len(req.Stops)).
		Logger()

	resp, err := s.provider.GetDirections(ctx, req)
	if err != nil {
		if entry, ok := s.lookup(key); ok && time.Since(entry.fetchedAt) < s.ttl+s.staleFor {
			log.Warn().Err(err).
				Time("fetched_at", entry.fetchedAt).
				Msg("directions provider failed, serving stale route")
			return entry.resp, nil
		}
		log.Error().Err(err).Msg("directions provider failed")
		return nil, err
	}

	if len(resp.Routes) == 0 {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "NO_ROUTE",
			Message:  "provider returned no routes",
			Err:      ErrNoRouteFound,
		}
	}

	s.store(key, resp)
	log.Debug().Int("routes", len(resp.Routes)).Msg("cached directions")
	return resp, nil
}

func (s *Service) lookup(key string) (routeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.routes[key]
	return entry, ok
}

// store inserts resp, first dropping dead entries and then, if the cache is
// still full, the oldest one.
func (s *Service) store(key string, resp *DirectionsResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if _, exists := s.routes[key]; !exists && len(s.routes) >= s.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range s.routes {
			if now.Sub(e.fetchedAt) >= s.ttl+s.staleFor {
				delete(s.routes, k)
				continue
			}
			if oldestKey == "" || e.fetchedAt.Before(oldest) {
				oldestKey, oldest = k, e.fetchedAt
			}
		}
		if len(s.routes) >= s.maxEntries {
			delete(s.routes, oldestKey)
		}
	}
	s.routes[key] = routeEntry{resp: resp, fetchedAt: now}
}

// Len returns the number of cached routes, including stale ones.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.routes)
}

// cacheKey joins the rounded request points in travel order, prefixed with
// "alt" when alternatives were requested.
func (s *Service) cacheKey(req DirectionsRequest) string {
	parts := make([]string, 0, len(req.Stops)+3)
	if req.Alternatives {
		parts = append(parts, "alt")
	} else {
		parts = append(parts, "one")
	}
	for _, p := range req.Points() {
		parts = append(parts,
			strconv.FormatFloat(p.Lat, 'f', s.precision, 64)+","+
				strconv.FormatFloat(p.Lon, 'f', s.precision, 64))
	}
	return strings.Join(parts, "|")
}
