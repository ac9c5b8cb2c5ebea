// Package app builds the Routecast service graph from configuration. The API
// server and the worker share it.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/clearance"
	"github.com/routecast/routecast/internal/clearance/overpass"
	"github.com/routecast/routecast/internal/config"
	"github.com/routecast/routecast/internal/database"
	"github.com/routecast/routecast/internal/geocoding"
	geomapbox "github.com/routecast/routecast/internal/geocoding/mapbox"
	"github.com/routecast/routecast/internal/provider/resilience"
	"github.com/routecast/routecast/internal/routing"
	routemapbox "github.com/routecast/routecast/internal/routing/mapbox"
	"github.com/routecast/routecast/internal/summary"
	"github.com/routecast/routecast/internal/trip"
	"github.com/routecast/routecast/internal/weather"
	"github.com/routecast/routecast/internal/weather/noaa"
	"github.com/routecast/routecast/internal/weather/valkeystore"
)

// Services is the assembled service graph.
type Services struct {
	Trips    *trip.Service
	Registry *resilience.Registry
	// Pool is nil when the database is disabled.
	Pool *pgxpool.Pool

	closers []func()
}

// Close releases the database pool and cache connections.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Build connects storage, creates the provider clients and returns the trip
// service. metrics may be nil.
func Build(ctx context.Context, cfg *config.Config, metrics trip.Recorder, log zerolog.Logger) (*Services, error) {
	s := &Services{Registry: resilience.NewRegistry()}

	repo, err := s.repository(ctx, cfg, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	geocoder := geocoding.NewService(geocoding.ServiceConfig{
		Provider: geomapbox.NewClient(geomapbox.ClientConfig{
			AccessToken: cfg.Mapbox.AccessToken,
			BaseURL:     cfg.Mapbox.BaseURL,
			Country:     cfg.Mapbox.Country,
			Registry:    s.Registry,
			Logger:      log,
		}),
		Logger: log,
	})

	router := routing.NewService(routing.ServiceConfig{
		Provider: routemapbox.NewClient(routemapbox.ClientConfig{
			AccessToken: cfg.Mapbox.AccessToken,
			BaseURL:     cfg.Mapbox.BaseURL,
			Registry:    s.Registry,
			Logger:      log,
		}),
		Logger: log,
	})

	weatherCfg := weather.ServiceConfig{
		Provider: noaa.NewClient(noaa.ClientConfig{
			BaseURL:   cfg.NOAA.BaseURL,
			UserAgent: cfg.NOAA.UserAgent,
			Registry:  s.Registry,
			Logger:    log,
		}),
		Logger:        log,
		CacheTTL:      cfg.NOAA.CacheTTL,
		AlertCacheTTL: cfg.NOAA.AlertCacheTTL,
	}
	if cfg.Valkey.Addr != "" {
		client, err := valkeystore.Connect(ctx, cfg.Valkey.Addr)
		if err != nil {
			// The in-process cache still works without the shared tier.
			log.Warn().Err(err).Str("addr", cfg.Valkey.Addr).Msg("valkey unavailable, using in-process weather cache only")
		} else {
			s.closers = append(s.closers, client.Close)
			weatherCfg.Store = valkeystore.New(client, cfg.Valkey.Prefix)
			log.Info().Str("addr", cfg.Valkey.Addr).Msg("shared weather cache connected")
		}
	}

	var structures clearance.Provider
	if cfg.Overpass.Enabled {
		structures = overpass.NewClient(overpass.ClientConfig{
			BaseURL:  cfg.Overpass.BaseURL,
			Registry: s.Registry,
			Logger:   log,
		})
	}

	var summarizer summary.Summarizer
	if cfg.Summary.APIKey != "" {
		summarizer = summary.NewClient(summary.Config{
			APIKey:      cfg.Summary.APIKey,
			BaseURL:     cfg.Summary.BaseURL,
			Model:       cfg.Summary.Model,
			MaxTokens:   cfg.Summary.MaxTokens,
			Temperature: cfg.Summary.Temperature,
			Timeout:     cfg.Summary.Timeout,
			Logger:      log,
		})
	} else {
		log.Info().Msg("summary API key not set, reports use the fallback summary")
	}

	s.Trips = trip.NewService(trip.ServiceConfig{
		Geocoder:          geocoder,
		Router:            router,
		Weather:           weather.NewService(weatherCfg),
		Repository:        repo,
		Clearance:         structures,
		Summarizer:        summarizer,
		Metrics:           metrics,
		Logger:            log,
		IntervalMiles:     cfg.Engine.SampleIntervalMiles,
		AverageSpeedMPH:   cfg.Engine.AverageSpeedMPH,
		MaxConcurrency:    cfg.Engine.MaxConcurrency,
		EvaluationTimeout: cfg.Engine.EvaluationTimeout,
	})

	return s, nil
}

func (s *Services) repository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (trip.Repository, error) {
	if !cfg.Database.Enabled {
		log.Warn().Msg("database disabled, history and favorites are kept in memory")
		return trip.NewInMemoryRepository(), nil
	}

	dbConfig := cfg.DatabaseConnection()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	s.Pool = pool
	s.closers = append(s.closers, pool.Close)

	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		log.Info().Msg("database migrations applied")
	}

	return trip.NewPostgresRepository(pool), nil
}
