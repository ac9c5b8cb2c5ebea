// Package main provides the entrypoint for the Routecast API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/routecast/routecast/internal/api"
	"github.com/routecast/routecast/internal/api/handler"
	"github.com/routecast/routecast/internal/api/middleware"
	"github.com/routecast/routecast/internal/app"
	"github.com/routecast/routecast/internal/config"
	"github.com/routecast/routecast/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "routecast-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = log.Level(cfg.Level())

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting Routecast API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, cfg.TelemetrySettings(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := telemetry.NewProviderMetrics(otel.Meter(serviceName))
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	services, err := app.Build(ctx, cfg, providerMetrics, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build services")
		os.Exit(1)
	}
	defer services.Close()

	var db handler.Pinger
	if services.Pool != nil {
		db = services.Pool
	}

	router := api.NewRouter(api.RouterConfig{
		Version:    Version,
		BuildTime:  BuildTime,
		Logger:     log,
		Metrics:    metrics,
		RequireTLS: cfg.RequireTLS,
		Trips:      services.Trips,
		Database:   db,
		Providers:  services.Registry,
	})

	// Route evaluation may run up to the evaluation deadline before writing.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Engine.EvaluationTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
