// Package main provides the entrypoint for the Routecast background worker.
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

	"github.com/routecast/routecast/internal/app"
	"github.com/routecast/routecast/internal/config"
	"github.com/routecast/routecast/internal/telemetry"
	"github.com/routecast/routecast/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "routecast-worker"

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

	log.Info().Str("build_time", BuildTime).Msg("starting Routecast worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, cfg.TelemetrySettings(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	providerMetrics, err := telemetry.NewProviderMetrics(otel.Meter(serviceName))
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		return
	}

	services, err := app.Build(ctx, cfg, providerMetrics, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build services")
		return
	}
	defer services.Close()

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Concurrency:      cfg.Worker.Concurrency,
			Timeout:          cfg.Engine.EvaluationTimeout,
			ProbeOrigin:      cfg.Worker.ProbeOrigin,
			ProbeDestination: cfg.Worker.ProbeDest,
		},
		Trips:  services.Trips,
		Logger: log,
	})
	processor := worker.NewProcessor(refreshJob, cfg.Worker.JobTimeout, log)

	// Cloud Run expects the worker to answer on a port.
	mux := http.NewServeMux()
	mux.Handle("/health", worker.HealthHandler(Version, refreshJob))

	server := &http.Server{
		Addr:         ":" + cfg.Worker.HealthPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.Worker.ProjectID == "" {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set, worker will only serve health checks")
	} else {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.Worker.ProjectID,
			SubscriptionName: cfg.Worker.SubscriptionID,
			MaxOutstanding:   cfg.Worker.Concurrency,
			Processor:        processor,
			Logger:           log,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to create pubsub handler")
			return
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()

		go func() {
			if err := handler.Start(ctx); err != nil {
				log.Error().Err(err).Msg("pubsub receive stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
