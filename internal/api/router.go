// Package api assembles the Routecast HTTP API.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/api/handler"
	"github.com/routecast/routecast/internal/api/middleware"
)

// RouterConfig holds the router dependencies. Metrics, Database and
// Providers are optional.
type RouterConfig struct {
	Version    string
	BuildTime  string
	Logger     zerolog.Logger
	Metrics    *middleware.Metrics
	RequireTLS bool

	Trips     handler.TripService
	Database  handler.Pinger
	Providers handler.ProviderHealthSource
}

// NewRouter builds the chi router with the middleware chain and all /v1 routes.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Order matters: the request ID must exist before tracing and logging read it.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Database, cfg.Providers, cfg.Logger)
	routeHandler := handler.NewRouteHandler(cfg.Trips, cfg.Logger)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/", opsHandler.Banner)

		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/routes", func(r chi.Router) {
			r.Use(middleware.RequireJSON)

			r.With(expensiveRateLimit).Post("/weather", routeHandler.EvaluateRoute)

			r.Group(func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/history", routeHandler.History)
				r.Route("/favorites", func(r chi.Router) {
					r.Get("/", routeHandler.ListFavorites)
					r.Post("/", routeHandler.AddFavorite)
					r.Delete("/{favoriteId}", routeHandler.DeleteFavorite)
				})
				r.Get("/{routeId}", routeHandler.GetRoute)
				r.Get("/{routeId}/kml", routeHandler.ExportKML)
			})
		})

		r.With(standardRateLimit).Get("/geocode", routeHandler.Geocode)
	})

	return r
}
