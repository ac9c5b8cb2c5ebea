// Package handler implements the Routecast HTTP handlers.
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/api/models"
	"github.com/routecast/routecast/internal/api/response"
	"github.com/routecast/routecast/internal/provider/resilience"
)

// Pinger checks a dependency is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderHealthSource lists upstream provider health.
type ProviderHealthSource interface {
	GetAllHealth() []*resilience.ProviderHealth
}

const readinessTimeout = 2 * time.Second

// bannerFeatures are advertised by GET /v1/.
var bannerFeatures = []string{
	"departure_time",
	"multi_stop",
	"favorites",
	"packing_suggestions",
	"weather_timeline",
	"road_conditions",
	"safety_score",
	"delay_risk",
	"hazard_alerts",
	"drive_window",
	"bridge_clearance",
	"kml_export",
}

// OpsHandler serves the banner, probes and provider status.
type OpsHandler struct {
	version   string
	buildTime string
	db        Pinger
	providers ProviderHealthSource
	log       zerolog.Logger
}

// NewOpsHandler creates an OpsHandler. db and providers may be nil.
func NewOpsHandler(version, buildTime string, db Pinger, providers ProviderHealthSource, log zerolog.Logger) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		db:        db,
		providers: providers,
		log:       log.With().Str("component", "ops_handler").Logger(),
	}
}

// Banner handles GET /v1/.
func (h *OpsHandler) Banner(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Banner{
		Message:  "Routecast API",
		Version:  h.version,
		Build:    h.buildTime,
		Features: bannerFeatures,
	})
}

// HealthCheck handles GET /v1/ops/health.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. It fails when the database does
// not answer a ping.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingDatabase(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("readiness check failed")
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status:  models.HealthStatusFail,
			Time:    models.Timestamp(time.Now()),
			Details: map[string]interface{}{"database": err.Error()},
		})
		return
	}

	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{h.databaseStatus(r.Context())},
		Providers:  h.providerStatuses(),
	}

	for _, s := range status.Subsystems {
		if s.Status == models.HealthStatusFail {
			status.Status = models.HealthStatusFail
		}
	}
	if status.Status == models.HealthStatusOK {
		for _, p := range status.Providers {
			if p.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
				break
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) pingDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.db.Ping(ctx)
}

func (h *OpsHandler) databaseStatus(ctx context.Context) models.SubsystemStatus {
	if h.db == nil {
		detail := "in-memory storage"
		return models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK, Detail: &detail}
	}
	if err := h.pingDatabase(ctx); err != nil {
		detail := err.Error()
		return models.SubsystemStatus{Name: "database", Status: models.HealthStatusFail, Detail: &detail}
	}
	return models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.providers == nil {
		return []models.ProviderStatus{}
	}

	all := h.providers.GetAllHealth()
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	out := make([]models.ProviderStatus, 0, len(all))
	for _, p := range all {
		ps := models.ProviderStatus{
			Provider:      p.Name,
			Status:        models.HealthStatusOK,
			CircuitState:  p.CircuitState.String(),
			Requests:      p.Counts.Requests,
			Failures:      p.Counts.ConsecutiveFailures,
			LastSuccessAt: models.TimestampPtr(p.LastSuccessAt),
			LastFailureAt: models.TimestampPtr(p.LastFailureAt),
			LatencyMs:     p.LastLatency.Milliseconds(),
		}
		switch {
		case p.IsUnhealthy():
			ps.Status = models.HealthStatusFail
		case p.IsDegraded():
			ps.Status = models.HealthStatusDegraded
		}
		if p.LastError != "" {
			msg := p.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}
