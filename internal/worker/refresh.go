package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/routecast/routecast/internal/trip"
)

// ErrProbeFailed is returned when the health check route cannot be evaluated.
var ErrProbeFailed = errors.New("probe route evaluation failed")

// TripEvaluator is the part of the trip service the worker drives.
type TripEvaluator interface {
	Favorites(ctx context.Context) ([]*trip.Favorite, error)
	Evaluate(ctx context.Context, req trip.Request) (*trip.Report, error)
}

// RefreshJob re-evaluates saved favorites so their reports and the provider
// caches stay warm.
type RefreshJob struct {
	config RefreshConfig
	trips  TripEvaluator
	logger zerolog.Logger
	now    func() time.Time

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns       int64
	Refreshed       int64
	FailedRefreshes int64
	Probes          int64
	FailedProbes    int64

	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	LastProbeAt         time.Time
	LastProbeError      string
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config RefreshConfig
	Trips  TripEvaluator
	Logger zerolog.Logger
	// Now is overridable for tests.
	Now func() time.Time
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RefreshJob{
		config:  cfg.Config.withDefaults(),
		trips:   cfg.Trips,
		logger:  cfg.Logger.With().Str("component", "refresh_job").Logger(),
		now:     now,
		metrics: &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a favorites refresh.
type RefreshResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Total      int
	Successful int
	Failed     int
	Errors     []RefreshError
}

// RefreshError is one favorite that could not be re-evaluated.
type RefreshError struct {
	FavoriteID string
	Route      string
	Error      string
}

// Run re-evaluates every favorite departing now. Individual failures are
// collected in the result; only a failure to list favorites is returned.
func (j *RefreshJob) Run(ctx context.Context) (*RefreshResult, error) {
	startTime := j.now()
	result := &RefreshResult{StartTime: startTime}

	favorites, err := j.trips.Favorites(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	result.Total = len(favorites)

	j.logger.Info().
		Int("favorites", result.Total).
		Int("concurrency", j.config.Concurrency).
		Msg("starting favorites refresh")

	favoritesChan := make(chan *trip.Favorite, len(favorites))
	resultsChan := make(chan favoriteResult, len(favorites))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, favoritesChan, resultsChan)
		}()
	}

	for _, f := range favorites {
		favoritesChan <- f
	}
	close(favoritesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for fr := range resultsChan {
		if fr.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, RefreshError{
			FavoriteID: fr.favorite.ID,
			Route:      fr.favorite.Origin + " -> " + fr.favorite.Destination,
			Error:      fr.err.Error(),
		})
	}
	// Favorites never picked up because the context ended count as failed.
	if skipped := result.Total - result.Successful - result.Failed; skipped > 0 {
		result.Failed += skipped
	}

	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("favorites refresh completed")

	return result, nil
}

type favoriteResult struct {
	favorite *trip.Favorite
	err      error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, favorites <-chan *trip.Favorite, results chan<- favoriteResult) {
	for f := range favorites {
		select {
		case <-ctx.Done():
			return
		default:
			results <- favoriteResult{favorite: f, err: j.refreshFavorite(ctx, f)}
		}
	}
}

func (j *RefreshJob) refreshFavorite(ctx context.Context, f *trip.Favorite) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	report, err := j.trips.Evaluate(ctx, f.TripRequest(j.now()))
	if err != nil {
		j.logger.Warn().Err(err).Str("favorite_id", f.ID).Msg("favorite refresh failed")
		return err
	}

	j.logger.Debug().
		Str("favorite_id", f.ID).
		Str("report_id", report.ID).
		Int("safety_score", report.Analysis.Safety.Score).
		Msg("favorite refreshed")
	return nil
}

// Probe evaluates the configured probe route without storing it. It exercises
// geocoding, directions and weather end to end.
func (j *RefreshJob) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	report, err := j.trips.Evaluate(ctx, trip.Request{
		Origin:      j.config.ProbeOrigin,
		Destination: j.config.ProbeDestination,
		Departure:   j.now(),
		Ephemeral:   true,
	})

	j.metrics.mu.Lock()
	j.metrics.Probes++
	j.metrics.LastProbeAt = j.now()
	j.metrics.LastProbeError = ""
	if err != nil {
		j.metrics.FailedProbes++
		j.metrics.LastProbeError = err.Error()
	}
	j.metrics.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	missing := 0
	for _, w := range report.Analysis.Waypoints {
		if w.Observation == nil {
			missing++
		}
	}
	if missing > 0 {
		j.logger.Warn().
			Int("waypoints", len(report.Analysis.Waypoints)).
			Int("without_weather", missing).
			Msg("probe route evaluated with missing weather")
	}
	return nil
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.Refreshed += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		Refreshed:           j.metrics.Refreshed,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		Probes:              j.metrics.Probes,
		FailedProbes:        j.metrics.FailedProbes,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		LastProbeAt:         j.metrics.LastProbeAt,
		LastProbeError:      j.metrics.LastProbeError,
	}
}

// MetricsSnapshot returns the current metrics as a map for the health endpoint.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	snap := map[string]interface{}{
		"total_runs":            m.TotalRuns,
		"refreshed":             m.Refreshed,
		"failed_refreshes":      m.FailedRefreshes,
		"probes":                m.Probes,
		"failed_probes":         m.FailedProbes,
		"last_refresh_duration": m.LastRefreshDuration.String(),
	}
	if !m.LastRefreshAt.IsZero() {
		snap["last_refresh_at"] = m.LastRefreshAt.UTC().Format(time.RFC3339)
	}
	if !m.LastProbeAt.IsZero() {
		snap["last_probe_at"] = m.LastProbeAt.UTC().Format(time.RFC3339)
	}
	if m.LastProbeError != "" {
		snap["last_probe_error"] = m.LastProbeError
	}
	return snap
}
