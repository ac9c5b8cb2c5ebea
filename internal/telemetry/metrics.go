package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Call outcomes recorded on provider metrics.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// ProviderMetrics times and counts calls to the upstream providers used
// during a route evaluation.
type ProviderMetrics struct {
	duration metric.Float64Histogram
	calls    metric.Int64Counter
}

// NewProviderMetrics creates the provider instruments on meter.
func NewProviderMetrics(meter metric.Meter) (*ProviderMetrics, error) {
	duration, err := meter.Float64Histogram(
		"routecast.provider.duration",
		metric.WithDescription("Time spent in upstream provider calls, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25),
	)
	if err != nil {
		return nil, err
	}

	calls, err := meter.Int64Counter(
		"routecast.provider.calls",
		metric.WithDescription("Upstream provider calls by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{duration: duration, calls: calls}, nil
}

// RecordRequest records one provider call.
func (m *ProviderMetrics) RecordRequest(provider, operation string, d time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.String("outcome", Outcome(err)),
	)

	// Recorded outside the request context, which may already be done.
	ctx := context.Background()
	m.duration.Record(ctx, d.Seconds(), opt)
	m.calls.Add(ctx, 1, opt)
}

// Outcome classifies a call error for metric labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
