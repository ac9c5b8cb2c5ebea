package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/routecast/routecast/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "routecast-test",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestProvider_Shutdown_TracerOnly(t *testing.T) {
	provider := &telemetry.Provider{TracerProvider: sdktrace.NewTracerProvider()}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, telemetry.Sampler(0).Description(), "AlwaysOnSampler")
	assert.Contains(t, telemetry.Sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, telemetry.Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
