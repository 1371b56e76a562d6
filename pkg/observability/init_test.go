package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.NotNil(t, providers.Match)
	assert.NotNil(t, providers.RED)

	_, span := providers.Tracer.Start(context.Background(), "match")
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_WithMeterProvider(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	cfg := observability.DefaultConfig()
	cfg.Mode = observability.ModeServer

	providers, err := observability.Init(cfg, observability.WithMeterProvider(mp))
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	providers.Match.RecordRun(context.Background(), observability.MatchStats{HeuristicLinks: 1})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.Contains(t, metricNames(rm), "hyperdiff.match.runs.total")
}

func metricNames(rm metricdata.ResourceMetrics) []string {
	var names []string

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}

	return names
}
