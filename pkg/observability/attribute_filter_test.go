package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/observability"
)

func TestAttributeFilter_AllowList(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(
		observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), nil),
	))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), "match")
	span.SetAttributes(
		attribute.Int("match.src_len", 10),
		attribute.String("match.label", "secret()"),
		attribute.String("hyperdiff.slicing", "slice"),
		attribute.String("user.email", "someone@example.com"),
		attribute.Bool("error", false),
	)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	keys := make([]string, 0, len(spans[0].Attributes))
	for _, kv := range spans[0].Attributes {
		keys = append(keys, string(kv.Key))
	}

	assert.ElementsMatch(t, []string{"match.src_len", "hyperdiff.slicing", "error"}, keys)
}
