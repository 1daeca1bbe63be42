package observability

import (
	"context"
	"testing"

	"matchmaking-workers/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewTracing_Disabled(t *testing.T) {
	tr, err := NewTracing(config.TracingConfig{ServiceName: "matchmaking-workers"})
	require.NoError(t, err)
	assert.False(t, tr.Enabled())

	_, span := tr.Start(context.Background(), "rank")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestNewTracing_EnabledWithoutEndpoint(t *testing.T) {
	_, err := NewTracing(config.TracingConfig{Enabled: true})
	assert.Error(t, err)
}

func TestObservability_StartSpanRecords(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr := newTracingWithExporter(config.TracingConfig{ServiceName: "test", SampleRatio: 1}, exp)
	o := (&Observability{}).WithTracing(tr)

	_, span := o.StartSpan(context.Background(), "rank-candidates", attribute.Int("candidates", 3))
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, tr.provider.ForceFlush(context.Background()))
	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "rank-candidates", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.Int("candidates", 3))
	require.NoError(t, tr.Shutdown(context.Background()))
}

func TestObservability_NilSafe(t *testing.T) {
	var o *Observability
	_, span := o.StartSpan(context.Background(), "noop")
	span.End()
	o.RecordJobProcessed(context.Background(), "rank-candidates", "completed")
	o.RecordMatches(context.Background(), "default", 3)
	o.Shutdown()
}

var _ sdktrace.SpanExporter = (*tracetest.InMemoryExporter)(nil)
