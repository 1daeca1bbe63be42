package observability

import (
	"context"
	"fmt"

	"matchmaking-workers/internal/common/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracing owns the tracer provider. A disabled Tracing hands out no-op spans.
type Tracing struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

func disabledTracing(serviceName string) *Tracing {
	return &Tracing{tracer: noop.NewTracerProvider().Tracer(serviceName)}
}

// NewTracing builds a Jaeger-backed tracer provider and installs it globally.
// When cfg.Enabled is false it returns a no-op Tracing and no error.
func NewTracing(cfg config.TracingConfig) (*Tracing, error) {
	if !cfg.Enabled {
		return disabledTracing(cfg.ServiceName), nil
	}
	if cfg.JaegerEndpoint == "" {
		return nil, fmt.Errorf("tracing enabled but jaeger endpoint is empty")
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
	}
	return newTracingWithExporter(cfg, exp), nil
}

func newTracingWithExporter(cfg config.TracingConfig, exp sdktrace.SpanExporter) *Tracing {
	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	)
	otel.SetTracerProvider(provider)

	return &Tracing{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
	}
}

func (t *Tracing) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Enabled reports whether spans are recorded and exported.
func (t *Tracing) Enabled() bool {
	return t.provider != nil
}

func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
