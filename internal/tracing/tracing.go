// Package tracing installs the OpenTelemetry tracer provider used by the
// HTTP middleware, the scoring pipeline and the event bus.
package tracing

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/opensource-finance/credivist/internal/domain"
)

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(ctx context.Context) error

func noop(context.Context) error { return nil }

// Setup installs a global tracer provider and the W3C trace-context
// propagator. When tracing is disabled the otel no-op provider stays in
// place and the returned shutdown does nothing.
func Setup(ctx context.Context, cfg domain.TracingConfig) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		return noop, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return noop, err
	}

	provider := NewProvider(cfg.ServiceName, exporter)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// NewProvider builds a batching provider for the given exporter.
func NewProvider(serviceName string, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	if serviceName == "" {
		serviceName = "credivist"
	}
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
}

func newExporter(ctx context.Context, cfg domain.TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case "", "otlp", "jaeger":
		// Jaeger ingests OTLP directly.
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		return exp, nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", cfg.ExporterType)
	}
}
