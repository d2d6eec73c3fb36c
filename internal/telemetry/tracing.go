package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Trace exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Tracing owns the tracer provider for a run.
type Tracing struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// NewTracing builds a tracer provider for exporter and installs it as the
// global provider. "stdout" writes spans as JSON to w; "none" installs a
// no-op provider.
func NewTracing(serviceName, version, exporter string, w io.Writer) (*Tracing, error) {
	switch exporter {
	case "", ExporterNone:
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Tracing{provider: tp, shutdown: func(context.Context) error { return nil }}, nil

	case ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		res := resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version),
		)
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		return &Tracing{provider: tp, shutdown: tp.Shutdown}, nil

	default:
		return nil, fmt.Errorf("unknown trace exporter %q", exporter)
	}
}

// Tracer returns a named tracer from the provider.
func (t *Tracing) Tracer(name string) trace.Tracer {
	return t.provider.Tracer(name)
}

// Shutdown flushes pending spans.
func (t *Tracing) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}
