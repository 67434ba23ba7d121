// Package telemetry wires OTel tracing and metrics for analysis runs.
// When telemetry is disabled the engine gets noop instruments instead;
// nothing here sits on the timed path of a benchmark measurement.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// scopeName identifies this module's spans and metric instruments.
const scopeName = "github.com/tneupaney/dbanalyzer"

const serviceName = "dbanalyzer"

// Provider owns the registered trace and metric providers and shuts them
// down in reverse registration order.
type Provider struct {
	shutdowns []func(context.Context) error
}

// Init registers global OTel trace and metric providers backed by OTLP gRPC
// exporters. The collector endpoint comes from the standard
// OTEL_EXPORTER_OTLP_ENDPOINT env var, read by the exporters themselves.
func Init(ctx context.Context, version string) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building otel resource: %w", err)
	}

	p := &Provider{}

	traceExporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	p.shutdowns = append(p.shutdowns, tp.Shutdown)

	metricExporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	p.shutdowns = append(p.shutdowns, mp.Shutdown)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return p, nil
}

// Tracer returns the module-scoped tracer from the global provider. Before
// Init the global provider is a noop, so this is always safe to call.
func Tracer() trace.Tracer {
	return otel.Tracer(scopeName)
}

// Shutdown flushes and stops everything Init registered.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	for i := len(p.shutdowns) - 1; i >= 0; i-- {
		if err := p.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoopTracer returns a tracer that records nothing, for runs with
// telemetry disabled.
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(scopeName)
}
