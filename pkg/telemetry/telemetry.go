// Package telemetry wires OpenTelemetry tracing and prometheus-backed metrics.
package telemetry

import (
	"context"
	"errors"
	"net/http"

	"github.com/abgdnv/catalogadmin/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// Providers holds the installed telemetry providers.
// MetricsHandler is nil when metrics are disabled.
type Providers struct {
	tracer         *tracesdk.TracerProvider
	meter          *sdkmetric.MeterProvider
	MetricsHandler http.Handler
}

// Setup installs the global tracer and meter providers described by cfg.
// Disabled parts keep the otel no-op defaults.
func Setup(ctx context.Context, serviceName string, cfg config.TelemetryConfig) (*Providers, error) {
	p := &Providers{}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	if cfg.TracesEnabled() {
		tp, err := NewTracerProvider(ctx, res, cfg)
		if err != nil {
			return nil, err
		}
		p.tracer = tp
	}

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
		if err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
		p.meter = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(p.meter)
		p.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	return p, nil
}

// NewTracerProvider creates an OTLP/HTTP batching tracer provider and installs it globally.
func NewTracerProvider(ctx context.Context, res *resource.Resource, cfg config.TelemetryConfig) (*tracesdk.TracerProvider, error) {
	collectorOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Traces.OtlpHttp.Endpoint),
		otlptracehttp.WithTimeout(cfg.Traces.OtlpHttp.Timeout),
	}
	if cfg.Traces.OtlpHttp.Insecure {
		collectorOpts = append(collectorOpts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, collectorOpts...)
	if err != nil {
		return nil, err
	}
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exporter),
		tracesdk.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp, nil
}

// Shutdown flushes and stops whatever providers were installed.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracer != nil {
		errs = append(errs, p.tracer.Shutdown(ctx))
	}
	if p.meter != nil {
		errs = append(errs, p.meter.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
