package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for spans of this module.
const TracerName = "github.com/GoCodeAlone/workflow-plugin-soap"

// Tracer returns the module tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// TracingConfig holds configuration for OpenTelemetry tracing.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
	ServiceName string `yaml:"serviceName" json:"serviceName"`
	Insecure    bool   `yaml:"insecure" json:"insecure"`
}

// Tracing owns the global tracer provider when an OTLP endpoint is set.
type Tracing struct {
	cfg            TracingConfig
	tracerProvider *sdktrace.TracerProvider
	logger         *slog.Logger
}

// NewTracing creates a tracing controller. Nothing is exported until Start.
func NewTracing(cfg TracingConfig, logger *slog.Logger) *Tracing {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "workflow-plugin-soap"
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracing{cfg: cfg, logger: logger}
}

// Start initializes the OTLP exporter and TracerProvider. Without an endpoint
// it leaves the global no-op provider in place.
func (o *Tracing) Start(ctx context.Context) error {
	if o.cfg.Endpoint == "" {
		o.logger.Info("OpenTelemetry tracing disabled (no endpoint configured)")
		return nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(o.cfg.Endpoint)}
	if o.cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(o.cfg.ServiceName),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	o.tracerProvider = tp

	o.logger.Info("OpenTelemetry tracing started", "endpoint", o.cfg.Endpoint, "service", o.cfg.ServiceName)
	return nil
}

// Stop shuts down the TracerProvider gracefully.
func (o *Tracing) Stop(ctx context.Context) error {
	if o.tracerProvider == nil {
		return nil
	}
	if err := o.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	o.logger.Info("OpenTelemetry tracing stopped")
	return nil
}
