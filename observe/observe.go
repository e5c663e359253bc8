package observe

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/tokengate/observe/exporters"
)

// Config holds all configuration for the Observer.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// TracingConfig configures the tracing subsystem.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // otlp|jaeger|stdout|none
	SamplePct float64 // 0.0-1.0
}

// MetricsConfig configures the metrics subsystem.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // otlp|prometheus|stdout|none
}

// LoggingConfig configures the logging subsystem.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.ServiceName == "":
		return ErrMissingServiceName
	case c.Tracing.Enabled && !validTracingExporters[c.Tracing.Exporter]:
		return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, c.Tracing.Exporter)
	case c.Tracing.Enabled && (c.Tracing.SamplePct < MinSamplePct || c.Tracing.SamplePct > MaxSamplePct):
		return fmt.Errorf("%w, got: %f", ErrInvalidSamplePct, c.Tracing.SamplePct)
	case c.Metrics.Enabled && !validMetricsExporters[c.Metrics.Exporter]:
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, c.Metrics.Exporter)
	case c.Logging.Enabled && !validLogLevels[c.Logging.Level]:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}
	return nil
}

// scrapeable reports whether metrics are served for pull-based collection.
func (c *Config) scrapeable() bool {
	return c.Metrics.Enabled && c.Metrics.Exporter == "prometheus"
}

// Telemetry is the subset of an Observer that request middleware needs.
type Telemetry interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger
}

// Observer owns the telemetry of one tokengate process: the raw OpenTelemetry
// tracer and meter, the structured logger, and the auth instruments built on
// top of them.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown should be idempotent and return every provider error.
type Observer interface {
	Telemetry

	// AuthMetrics returns the auth.* instruments registered on Meter.
	AuthMetrics() AuthMetrics

	// AuthTracer returns a Tracer for internal auth spans.
	AuthTracer() Tracer

	// MetricsHandler returns the scrape endpoint, or nil when the metrics
	// exporter is push-based or disabled.
	MetricsHandler() http.Handler

	// Shutdown flushes and stops all telemetry providers.
	Shutdown(ctx context.Context) error
}

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
// - Secrets: fields named password, secret, token, authorization, api_key
//   or credential are written as "[REDACTED]".
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

type observer struct {
	tracer  trace.Tracer
	meter   metric.Meter
	logger  Logger
	auth    AuthMetrics
	scrape  http.Handler
	tracing *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
}

// NewObserver builds the process telemetry. Disabled subsystems get no-op
// implementations so callers never nil-check.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer("noop"),
		meter:  metricnoop.NewMeterProvider().Meter("noop"),
		logger: NopLogger(),
	}

	if cfg.Tracing.Enabled {
		if obs.tracing, err = newTracerProvider(ctx, cfg, res); err != nil {
			return nil, err
		}
		obs.tracer = obs.tracing.Tracer(cfg.ServiceName)
	}

	if cfg.Metrics.Enabled {
		if obs.metrics, err = newMeterProvider(ctx, cfg, res); err != nil {
			_ = obs.Shutdown(ctx)
			return nil, err
		}
		obs.meter = obs.metrics.Meter(cfg.ServiceName)
	}
	if cfg.scrapeable() {
		obs.scrape = promhttp.Handler()
	}

	if obs.auth, err = NewAuthMetrics(obs.meter); err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("observe: auth instruments: %w", err)
	}

	if cfg.Logging.Enabled {
		obs.logger = NewLogger(cfg.Logging.Level).With(
			Field{Key: "service", Value: cfg.ServiceName},
			Field{Key: "version", Value: cfg.Version},
		)
	}

	return obs, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter)
	if err != nil {
		return nil, fmt.Errorf("observe: trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.Tracing.SamplePct >= MaxSamplePct:
		sampler = sdktrace.AlwaysSample()
	case cfg.Tracing.SamplePct <= MinSamplePct:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.Tracing.SamplePct)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter)
	if err != nil {
		return nil, fmt.Errorf("observe: metrics reader: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp, nil
}

func (o *observer) Tracer() trace.Tracer         { return o.tracer }
func (o *observer) Meter() metric.Meter          { return o.meter }
func (o *observer) Logger() Logger               { return o.logger }
func (o *observer) AuthMetrics() AuthMetrics     { return o.auth }
func (o *observer) AuthTracer() Tracer           { return NewTracer(o.tracer) }
func (o *observer) MetricsHandler() http.Handler { return o.scrape }

func (o *observer) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracing != nil {
		if err := o.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.metrics != nil {
		if err := o.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...Field)  {}
func (nopLogger) Warn(context.Context, string, ...Field)  {}
func (nopLogger) Error(context.Context, string, ...Field) {}
func (nopLogger) Debug(context.Context, string, ...Field) {}
func (l nopLogger) With(...Field) Logger                  { return l }
