// Package otelinit wires OpenTelemetry metrics and tracing for the
// pipeline, grounded on the teacher's internal/otel package but
// narrowed to the two exporters this spec needs: "none" (no-op) and
// "stdout" (process-local debugging output). There is no remote OTLP
// collector in scope, so the OTLP exporter variants and their gRPC/HTTP
// options are dropped rather than carried as dead configuration.
package otelinit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	stdoutmetricexp "go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	stdouttraceexp "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Exporter selects where metrics/traces are written.
type Exporter string

const (
	ExporterNone   Exporter = "none"
	ExporterStdout Exporter = "stdout"
)

// Config controls telemetry setup for one pipeline run.
type Config struct {
	ServiceName string
	Exporter    Exporter
}

func (c Config) withDefaults() Config {
	if c.ServiceName == "" {
		c.ServiceName = "agentsight"
	}
	if c.Exporter == "" {
		c.Exporter = ExporterNone
	}
	return c
}

// Telemetry bundles the meter and tracer this pipeline run uses, plus
// the filter/logstore/system counter instruments. No component records
// to those counters; the subscriber gauge from RegisterSubscriberGauge
// is the only instrument that reports values.
type Telemetry struct {
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	FilterEvaluated metric.Int64Counter
	FilterPassed    metric.Int64Counter
	FilterDropped   metric.Int64Counter
	LogWritten      metric.Int64Counter
	LogDropped      metric.Int64Counter
	SystemSamples   metric.Int64Counter

	meter metric.Meter
}

// New builds a Telemetry bundle for cfg, registering the counter
// instruments listed on Telemetry.
func New(ctx context.Context, cfg Config) (*Telemetry, error) {
	cfg = cfg.withDefaults()

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("building otel resource: %w", err)
	}

	mp, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	tp, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}

	t := &Telemetry{
		meterProvider:  mp,
		tracerProvider: tp,
		tracer:         tp.Tracer(cfg.ServiceName),
	}
	if err := t.registerInstruments(); err != nil {
		return nil, err
	}
	return t, nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	if cfg.Exporter != ExporterStdout {
		return sdkmetric.NewMeterProvider(sdkmetric.WithResource(res)), nil
	}
	exp, err := stdoutmetricexp.New()
	if err != nil {
		return nil, fmt.Errorf("creating stdout metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
	), nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	if cfg.Exporter != ExporterStdout {
		return sdktrace.NewTracerProvider(sdktrace.WithResource(res)), nil
	}
	exp, err := stdouttraceexp.New()
	if err != nil {
		return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
	), nil
}

func (t *Telemetry) registerInstruments() error {
	meter := t.meterProvider.Meter("agentsight")
	t.meter = meter
	var err error

	t.FilterEvaluated, err = meter.Int64Counter("agentsight.filter.evaluated", metric.WithDescription("events evaluated by a filter analyzer"))
	if err != nil {
		return err
	}
	t.FilterPassed, err = meter.Int64Counter("agentsight.filter.passed", metric.WithDescription("events passed by a filter analyzer"))
	if err != nil {
		return err
	}
	t.FilterDropped, err = meter.Int64Counter("agentsight.filter.dropped", metric.WithDescription("events dropped by a filter analyzer"))
	if err != nil {
		return err
	}
	t.LogWritten, err = meter.Int64Counter("agentsight.logstore.written", metric.WithDescription("events written to the rotating log file"))
	if err != nil {
		return err
	}
	t.LogDropped, err = meter.Int64Counter("agentsight.logstore.dropped", metric.WithDescription("events dropped by the log writer"))
	if err != nil {
		return err
	}
	t.SystemSamples, err = meter.Int64Counter("agentsight.system.samples", metric.WithDescription("system-metrics samples emitted"))
	if err != nil {
		return err
	}
	return nil
}

// RegisterSubscriberGauge wires an observable gauge that reports the
// live C15 broadcast subscriber count on each collection, read via the
// given callback rather than an import of internal/broadcast (keeping
// this package decoupled from the server's dependency graph).
func (t *Telemetry) RegisterSubscriberGauge(read func() int64) error {
	gauge, err := t.meter.Int64ObservableGauge(
		"agentsight.broadcast.subscribers",
		metric.WithDescription("live SSE subscriber count on the broadcast ring"),
	)
	if err != nil {
		return err
	}
	_, err = t.meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, read())
		return nil
	}, gauge)
	return err
}

// Tracer returns the tracer every traced component should use.
func (t *Telemetry) Tracer() trace.Tracer { return t.tracer }

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		return err
	}
	return t.meterProvider.Shutdown(ctx)
}

// Noop returns a Telemetry bundle wired to no-op providers, for
// components run without an explicit telemetry configuration.
func Noop() *Telemetry {
	t, err := New(context.Background(), Config{Exporter: ExporterNone})
	if err != nil {
		// The no-op provider path performs no I/O and cannot fail in
		// practice; a panic here would indicate a logic bug above.
		panic(err)
	}
	return t
}
