// Package instrument wires OpenTelemetry tracing, metrics and logs, and
// installs the process slog logger on top of them.
package instrument

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Instrumentation exposes tracing and metrics providers for dependency injection.
type Instrumentation interface {
	Tracer(name string) trace.Tracer
	Meter(name string) metric.Meter
	Shutdown(ctx context.Context) error
}

type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	// OTLPEndpoint is the collector gRPC address, host:port.
	OTLPEndpoint string
	OTLPSecure   bool
	// TraceSampleRatio is clamped to [0, 1]; parent decisions win.
	TraceSampleRatio float64
	MetricsInterval  time.Duration
	// MaskFields lists log field names to mask in output, on top of the
	// credential fields that are always masked.
	MaskFields []string
	// LogLevel is a slog level name; empty or unknown means INFO.
	LogLevel string
}

type providers struct {
	tracer trace.TracerProvider
	meter  metric.MeterProvider
	// stop runs in reverse order on Shutdown.
	stop []func(context.Context) error
}

func (p *providers) Tracer(name string) trace.Tracer { return p.tracer.Tracer(name) }
func (p *providers) Meter(name string) metric.Meter  { return p.meter.Meter(name) }

// Shutdown flushes pending telemetry; the log provider goes last so the
// other providers can still log while stopping.
func (p *providers) Shutdown(ctx context.Context) error {
	var errs []error
	for _, stop := range slices.Backward(p.stop) {
		errs = append(errs, stop(ctx))
	}
	return errors.Join(errs...)
}

// NewNoop returns an Instrumentation that records nothing.
func NewNoop() Instrumentation {
	return &providers{tracer: tracenoop.NewTracerProvider(), meter: metricnoop.NewMeterProvider()}
}

// New installs the process logger and, when enabled, OTLP exporters for
// traces, metrics and logs registered as the otel globals. Logs go to
// stdout either way.
func New(ctx context.Context, cfg *Config) (Instrumentation, error) {
	if cfg == nil {
		return NewNoop(), nil
	}
	if !cfg.Enabled {
		slog.SetDefault(newLogger(os.Stdout, cfg, nil))
		return NewNoop(), nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("env", cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	p := &providers{}
	fail := func(err error) (Instrumentation, error) {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}

	logExporter, err := otlploggrpc.New(ctx, logOptions(cfg)...)
	if err != nil {
		return fail(err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	p.stop = append(p.stop, lp.Shutdown)

	traceExporter, err := otlptracegrpc.New(ctx, traceOptions(cfg)...)
	if err != nil {
		return fail(err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(min(max(cfg.TraceSampleRatio, 0), 1)))),
		sdktrace.WithBatcher(traceExporter),
	)
	p.tracer = tp
	p.stop = append(p.stop, tp.Shutdown)

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOptions(cfg)...)
	if err != nil {
		return fail(err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(cfg.MetricsInterval))),
	)
	p.meter = mp
	p.stop = append(p.stop, mp.Shutdown)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	slog.SetDefault(newLogger(os.Stdout, cfg, lp))

	return p, nil
}

func traceOptions(cfg *Config) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if !cfg.OTLPSecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts
}

func metricOptions(cfg *Config) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if !cfg.OTLPSecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return opts
}

func logOptions(cfg *Config) []otlploggrpc.Option {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if !cfg.OTLPSecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	return opts
}
