// Package telemetry exports traces, metrics and logs of the import service
// over OTLP/gRPC and provides the span and instrument helpers used around it.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	shutdownTimeout       = 10 * time.Second
	defaultExportInterval = 60 * time.Second
)

// Collector names the OTLP endpoint and the service resource every signal
// exports under.
type Collector struct {
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
}

func (c Collector) resource() (*resource.Resource, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(serviceVersion(c.ServiceVersion)),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

// exporterOptions builds the endpoint options shared by the three OTLP/gRPC exporters.
func exporterOptions[O any](c Collector, endpoint func(string) O, insecure func() O) []O {
	opts := []O{endpoint(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, insecure())
	}
	return opts
}

type Config struct {
	Collector
	Enabled       bool
	SamplingRatio float64
}

// MetricsConfig exports every ExportInterval, 60s when unset.
type MetricsConfig struct {
	Collector
	Enabled        bool
	ExportInterval time.Duration
}

type LogsConfig struct {
	Collector
	Enabled bool
}

// sdkProvider is the part of the three SDK providers the lifecycle needs.
type sdkProvider interface {
	Shutdown(ctx context.Context) error
	ForceFlush(ctx context.Context) error
}

// lifecycle flushes and stops one signal's SDK provider. A nil sdk means the
// signal is disabled and every call is a no-op.
type lifecycle struct {
	signal string
	sdk    sdkProvider
	logger *zap.Logger
}

func newLifecycle(signal string, logger *zap.Logger) lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return lifecycle{signal: signal, logger: logger.Named("telemetry").With(zap.String("signal", signal))}
}

// Shutdown flushes pending data and stops the exporter. Safe to call twice.
func (l *lifecycle) Shutdown(ctx context.Context) error {
	if l.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := l.sdk.Shutdown(ctx)
	l.sdk = nil
	if err != nil {
		l.logger.Error("Telemetry shutdown failed", zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", l.signal, err)
	}
	l.logger.Info("Telemetry provider stopped")
	return nil
}

// ForceFlush exports everything buffered so far.
func (l *lifecycle) ForceFlush(ctx context.Context) error {
	if l.sdk == nil {
		return nil
	}
	return l.sdk.ForceFlush(ctx)
}

func serviceVersion(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}

// TracerProvider owns the OTLP trace pipeline.
type TracerProvider struct {
	lifecycle
	provider *sdktrace.TracerProvider
	config   Config
}

// NewTracerProvider installs a batching OTLP tracer as the global provider.
// Disabled tracing leaves the global no-op tracer in place.
func NewTracerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*TracerProvider, error) {
	tp := &TracerProvider{lifecycle: newLifecycle("traces", logger), config: cfg}
	if !cfg.Enabled {
		tp.logger.Info("Tracing disabled")
		return tp, nil
	}

	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}
	exporter, err := otlptracegrpc.New(ctx,
		exporterOptions(cfg.Collector, otlptracegrpc.WithEndpoint, otlptracegrpc.WithInsecure)...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}

	tp.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(samplerFor(cfg.SamplingRatio))),
	)
	tp.sdk = tp.provider
	otel.SetTracerProvider(tp.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tp.logger.Info("Tracing enabled",
		zap.String("collector_endpoint", cfg.Endpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
	)
	return tp, nil
}

// Tracer returns a named tracer, falling back to the global provider.
func (tp *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if tp.provider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return tp.provider.Tracer(name, opts...)
}

func (tp *TracerProvider) IsEnabled() bool   { return tp.config.Enabled && tp.provider != nil }
func (tp *TracerProvider) GetConfig() Config { return tp.config }

func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.AlwaysSample()
	case ratio <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// MeterProvider owns the OTLP metric pipeline.
type MeterProvider struct {
	lifecycle
	provider *sdkmetric.MeterProvider
	config   MetricsConfig
}

// NewMeterProvider installs a periodic OTLP metric reader as the global provider.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{lifecycle: newLifecycle("metrics", logger), config: cfg}
	if !cfg.Enabled {
		mp.logger.Info("Metrics disabled")
		return mp, nil
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}
	exporter, err := otlpmetricgrpc.New(ctx,
		exporterOptions(cfg.Collector, otlpmetricgrpc.WithEndpoint, otlpmetricgrpc.WithInsecure)...)
	if err != nil {
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	mp.sdk = mp.provider
	otel.SetMeterProvider(mp.provider)

	mp.logger.Info("Metrics enabled",
		zap.String("collector_endpoint", cfg.Endpoint),
		zap.Duration("export_interval", interval),
	)
	return mp, nil
}

// Meter returns a named meter, falling back to the global provider.
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

func (mp *MeterProvider) IsEnabled() bool          { return mp.config.Enabled && mp.provider != nil }
func (mp *MeterProvider) GetConfig() MetricsConfig { return mp.config }

// LoggerProvider owns the OTLP log pipeline that the zap bridge writes into.
type LoggerProvider struct {
	lifecycle
	provider *sdklog.LoggerProvider
	config   LogsConfig
}

// NewLoggerProvider installs a batching OTLP log exporter as the global provider.
func NewLoggerProvider(ctx context.Context, cfg LogsConfig, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{lifecycle: newLifecycle("logs", logger), config: cfg}
	if !cfg.Enabled {
		lp.logger.Info("Log export disabled")
		return lp, nil
	}

	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}
	exporter, err := otlploggrpc.New(ctx,
		exporterOptions(cfg.Collector, otlploggrpc.WithEndpoint, otlploggrpc.WithInsecure)...)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}

	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	lp.sdk = lp.provider
	global.SetLoggerProvider(lp.provider)

	lp.logger.Info("Log export enabled", zap.String("collector_endpoint", cfg.Endpoint))
	return lp, nil
}

func (lp *LoggerProvider) IsEnabled() bool       { return lp.config.Enabled && lp.provider != nil }
func (lp *LoggerProvider) GetConfig() LogsConfig { return lp.config }

// GetLoggerProvider returns the SDK provider, nil when export is disabled.
func (lp *LoggerProvider) GetLoggerProvider() *sdklog.LoggerProvider { return lp.provider }
