package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// The gRPC exporters dial lazily, so enabled providers build without a collector.
const unreachableCollector = "localhost:19998"

func testCollector() Collector {
	return Collector{Endpoint: unreachableCollector, Insecure: true, ServiceName: "storefront-test"}
}

func TestExporterOptions(t *testing.T) {
	endpoint := func(e string) string { return "endpoint=" + e }
	insecure := func() string { return "insecure" }

	assert.Equal(t, []string{"endpoint=otel:4317"},
		exporterOptions(Collector{Endpoint: "otel:4317"}, endpoint, insecure))
	assert.Equal(t, []string{"endpoint=otel:4317", "insecure"},
		exporterOptions(Collector{Endpoint: "otel:4317", Insecure: true}, endpoint, insecure))
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := NewTracerProvider(ctx, Config{Collector: Collector{ServiceName: "storefront-test"}, SamplingRatio: 1}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.Equal(t, "storefront-test", tp.GetConfig().ServiceName)
	assert.NotNil(t, tp.Tracer("test"))

	mp, err := NewMeterProvider(ctx, MetricsConfig{Collector: Collector{ServiceName: "storefront-test"}}, nil)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))

	lp, err := NewLoggerProvider(ctx, LogsConfig{}, nil)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.Nil(t, lp.GetLoggerProvider())

	for _, l := range []*lifecycle{&tp.lifecycle, &mp.lifecycle, &lp.lifecycle} {
		assert.NoError(t, l.ForceFlush(ctx))
		assert.NoError(t, l.Shutdown(ctx))
	}
}

func TestProviders_Enabled(t *testing.T) {
	ctx := context.Background()
	prevTracer, prevMeter := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
	})

	// Sampling ratio 0 keeps the batcher empty, so shutdown has nothing to send.
	collector := testCollector()
	collector.ServiceVersion = "1.2.3"
	tp, err := NewTracerProvider(ctx, Config{Collector: collector, Enabled: true, SamplingRatio: 0}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())
	_, span := tp.Tracer("test").Start(ctx, "import.run")
	assert.False(t, span.IsRecording())
	span.End()

	mp, err := NewMeterProvider(ctx, MetricsConfig{Collector: testCollector(), Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())

	lp := enabledLogsProvider(t)
	assert.NotNil(t, lp.GetLoggerProvider())

	// Shutdown clears the SDK handle, so a second call is a no-op.
	require.NoError(t, tp.Shutdown(ctx))
	assert.NoError(t, tp.Shutdown(ctx))

	// The final metric collection would dial the collector; a cancelled
	// context ends it at once.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_ = mp.Shutdown(cancelled)
}

func enabledLogsProvider(t *testing.T) *LoggerProvider {
	t.Helper()
	ctx := context.Background()
	lp, err := NewLoggerProvider(ctx, LogsConfig{Collector: testCollector(), Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	require.True(t, lp.IsEnabled())
	t.Cleanup(func() { _ = lp.Shutdown(ctx) })
	return lp
}

func TestSamplerFor(t *testing.T) {
	cases := map[float64]string{
		1.0:  "AlwaysOnSampler",
		2.0:  "AlwaysOnSampler",
		0.0:  "AlwaysOffSampler",
		-1:   "AlwaysOffSampler",
		0.25: "TraceIDRatioBased",
	}
	for ratio, want := range cases {
		desc := samplerFor(ratio).Description()
		assert.True(t, strings.HasPrefix(desc, want), "ratio %v gave %s", ratio, desc)
	}
}

func TestServiceVersion(t *testing.T) {
	assert.Equal(t, "dev", serviceVersion(""))
	assert.Equal(t, "2.0.0", serviceVersion("2.0.0"))
}

func TestNewZapOTELCore(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		assert.False(t, NewZapOTELCore(ZapBridgeConfig{ServiceName: "x"}).Enabled(zapcore.ErrorLevel))
	})

	lp := enabledLogsProvider(t)

	t.Run("debug exports everything", func(t *testing.T) {
		core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "svc", LoggerProvider: lp, Level: zapcore.DebugLevel})
		_, filtered := core.(minLevelCore)
		assert.False(t, filtered)
		assert.True(t, core.Enabled(zapcore.DebugLevel))
	})

	t.Run("warn filters info", func(t *testing.T) {
		core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "svc", LoggerProvider: lp, Level: zapcore.WarnLevel})
		_, filtered := core.(minLevelCore)
		assert.True(t, filtered)
		assert.False(t, core.Enabled(zapcore.InfoLevel))
		assert.True(t, core.Enabled(zapcore.ErrorLevel))
	})
}

func jsonCore(buf *bytes.Buffer) zapcore.Core {
	return zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(buf), zapcore.DebugLevel)
}

func TestMinLevelCore_KeepsFieldsAndFilters(t *testing.T) {
	var buf bytes.Buffer
	core := minLevelCore{Core: jsonCore(&buf), level: zapcore.WarnLevel}

	log := zap.New(core.With([]zapcore.Field{zap.String("component", "import")}))
	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, `"component":"import"`)
}

func TestNewBridgedLogger_WritesToBothCores(t *testing.T) {
	var console, exported bytes.Buffer
	log := NewBridgedLogger(jsonCore(&console), jsonCore(&exported))
	log.Info("import completed", zap.Int("rows", 12))

	assert.Contains(t, console.String(), `"rows":12`)
	assert.Contains(t, exported.String(), "import completed")
}
