package middleware

import (
	"time"

	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HTTPMetricsConfig selects the meter for HTTPMetrics. Meter wins over
// MeterProvider; with neither, or a disabled provider, the middleware is a no-op.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Meter         metric.Meter
	Logger        *zap.Logger
}

func (cfg HTTPMetricsConfig) meter() metric.Meter {
	switch {
	case cfg.Meter != nil:
		return cfg.Meter
	case cfg.MeterProvider != nil && cfg.MeterProvider.IsEnabled():
		return cfg.MeterProvider.Meter("http.server")
	}
	return nil
}

// Upload sizes, from a handful of rows to the largest accepted file.
var requestSizeBuckets = []float64{1 << 10, 16 << 10, 128 << 10, 1 << 20, 4 << 20, 16 << 20, 32 << 20}

type httpInstruments struct {
	requests *telemetry.Counter
	latency  *telemetry.Histogram
	size     *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in  httpInstruments
		err error
	)
	if in.requests, err = telemetry.NewCounter(meter, "http_server_request_total", "HTTP requests served", "{request}"); err != nil {
		return nil, err
	}
	if in.latency, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if in.size, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "Declared HTTP request body size",
		Unit:        "By",
		Boundaries:  requestSizeBuckets,
	}); err != nil {
		return nil, err
	}
	if in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics counts requests by route pattern, status and tenant, and records
// latency and upload size by method and route only.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	meter := cfg.meter()
	if meter == nil {
		return passThrough
	}
	in, err := newHTTPInstruments(meter)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		in.inFlight.Add(ctx, 1)
		c.Next()
		in.inFlight.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		base := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		in.latency.RecordDuration(ctx, time.Since(start), base...)
		if n := c.Request.ContentLength; n > 0 {
			in.size.Record(ctx, float64(n), base...)
		}

		full := append(base[:len(base):len(base)], telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))
		if tenant := GetTenantID(c); tenant != "" {
			full = append(full, telemetry.AttrTenantID.String(tenant))
		}
		in.requests.Inc(ctx, full...)
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}
