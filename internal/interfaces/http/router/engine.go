package router

import (
	"fmt"
	"time"

	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineConfig configures the global middleware stack
type EngineConfig struct {
	Logger         *zap.Logger
	Tracing        middleware.TracingConfig
	CORS           middleware.CORSConfig
	Tenant         middleware.TenantMiddlewareConfig
	MeterProvider  *telemetry.MeterProvider
	RequestTimeout time.Duration
	TrustedProxies []string
}

// NewEngine builds a gin engine with the middleware stack applied in order:
//  1. Recovery - catch panics
//  2. RequestID - generate/propagate request ID
//  3. Tracing - start the server span
//  4. Logger - log requests with request, trace and tenant fields
//  5. Secure - security headers
//  6. CORS - cross-origin requests
//  7. Timeout - bound the request context
//  8. HTTPMetrics - request counters and histograms
//  9. Tenant - resolve tenant and user
//  10. SpanEnricher - identity attributes on the server span
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	}

	tenantCfg := cfg.Tenant
	if tenantCfg.Logger == nil {
		tenantCfg.Logger = log
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Tracing))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	engine.Use(middleware.Timeout(cfg.RequestTimeout))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{MeterProvider: cfg.MeterProvider, Logger: log}))
	engine.Use(middleware.TenantMiddleware(tenantCfg))
	engine.Use(middleware.SpanEnricher())

	return engine, nil
}
