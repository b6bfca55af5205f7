package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/storefront/backend/internal/bootstrap"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/migration"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to the config file (default: search ./config.toml)")
	migrate := flag.Bool("migrate", false, "Apply pending schema migrations before serving")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()
	providers, log, err := initTelemetry(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	log.Info("Starting catalog import service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	if gin.Mode() != gin.TestMode && cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack, err := bootstrap.Build(ctx, cfg, bootstrap.Options{
		Logger:        log,
		MeterProvider: providers.meter,
		LockFallback:  cfg.App.Env != "production",
	})
	if err != nil {
		log.Fatal("Failed to build import stack", zap.Error(err))
	}

	if *migrate {
		if err := applyMigrations(stack, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	engine, limiter, err := newHTTPEngine(cfg, stack, providers.meter, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down server", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if limiter != nil {
		limiter.Stop()
	}
	if err := stack.Close(shutdownCtx); err != nil {
		log.Error("Failed to release import stack", zap.Error(err))
	}
	providers.shutdown(shutdownCtx, log)

	log.Info("Server exited")
}

type telemetryProviders struct {
	tracer *telemetry.TracerProvider
	meter  *telemetry.MeterProvider
	logs   *telemetry.LoggerProvider
}

// initTelemetry starts the tracer, meter and log providers. When log export is
// enabled the returned logger also writes to the OTLP collector.
func initTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryProviders, *zap.Logger, error) {
	t := cfg.Telemetry
	collector := telemetry.Collector{
		Endpoint:       t.CollectorEndpoint,
		Insecure:       t.Insecure,
		ServiceName:    t.ServiceName,
		ServiceVersion: version,
	}
	p := &telemetryProviders{}

	var err error
	if p.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Collector: collector, Enabled: t.Enabled, SamplingRatio: t.SamplingRatio,
	}, log); err != nil {
		return nil, log, err
	}
	if p.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Collector: collector, Enabled: t.MetricsEnabled, ExportInterval: t.MetricsInterval,
	}, log); err != nil {
		return nil, log, err
	}
	if p.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Collector: collector, Enabled: t.LogsEnabled,
	}, log); err != nil {
		return nil, log, err
	}

	if p.logs.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    t.ServiceName,
			LoggerProvider: p.logs,
			Level:          logger.ParseLevel(t.LogsExportLevel),
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore,
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	}
	return p, log, nil
}

func (p *telemetryProviders) shutdown(ctx context.Context, log *zap.Logger) {
	if err := p.logs.Shutdown(ctx); err != nil {
		log.Warn("Failed to shutdown logger provider", zap.Error(err))
	}
	if err := p.meter.Shutdown(ctx); err != nil {
		log.Warn("Failed to shutdown meter provider", zap.Error(err))
	}
	if err := p.tracer.Shutdown(ctx); err != nil {
		log.Warn("Failed to shutdown tracer provider", zap.Error(err))
	}
}

func applyMigrations(stack *bootstrap.Stack, log *zap.Logger) error {
	sqlDB, err := stack.Database.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool.
	status, err := m.Up()
	if err != nil {
		return err
	}
	if status.Dirty {
		return errors.New("schema is dirty, fix it with catalogimport migrate force")
	}
	return nil
}

func newHTTPEngine(
	cfg *config.Config,
	stack *bootstrap.Stack,
	meter *telemetry.MeterProvider,
	log *zap.Logger,
) (*gin.Engine, *middleware.RateLimiter, error) {
	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.SkipPaths = append(tenantCfg.SkipPaths, "/system")
	if cfg.HTTP.DefaultTenantID != "" {
		id, err := uuid.Parse(cfg.HTTP.DefaultTenantID)
		if err != nil {
			return nil, nil, err
		}
		tenantCfg.DefaultTenantID = id
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		Tracing:        middleware.TracingConfig{ServiceName: cfg.Telemetry.ServiceName, Enabled: cfg.Telemetry.Enabled},
		CORS:           corsCfg,
		Tenant:         tenantCfg,
		MeterProvider:  meter,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		return nil, nil, err
	}

	checks := make(map[string]handler.HealthCheck)
	for name, check := range stack.Checks() {
		checks[name] = check
	}
	system := handler.NewSystemHandler(cfg.App.Name, version, checks)
	engine.GET("/health", system.Health)
	engine.GET("/api/v1/health", system.Health)
	engine.GET("/system/info", system.GetSystemInfo)

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	}

	middleware.SetupValidator()
	imports := router.NewImportRoutes(router.ImportHandlers{
		Imports:  handler.NewImportHandler(stack.Imports, cfg.Import.MaxFileSize),
		Profiles: handler.NewProfileHandler(stack.Profiles),
		History:  handler.NewHistoryHandler(stack.Histories),
	}, router.UploadGuards{
		MaxBodySize: cfg.HTTP.MaxBodySize,
		Limiter:     limiter,
	})
	router.Mount(engine, "v1", imports)

	log.Info("Routes registered",
		zap.Int("count", len(engine.Routes())),
		zap.Int("import_routes", imports.Count()),
	)
	return engine, limiter, nil
}
