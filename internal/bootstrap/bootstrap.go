// Package bootstrap assembles the import stack from configuration. The HTTP
// server and the catalogimport CLI share it so both run imports with the same
// repositories, locks, transformer and event handlers.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	importapp "github.com/storefront/backend/internal/application/import"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	csvimport "github.com/storefront/backend/internal/infrastructure/import"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/storage"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Options tune Build for the calling binary.
type Options struct {
	Logger        *zap.Logger
	MeterProvider *telemetry.MeterProvider
	// Locker replaces the configured SKU lock backend.
	Locker importapp.SKULocker
	// LockFallback lets an unreachable Redis degrade to in-process locks.
	LockFallback bool
}

// Stack is a fully wired import pipeline.
type Stack struct {
	Database  *persistence.Database
	Imports   *importapp.ImportService
	Profiles  *importapp.ProfileService
	Histories *importapp.HistoryService
	EventBus  *event.InMemoryEventBus

	locker  importapp.SKULocker
	logger  *zap.Logger
	closers []func() error
}

// Build connects to the database and wires the import services. On error
// everything opened so far is closed again.
func Build(ctx context.Context, cfg *config.Config, opts Options) (stack *Stack, err error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Stack{logger: log}
	defer func() {
		if err != nil {
			_ = s.Close(context.Background())
		}
	}()

	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithTracing(tracing),
	)
	if err != nil {
		return nil, err
	}
	s.Database = db
	s.closers = append(s.closers, db.Close)
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)

	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, opts.MeterProvider, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.MetricsEnabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("database metrics: %w", err)
	}
	if dbMetrics != nil {
		s.closers = append(s.closers, dbMetrics.Stop)
	}

	locker := opts.Locker
	if locker == nil {
		factory := cache.NewSKULockerFactory(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			LockTTL:  cfg.Redis.LockTTL,
		}, cache.WithLogger(log), cache.WithInMemoryFallback(opts.LockFallback))
		created, err := factory.Create(cfg.Import.LockBackend)
		if err != nil {
			return nil, fmt.Errorf("sku locker: %w", err)
		}
		s.closers = append(s.closers, created.Close)
		locker = created
	}

	s.locker = locker

	files, err := storage.Open(ctx, &cfg.Storage, cfg.Import.MaxFileSize, log)
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}

	transformer, err := NewTransformer(cfg.Import)
	if err != nil {
		return nil, err
	}

	bus, err := newEventBus(ctx, opts.MeterProvider, log)
	if err != nil {
		return nil, err
	}
	s.EventBus = bus
	s.closers = append(s.closers, func() error { return bus.Stop(context.Background()) })

	profiles := persistence.NewGormImportProfileRepository(db.DB)
	histories := persistence.NewGormImportHistoryRepository(db.DB)
	products := persistence.NewGormProductRepository(db.DB)

	serviceOpts := []importapp.ServiceOption{
		importapp.WithEventPublisher(bus),
		importapp.WithSKULocker(locker),
		importapp.WithTransformer(transformer),
		importapp.WithConfig(importapp.Config{
			MaxFileSize:  cfg.Import.MaxFileSize,
			PreviewLimit: cfg.Import.PreviewLimit,
			MaxErrors:    cfg.Import.MaxErrors,
		}),
		importapp.WithLogger(log),
	}
	if files != nil {
		serviceOpts = append(serviceOpts, importapp.WithFileSource(files))
	}

	s.Imports = importapp.NewImportService(profiles, histories, products, serviceOpts...)
	s.Profiles = importapp.NewProfileService(profiles)
	s.Histories = importapp.NewHistoryService(histories)
	return s, nil
}

// NewTransformer builds the transformer for the configured default currency and pinned rates.
func NewTransformer(cfg config.ImportConfig) (*csvimport.Transformer, error) {
	opts := []csvimport.TransformerOption{csvimport.WithDefaultCurrency(cfg.DefaultCurrency)}
	if len(cfg.CurrencyRates) > 0 {
		converter, err := csvimport.NewPinnedRateConverter(cfg.CurrencyRates)
		if err != nil {
			return nil, fmt.Errorf("import.currency_rates: %w", err)
		}
		opts = append(opts, csvimport.WithCurrencyConverter(converter))
	}
	return csvimport.NewTransformer(opts...), nil
}

// newEventBus subscribes the audit trail and, when metrics are exported,
// the run counters.
func newEventBus(ctx context.Context, mp *telemetry.MeterProvider, log *zap.Logger) (*event.InMemoryEventBus, error) {
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditLogHandler(event.NewImportEventCodec(), log))

	if mp != nil && mp.IsEnabled() {
		metrics, err := telemetry.NewImportMetrics(telemetry.ImportMetricsConfig{
			Meter:  mp.Meter("catalog.import"),
			Logger: log,
		})
		if err != nil {
			return nil, fmt.Errorf("import metrics: %w", err)
		}
		bus.Subscribe(importapp.NewMetricsHandler(metrics))
	}

	if err := bus.Start(ctx); err != nil {
		return nil, err
	}
	return bus, nil
}

// Checks returns the dependency checks for the health endpoint: the
// database always, Redis when it backs the SKU locks.
func (s *Stack) Checks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"database": func(ctx context.Context) error { return s.Database.Ping(ctx) },
	}
	if p, ok := s.locker.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = p.Ping
	}
	return checks
}

// Close releases resources in reverse order of acquisition.
func (s *Stack) Close(context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("Error releasing import stack", zap.Error(err))
		return err
	}
	return nil
}
