package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound variables in span statements. Development only.
	LogFullSQL      bool
	SlowQueryThresh time.Duration
	DBSystem        string
}

func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin installs otelgorm and flags slow or failed statements on
// the span that issued them.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultDBTracingConfig()
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaults.SlowQueryThresh
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = defaults.DBSystem
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

func (p *DBTracingPlugin) Config() DBTracingConfig {
	return p.config
}

// RegisterOtelGorm is a no-op when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	threshold := p.config.SlowQueryThresh
	if err := registerTimingCallbacks(db, "otel_timing", markQueryStart, func(tx *gorm.DB) {
		annotateSpan(tx, threshold)
	}); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", threshold),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// annotateSpan adds rows, table, error status and a slow query event to the
// span in the statement context.
func annotateSpan(db *gorm.DB, slowThresh time.Duration) {
	stmt := db.Statement
	if stmt.Context == nil {
		return
	}
	span := trace.SpanFromContext(stmt.Context)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, 4)
	if stmt.RowsAffected >= 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", stmt.RowsAffected))
	}
	if stmt.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", stmt.Table))
	}
	if start, ok := queryStarted(stmt.Context); ok {
		if took := time.Since(start); took > slowThresh {
			attrs = append(attrs,
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", took.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", took.Milliseconds()),
				attribute.Int64("threshold_ms", slowThresh.Milliseconds()),
			))
		}
	}
	span.SetAttributes(attrs...)

	// A missing SKU is the normal reconciliation path.
	if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
}

type queryStartKey struct{}

// WithQueryStartTime stamps ctx with the current time as the statement start.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartKey{}, time.Now())
}

func queryStarted(ctx context.Context) (time.Time, bool) {
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	return start, ok
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context == nil {
		db.Statement.Context = context.Background()
	}
	db.Statement.Context = WithQueryStartTime(db.Statement.Context)
}

// registerTimingCallbacks hooks before and after every statement kind GORM
// runs, as <prefix>:before_<kind> and <prefix>:after_<kind>. Nil hooks are skipped.
func registerTimingCallbacks(db *gorm.DB, prefix string, before, after func(*gorm.DB)) error {
	type register func(name string, fn func(*gorm.DB)) error
	cb := db.Callback()
	var errs []error
	wrap := func(kind string, pre, post register) {
		if before != nil {
			errs = append(errs, pre(prefix+":before_"+kind, before))
		}
		if after != nil {
			errs = append(errs, post(prefix+":after_"+kind, after))
		}
	}
	wrap("create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register)
	wrap("query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register)
	wrap("update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register)
	wrap("delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register)
	wrap("row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register)
	wrap("raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register)
	return errors.Join(errs...)
}
