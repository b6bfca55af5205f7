package telemetry

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig tunes statement and connection pool metrics.
type DBMetricsConfig struct {
	Enabled bool
	// SlowQueryThreshold counts statements slower than this in db_slow_query_total. Default 200ms.
	SlowQueryThreshold time.Duration
}

const defaultSlowQueryThreshold = 200 * time.Millisecond

// DBMetrics records per-statement counters. Pool gauges are observed at
// collection time once ObservePool is called.
type DBMetrics struct {
	queries  *Counter
	failures *Counter
	slow     *Counter
	latency  *Histogram

	meter     metric.Meter
	pool      metric.Int64ObservableGauge
	poolLimit metric.Int64ObservableGauge

	slowAfter time.Duration
	logger    *zap.Logger

	mu           sync.Mutex
	registration metric.Registration
}

func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &DBMetrics{
		meter:     meter,
		slowAfter: cfg.SlowQueryThreshold,
		logger:    logger,
	}
	if m.slowAfter <= 0 {
		m.slowAfter = defaultSlowQueryThreshold
	}

	var err error
	if m.queries, err = NewCounter(meter, "db_query_total", "Database statements by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.failures, err = NewCounter(meter, "db_query_errors_total", "Failed database statements by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.slow, err = NewCounter(meter, "db_slow_query_total", "Statements over the slow query threshold, by table", "{query}"); err != nil {
		return nil, err
	}
	if m.latency, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.pool, err = meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"), metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	if m.poolLimit, err = meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open pool connections"), metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	return m, nil
}

// ObservePool reports sqlDB's connection stats on every collection until
// Stop. A second call replaces the observed pool.
func (m *DBMetrics) ObservePool(sqlDB *sql.DB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.unregister(); err != nil {
		return err
	}
	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(m.poolLimit, int64(stats.MaxOpenConnections))
		for state, n := range map[string]int{
			"idle":   stats.Idle,
			"in_use": stats.InUse,
			"open":   stats.OpenConnections,
		} {
			o.ObserveInt64(m.pool, int64(n), metric.WithAttributes(AttrDBState.String(state)))
		}
		return nil
	}, m.pool, m.poolLimit)
	if err != nil {
		return err
	}
	m.registration = reg
	m.logger.Debug("Observing connection pool")
	return nil
}

// Stop ends pool observation. Safe to call more than once.
func (m *DBMetrics) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unregister()
}

func (m *DBMetrics) unregister() error {
	if m.registration == nil {
		return nil
	}
	err := m.registration.Unregister()
	m.registration = nil
	return err
}

// RecordQuery counts one statement. gorm.ErrRecordNotFound is a lookup miss,
// not a failure.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, took time.Duration, err error) {
	op := AttrDBOperation.String(cmp.Or(strings.ToUpper(operation), "UNKNOWN"))

	m.queries.Inc(ctx, op)
	m.latency.RecordDuration(ctx, took, op)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.failures.Inc(ctx, op)
	}
	if took > m.slowAfter {
		m.slow.Inc(ctx, AttrDBTable.String(cmp.Or(table, "unknown")))
	}
}

// DBMetricsPlugin feeds every gorm statement into DBMetrics.
type DBMetricsPlugin struct {
	metrics *DBMetrics
}

func NewDBMetricsPlugin(metrics *DBMetrics) *DBMetricsPlugin {
	return &DBMetricsPlugin{metrics: metrics}
}

func (p *DBMetricsPlugin) Name() string { return "db_metrics" }

func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	return registerTimingCallbacks(db, "db_metrics", markQueryStart, p.after)
}

func (p *DBMetricsPlugin) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var took time.Duration
	if start, ok := queryStarted(ctx); ok {
		took = time.Since(start)
	}
	p.metrics.RecordQuery(ctx, statementVerb(db.Statement.SQL.String()), db.Statement.Table, took, db.Error)
}

// statementVerb buckets a statement by its leading keyword.
func statementVerb(query string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(query), " ")
	switch verb = strings.ToUpper(verb); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return verb
	default:
		return "OTHER"
	}
}

// RegisterDBMetrics installs the metrics plugin on db and observes its pool.
// It returns nil when metrics are off or no meter is exported; otherwise the
// caller must Stop the result on shutdown.
func RegisterDBMetrics(db *gorm.DB, mp *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || mp == nil || !mp.IsEnabled() {
		logger.Debug("Database metrics not registered")
		return nil, nil
	}

	metrics, err := NewDBMetrics(mp.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := db.Use(NewDBMetricsPlugin(metrics)); err != nil {
		return nil, err
	}
	if err := metrics.ObservePool(sqlDB); err != nil {
		return nil, err
	}
	logger.Info("Database metrics registered", zap.Duration("slow_query_threshold", metrics.slowAfter))
	return metrics, nil
}
