package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ImportMetrics records catalog import runs and row outcomes.
// It satisfies the run recorder the import event handlers report to.
type ImportMetrics struct {
	logger *zap.Logger

	runsTotal   *Counter
	rowsTotal   *Counter
	runDuration *Histogram
}

// ImportMetricsConfig holds configuration for import metrics.
type ImportMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewImportMetrics creates the import instruments on the given meter.
func NewImportMetrics(cfg ImportMetricsConfig) (*ImportMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	im := &ImportMetrics{logger: logger}

	var err error
	im.runsTotal, err = NewCounter(
		cfg.Meter,
		"storefront_import_runs_total",
		"Total number of finished catalog import runs",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	im.rowsTotal, err = NewCounter(
		cfg.Meter,
		"storefront_import_rows_total",
		"Total number of processed import rows by outcome",
		"{rows}",
	)
	if err != nil {
		return nil, err
	}

	im.runDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "storefront_import_run_duration_seconds",
		Description: "Wall time of catalog import runs",
		Unit:        "s",
		Boundaries:  ImportDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return im, nil
}

// RecordRun counts a finished run and records how long it took.
func (im *ImportMetrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	im.runsTotal.Inc(ctx, AttrImportStatus.String(status))
	if duration > 0 {
		im.runDuration.RecordDuration(ctx, duration, AttrImportStatus.String(status))
	}
}

// RecordRows adds count rows with the given outcome. Zero counts are ignored.
func (im *ImportMetrics) RecordRows(ctx context.Context, outcome string, count int64) {
	if count <= 0 {
		return
	}
	im.rowsTotal.Add(ctx, count, AttrImportOutcome.String(outcome))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewImportMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
