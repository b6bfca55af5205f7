package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedProduct struct {
	ID   uint   `gorm:"primaryKey"`
	SKU  string `gorm:"size:100"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedProduct{}))
	return db
}

func setupSpanRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestNewDBTracingPlugin_FillsDefaults(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, nil)

	assert.Equal(t, 200*time.Millisecond, p.Config().SlowQueryThresh)
	assert.Equal(t, "postgresql", p.Config().DBSystem)
	assert.NotNil(t, p.logger)
}

func TestDBTracingPlugin_RegisterOtelGorm_Disabled(t *testing.T) {
	db := setupTestDB(t)
	p := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	require.NoError(t, p.RegisterOtelGorm(db))
	assert.Nil(t, db.Callback().Query().Get("otel_timing:after_query"))
}

func TestDBTracingPlugin_RegisterOtelGorm_Enabled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	db := setupTestDB(t)
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"

	p := NewDBTracingPlugin(cfg, zap.New(core))
	require.NoError(t, p.RegisterOtelGorm(db))

	for _, name := range []string{"otel_timing:before_query", "otel_timing:after_query"} {
		assert.NotNil(t, db.Callback().Query().Get(name), name)
	}
	assert.NotNil(t, db.Callback().Create().Get("otel_timing:after_create"))
	assert.NotNil(t, db.Callback().Raw().Get("otel_timing:before_raw"))

	entries := logs.FilterMessage("Database tracing enabled").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "sqlite", entries[0].ContextMap()["db_system"])

	var products []tracedProduct
	assert.NoError(t, db.WithContext(context.Background()).Find(&products).Error)
}

func TestAnnotateSpan_RowsTableAndSlowQuery(t *testing.T) {
	tp, recorder := setupSpanRecorder(t)
	db := setupTestDB(t)
	require.NoError(t, registerTimingCallbacks(db, "test_timing", markQueryStart, func(tx *gorm.DB) {
		annotateSpan(tx, 0)
	}))

	ctx, span := tp.Tracer("test").Start(context.Background(), "import.row")
	require.NoError(t, db.WithContext(ctx).Create(&tracedProduct{SKU: "SKU-1", Name: "Lamp"}).Error)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := spanAttrs(ended[0])
	assert.Equal(t, int64(1), attrs["db.rows_affected"].AsInt64())
	assert.Equal(t, "traced_products", attrs["db.sql.table"].AsString())
	assert.True(t, attrs["db.slow_query"].AsBool())

	var sawSlowEvent bool
	for _, ev := range ended[0].Events() {
		if ev.Name == "slow_query_warning" {
			sawSlowEvent = true
		}
	}
	assert.True(t, sawSlowEvent)
}

func TestAnnotateSpan_FastQueryNotFlagged(t *testing.T) {
	tp, recorder := setupSpanRecorder(t)
	db := setupTestDB(t)
	require.NoError(t, registerTimingCallbacks(db, "test_timing", markQueryStart, func(tx *gorm.DB) {
		annotateSpan(tx, time.Hour)
	}))

	ctx, span := tp.Tracer("test").Start(context.Background(), "import.row")
	var products []tracedProduct
	require.NoError(t, db.WithContext(ctx).Find(&products).Error)
	span.End()

	attrs := spanAttrs(recorder.Ended()[0])
	_, flagged := attrs["db.slow_query"]
	assert.False(t, flagged)
	assert.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}

func TestAnnotateSpan_RecordNotFoundIsNotAnError(t *testing.T) {
	tp, recorder := setupSpanRecorder(t)
	db := setupTestDB(t)
	require.NoError(t, registerTimingCallbacks(db, "test_timing", nil, func(tx *gorm.DB) {
		annotateSpan(tx, time.Hour)
	}))

	ctx, span := tp.Tracer("test").Start(context.Background(), "lookup")
	var p tracedProduct
	err := db.WithContext(ctx).Where("sku = ?", "missing").First(&p).Error
	span.End()

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}

func TestAnnotateSpan_ErrorMarksSpan(t *testing.T) {
	tp, recorder := setupSpanRecorder(t)
	db := setupTestDB(t)
	require.NoError(t, registerTimingCallbacks(db, "test_timing", nil, func(tx *gorm.DB) {
		annotateSpan(tx, time.Hour)
	}))

	ctx, span := tp.Tracer("test").Start(context.Background(), "broken")
	err := db.WithContext(ctx).Exec("SELECT * FROM no_such_table").Error
	span.End()

	require.Error(t, err)
	ended := recorder.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	require.NotEmpty(t, ended.Events())
	assert.Equal(t, "exception", ended.Events()[0].Name)
}

func TestAnnotateSpan_NonRecordingSpan(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, registerTimingCallbacks(db, "test_timing", markQueryStart, func(tx *gorm.DB) {
		annotateSpan(tx, 0)
	}))

	var products []tracedProduct
	assert.NotPanics(t, func() {
		require.NoError(t, db.WithContext(context.Background()).Find(&products).Error)
	})
}

func TestRegisterTimingCallbacks_SkipsNilHooks(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, registerTimingCallbacks(db, "only_after", nil, func(*gorm.DB) {}))

	assert.Nil(t, db.Callback().Update().Get("only_after:before_update"))
	assert.NotNil(t, db.Callback().Update().Get("only_after:after_update"))
	assert.NotNil(t, db.Callback().Delete().Get("only_after:after_delete"))
}

func TestWithQueryStartTime(t *testing.T) {
	before := time.Now()
	ctx := WithQueryStartTime(context.Background())

	start, ok := queryStarted(ctx)
	require.True(t, ok)
	assert.False(t, start.Before(before))

	_, ok = queryStarted(context.Background())
	assert.False(t, ok)
}
