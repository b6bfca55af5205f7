package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowThreshold is the statement duration above which GORM statements are logged as slow
const DefaultSlowThreshold = 200 * time.Millisecond

const (
	msgSQLError = "SQL Error"
	msgSlowSQL  = "Slow SQL"
	msgSQL      = "SQL Query"
)

// GormLogger routes GORM's statement log into zap, tagged with the request
// scope and trace of the calling context.
type GormLogger struct {
	logger         *zap.Logger
	logLevel       gormlogger.LogLevel
	slowThreshold  time.Duration
	ignoreNotFound bool
}

var _ gormlogger.Interface = (*GormLogger)(nil)

type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the slow statement threshold; zero disables slow logging
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

// WithIgnoreRecordNotFoundError controls whether not-found lookups count as errors.
// SKU reconciliation misses constantly, so they are ignored unless asked.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.ignoreNotFound = ignore }
}

func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	gl := &GormLogger{
		logger:         zapLogger.Named("gorm"),
		logLevel:       level,
		slowThreshold:  DefaultSlowThreshold,
		ignoreNotFound: true,
	}
	for _, opt := range opts {
		opt(gl)
	}
	return gl
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.logLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.logLevel < min {
		return
	}
	l.scoped(ctx).Sugar().Logf(level, msg, data...)
}

// Trace logs a finished statement. Errors win over slow statements, which win
// over plain statements; plain statements go out at debug.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	level, msg, ok := l.classify(elapsed, err)
	if !ok {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	switch msg {
	case msgSQLError:
		fields = append(fields, zap.Error(err))
	case msgSlowSQL:
		fields = append(fields, zap.Duration("threshold", l.slowThreshold))
	}
	l.scoped(ctx).Check(level, msg).Write(fields...)
}

func (l *GormLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, bool) {
	notFound := errors.Is(err, gormlogger.ErrRecordNotFound)
	switch {
	case l.logLevel <= gormlogger.Silent:
	case err != nil && !(notFound && l.ignoreNotFound):
		return zapcore.ErrorLevel, msgSQLError, true
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.logLevel >= gormlogger.Warn:
		return zapcore.WarnLevel, msgSlowSQL, true
	case l.logLevel >= gormlogger.Info:
		return zapcore.DebugLevel, msgSQL, true
	}
	return 0, "", false
}

func (l *GormLogger) scoped(ctx context.Context) *zap.Logger {
	log := l.logger.With(ScopeFrom(ctx).Fields()...)
	if traceID := telemetry.GetTraceID(ctx); traceID != "" {
		log = log.With(zap.String("trace_id", traceID))
	}
	return log
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent":  gormlogger.Silent,
	"error":   gormlogger.Error,
	"warn":    gormlogger.Warn,
	"warning": gormlogger.Warn,
	"info":    gormlogger.Info,
	"debug":   gormlogger.Info,
}

// MapGormLogLevel maps the configured log level onto GORM's levels, warn by default.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(level)]; ok {
		return l
	}
	return gormlogger.Warn
}
