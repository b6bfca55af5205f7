package telemetry

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapBridgeConfig selects what the zap to OTLP bridge forwards.
type ZapBridgeConfig struct {
	// ServiceName becomes the instrumentation scope of exported records.
	ServiceName    string
	LoggerProvider *LoggerProvider
	// Level is the lowest level exported. Debug exports everything.
	Level zapcore.Level
}

// NewZapOTELCore returns a core that writes zap entries into the OTLP log
// pipeline, or a no-op core when log export is off. Tee it with the console
// core through NewBridgedLogger.
func NewZapOTELCore(cfg ZapBridgeConfig) zapcore.Core {
	if cfg.LoggerProvider == nil || !cfg.LoggerProvider.IsEnabled() {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(cfg.ServiceName, otelzap.WithLoggerProvider(cfg.LoggerProvider.provider))
	if cfg.Level <= zapcore.DebugLevel {
		return core
	}
	return minLevelCore{Core: core, level: cfg.Level}
}

// minLevelCore drops entries below level before they reach the wrapped core.
// The otelzap core has no level of its own.
type minLevelCore struct {
	zapcore.Core
	level zapcore.LevelEnabler
}

func (c minLevelCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c minLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return minLevelCore{Core: c.Core.With(fields), level: c.level}
}

func (c minLevelCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

// NewBridgedLogger writes every entry to both base and otel.
func NewBridgedLogger(base, otel zapcore.Core, opts ...zap.Option) *zap.Logger {
	return zap.New(zapcore.NewTee(base, otel), opts...)
}
