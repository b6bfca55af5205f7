// Package logger builds the zap loggers used across the service and carries
// request-scoped loggers through contexts, gin and GORM.
package logger

import (
	"cmp"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormat is used when Config.TimeFormat is empty
const DefaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

var levelNames = map[string]zapcore.Level{
	"debug":   zapcore.DebugLevel,
	"info":    zapcore.InfoLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
	"fatal":   zapcore.FatalLevel,
}

// ParseLevel converts a level name to a zapcore.Level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return zapcore.InfoLevel
}

// New creates a zap logger with caller info and error stacktraces. Extra
// options are applied after those.
func New(cfg *Config, opts ...zap.Option) (*zap.Logger, error) {
	core, err := NewCore(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}, opts...)
	return zap.New(core, opts...), nil
}

// NewCore builds the base core for cfg; nil means JSON at info on stdout.
func NewCore(cfg *Config) (zapcore.Core, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	sink, _, err := zap.Open(cmp.Or(strings.TrimSpace(c.Output), "stdout"))
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", c.Output, err)
	}
	return zapcore.NewCore(c.encoder(), sink, ParseLevel(c.Level)), nil
}

func (c Config) encoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(cmp.Or(c.TimeFormat, DefaultTimeFormat))
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if strings.EqualFold(c.Format, "console") {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}
