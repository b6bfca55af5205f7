package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Lock backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// SKULocker serializes work on one key. Release must be called exactly once per Acquire.
type SKULocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
	Close() error
}

// SKULockerFactory creates lockers based on configuration
type SKULockerFactory struct {
	redisConfig           RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SKULockerFactoryOption is a functional option for configuring the factory
type SKULockerFactoryOption func(*SKULockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SKULockerFactoryOption {
	return func(f *SKULockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory locker when Redis is unavailable
func WithInMemoryFallback(allow bool) SKULockerFactoryOption {
	return func(f *SKULockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSKULockerFactory creates a new factory
func NewSKULockerFactory(cfg RedisConfig, opts ...SKULockerFactoryOption) *SKULockerFactory {
	f := &SKULockerFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a locker for the named backend. An unreachable Redis falls back to
// the in-memory locker when fallback is allowed.
func (f *SKULockerFactory) Create(backend string) (SKULocker, error) {
	switch backend {
	case "", BackendMemory:
		return NewInMemorySKULocker(), nil
	case BackendRedis:
		locker, err := NewRedisSKULocker(f.redisConfig)
		if err == nil {
			locker.OnReleaseError(func(key string, err error) {
				f.logger.Warn("failed to release sku lock", zap.String("key", key), zap.Error(err))
			})
			f.logger.Info("using redis sku locker",
				zap.String("host", f.redisConfig.Host),
				zap.Int("port", f.redisConfig.Port),
				zap.Duration("ttl", locker.ttl),
			)
			return locker, nil
		}
		if !f.allowInMemoryFallback {
			return nil, err
		}
		f.logger.Warn("redis unavailable, falling back to in-memory sku locker; "+
			"concurrent runs on other instances are not serialized",
			zap.Error(err),
		)
		return NewInMemorySKULocker(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", backend)
	}
}
