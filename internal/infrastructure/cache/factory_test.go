package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSKULockerFactory_Create(t *testing.T) {
	unreachable := RedisConfig{Host: "127.0.0.1", Port: 1}

	t.Run("memory backend", func(t *testing.T) {
		l, err := NewSKULockerFactory(unreachable).Create(BackendMemory)
		require.NoError(t, err)
		assert.IsType(t, &InMemorySKULocker{}, l)
	})

	t.Run("redis unavailable falls back to memory", func(t *testing.T) {
		l, err := NewSKULockerFactory(unreachable).Create(BackendRedis)
		require.NoError(t, err)
		assert.IsType(t, &InMemorySKULocker{}, l)
	})

	t.Run("redis unavailable without fallback", func(t *testing.T) {
		_, err := NewSKULockerFactory(unreachable, WithInMemoryFallback(false)).Create(BackendRedis)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewSKULockerFactory(unreachable).Create("etcd")
		assert.Error(t, err)
	})
}
