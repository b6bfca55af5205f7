package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis lock defaults
const (
	DefaultLockTTL       = 30 * time.Second
	DefaultRetryInterval = 50 * time.Millisecond
	defaultLockPrefix    = "import:sku-lock:"
)

// releaseScript deletes the lock only while it still carries the caller's token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ErrLockNotHeld is returned by release when the lock expired or was taken over
var ErrLockNotHeld = errors.New("sku lock no longer held")

// lockClient is the subset of the Redis client the locker uses
type lockClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisSKULocker is a per-key lock shared by every instance talking to the same Redis.
// A lock is a key set with NX and a TTL; holders that outlive the TTL lose it.
type RedisSKULocker struct {
	client        lockClient
	closer        func() error
	pinger        func(ctx context.Context) error
	keyPrefix     string
	ttl           time.Duration
	retryInterval time.Duration
	onReleaseErr  func(key string, err error)
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	LockTTL  time.Duration
}

// NewRedisSKULocker connects to Redis and creates a locker
func NewRedisSKULocker(cfg RedisConfig) (*RedisSKULocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	l := NewRedisSKULockerWithClient(client, "", cfg.LockTTL)
	l.closer = client.Close
	l.pinger = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return l, nil
}

// NewRedisSKULockerWithClient creates a locker over an existing client.
// The caller keeps ownership of the client.
func NewRedisSKULockerWithClient(client lockClient, keyPrefix string, ttl time.Duration) *RedisSKULocker {
	if keyPrefix == "" {
		keyPrefix = defaultLockPrefix
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisSKULocker{
		client:        client,
		closer:        func() error { return nil },
		pinger:        func(context.Context) error { return nil },
		keyPrefix:     keyPrefix,
		ttl:           ttl,
		retryInterval: DefaultRetryInterval,
		onReleaseErr:  func(string, error) {},
	}
}

// OnReleaseError registers a callback for failed releases
func (l *RedisSKULocker) OnReleaseError(fn func(key string, err error)) {
	if fn != nil {
		l.onReleaseErr = fn
	}
}

// Acquire polls SET NX until the key is free or ctx is done
func (l *RedisSKULocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire sku lock: %w", err)
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisSKULocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int64()
	if err == nil && n == 0 {
		err = ErrLockNotHeld
	}
	if err != nil {
		l.onReleaseErr(redisKey, err)
	}
}

// Ping checks that Redis answers. Lockers built over a caller-owned client always succeed.
func (l *RedisSKULocker) Ping(ctx context.Context) error {
	return l.pinger(ctx)
}

// Close closes the client when the locker created it
func (l *RedisSKULocker) Close() error {
	return l.closer()
}

var _ SKULocker = (*RedisSKULocker)(nil)
