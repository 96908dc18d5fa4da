// Package lock serializes ledger mutations across processes sharing one
// store, using a Redis key as the mutex.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock is still held after all retries.
var ErrNotAcquired = errors.New("lock: not acquired")

// Manager acquires and releases a named lock.
type Manager interface {
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// RedisLock is a single-instance Redis lock (SET NX PX + compare-and-delete).
type RedisLock struct {
	client  *redis.Client
	ttl     time.Duration
	retries int
	backoff time.Duration
}

func NewRedisLock(client *redis.Client, ttl time.Duration, retries int, backoff time.Duration) *RedisLock {
	// A short TTL keeps a crashed holder from blocking the auction for long.
	return &RedisLock{
		client:  client,
		ttl:     ttl,
		retries: retries,
		backoff: backoff,
	}
}

func (l *RedisLock) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	for attempt := 0; attempt <= l.retries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return token, true, nil
		}
		if attempt < l.retries {
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(l.backoff):
			}
		}
	}
	return "", false, nil
}

func (l *RedisLock) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return errors.New("lock: key and token are required")
	}
	return releaseLua.Run(ctx, l.client, []string{key}, token).Err()
}

// WithLock runs fn while holding key.
func WithLock(ctx context.Context, m Manager, key string, fn func() error) error {
	token, ok, err := m.Acquire(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	defer m.Release(context.WithoutCancel(ctx), key, token)
	return fn()
}

var releaseLua = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)
