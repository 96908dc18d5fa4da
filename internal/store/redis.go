package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Madhuiit/dcl/internal/model"
)

// CachedStore wraps a primary Store with a Redis read-through cache.
// Writes go to the primary store and then refresh the cache; reads check
// Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	key     string
	ttl     time.Duration
}

// DefaultCacheKey is the Redis key holding the cached snapshot.
const DefaultCacheKey = "dcl:ledger"

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		key:     DefaultCacheKey,
		ttl:     ttl,
	}
}

// --- Write-through ---

func (s *CachedStore) Save(ctx context.Context, l *model.Ledger) error {
	if err := s.primary.Save(ctx, l); err != nil {
		// The primary may hold an older snapshot now; drop the cache so the
		// next read goes to it.
		s.rdb.Del(ctx, s.key)
		return err
	}
	s.cache(ctx, l)
	return nil
}

// --- Read-through ---

func (s *CachedStore) Load(ctx context.Context) (*model.Ledger, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err == nil {
		if l, err := decode(data); err == nil {
			return l, nil
		}
		s.rdb.Del(ctx, s.key)
	}

	// Cache miss: read from primary.
	l, err := s.primary.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, l)
	return l, nil
}

// Close closes the primary; the Redis client belongs to the caller.
func (s *CachedStore) Close() error {
	return s.primary.Close()
}

// Invalidate drops the cached snapshot.
func (s *CachedStore) Invalidate(ctx context.Context) error {
	err := s.rdb.Del(ctx, s.key).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (s *CachedStore) cache(ctx context.Context, l *model.Ledger) {
	if data, err := encode(l); err == nil {
		s.rdb.Set(ctx, s.key, data, s.ttl)
	}
}
