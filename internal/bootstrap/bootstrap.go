// Package bootstrap assembles the store, cache, lock and ledger engine from
// configuration. The server and the CLI share it so both drive the same
// ledger the same way.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Madhuiit/dcl/internal/catalog"
	"github.com/Madhuiit/dcl/internal/config"
	"github.com/Madhuiit/dcl/internal/ledger"
	"github.com/Madhuiit/dcl/internal/lock"
	"github.com/Madhuiit/dcl/internal/store"
)

const (
	lockRetries = 50
	lockBackoff = 100 * time.Millisecond
)

// App holds the wired components. Close releases them.
type App struct {
	Engine *ledger.Engine
	Store  store.Store

	cleanup []func()
}

// Build opens the configured store, wraps it with the Redis cache and lock
// when REDIS_URL is set, and opens the engine. A failure to initialize the
// ledger from the catalog is logged, not returned: the engine stays usable
// with an empty ledger so the operator can fix the catalog and reset.
func Build(ctx context.Context, cfg *config.Config, notifier ledger.Notifier, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{}

	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	app.cleanup = append(app.cleanup, func() { st.Close() })
	logger.Info("ledger store ready", "backend", cfg.StoreBackend)

	var locker lock.Manager
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		app.cleanup = append(app.cleanup, func() { rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}

		st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
		logger.Info("Redis cache enabled", "ttl", cfg.CacheTTL)

		if cfg.DistributedLock {
			locker = lock.NewRedisLock(rdb, cfg.LockTTL, lockRetries, lockBackoff)
			logger.Info("distributed ledger lock enabled", "ttl", cfg.LockTTL)
		}
	}
	app.Store = st

	engine, err := ledger.New(ledger.Config{
		Store:    st,
		Catalog:  catalog.NewFileLoader(cfg.PlayersFile),
		Rules:    cfg.Rules(),
		Teams:    cfg.Auction.Teams,
		Locker:   locker,
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	if err := engine.Open(ctx); err != nil {
		logger.Error("auction state could not be initialized", "players_file", cfg.PlayersFile, "err", err)
	}
	app.Engine = engine
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
