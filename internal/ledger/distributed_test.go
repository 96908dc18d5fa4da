package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Madhuiit/dcl/internal/catalog"
	"github.com/Madhuiit/dcl/internal/eligibility"
	"github.com/Madhuiit/dcl/internal/lock"
	"github.com/Madhuiit/dcl/internal/model"
	"github.com/Madhuiit/dcl/internal/store"
)

func lockedEngine(t *testing.T, st store.Store, client *redis.Client) *Engine {
	t.Helper()
	e, err := New(Config{
		Store:   st,
		Catalog: catalog.StaticLoader(players(1, 2, 3)),
		Rules:   eligibility.NewRules(1000, 1, 10),
		Teams:   []string{"A", "B"},
		Locker:  lock.NewRedisLock(client, 5*time.Second, 0, 0),
		Logger:  quietLog,
	})
	require.NoError(t, err)
	return e
}

func TestDistributedLock_SharesLedgerAcrossEngines(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := store.NewMemoryStore()
	ctx := context.Background()

	first := lockedEngine(t, st, client)
	require.NoError(t, first.Open(ctx))
	second := lockedEngine(t, st, client)
	require.NoError(t, second.Open(ctx))

	require.NoError(t, first.Sell(ctx, 1, "A", 100))

	// second still holds its pre-sale copy; the lock forces a reload, so
	// selling the same player again is refused.
	err := second.Sell(ctx, 1, "B", 100)
	assert.ErrorIs(t, err, model.ErrAlreadySoldOrInvalid)

	require.NoError(t, second.Sell(ctx, 2, "B", 200))
	l := second.Snapshot()
	assert.Equal(t, int64(900), l.Teams["A"].Points)
	assert.Equal(t, int64(800), l.Teams["B"].Points)
	assert.NoError(t, l.Validate(1000))

	assert.False(t, mr.Exists(DefaultLockKey), "lock must be released after each mutation")
}

func TestDistributedLock_BusyWhenHeldElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := store.NewMemoryStore()
	ctx := context.Background()
	e := lockedEngine(t, st, client)
	require.NoError(t, e.Open(ctx))
	before := e.Snapshot()

	require.NoError(t, mr.Set(DefaultLockKey, "someone-else"))

	err := e.Sell(ctx, 1, "A", 100)
	assert.ErrorIs(t, err, model.ErrLedgerBusy)
	assert.ErrorIs(t, err, model.ErrState)
	assert.Equal(t, before, e.Snapshot())
}

func TestSync_ReadsSeeOtherProcessWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	st := store.NewMemoryStore()
	ctx := context.Background()

	writer := lockedEngine(t, st, client)
	require.NoError(t, writer.Open(ctx))
	reader := lockedEngine(t, st, client)
	require.NoError(t, reader.Open(ctx))

	require.NoError(t, writer.Sell(ctx, 1, "A", 100))
	assert.Len(t, reader.SearchUnsold("player"), 3, "reader has not synced yet")

	require.NoError(t, reader.Sync(ctx))
	v := reader.View()
	assert.Equal(t, int64(900), v.Ledger.Teams["A"].Points)
	assert.Equal(t, HistoryPendingSell, v.History)
	assert.Len(t, reader.SearchUnsold("player"), 2)
}

func TestSync_NoOpWithoutLock(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	e, err := New(Config{
		Store:   st,
		Catalog: catalog.StaticLoader(players(1)),
		Rules:   eligibility.NewRules(1000, 1, 10),
		Teams:   []string{"A"},
		Logger:  quietLog,
	})
	require.NoError(t, err)
	require.NoError(t, e.Open(ctx))

	// A foreign snapshot is ignored: without a lock the engine is the only writer.
	require.NoError(t, st.Save(ctx, model.NewLedger(nil, []string{"A"}, 5)))
	require.NoError(t, e.Sync(ctx))
	assert.Equal(t, int64(1000), e.Snapshot().Teams["A"].Points)
}
