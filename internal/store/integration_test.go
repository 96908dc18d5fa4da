package store

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"
)

// Integration tests: they need a live database and skip otherwise.

func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("DCL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DCL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	st := NewPostgresStore(pool)
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM auction_state WHERE id = $1`, stateID)
	})
	testRoundTrip(t, st)
}

func TestMongoStore_Integration(t *testing.T) {
	uri := os.Getenv("DCL_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DCL_TEST_MONGO_URI not set")
	}
	ctx := context.Background()

	st, err := ConnectMongo(ctx, uri, "dcl_test", "auction")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer st.Close()
	t.Cleanup(func() {
		_, _ = st.collection.DeleteOne(ctx, bson.M{"_id": stateID})
	})
	testRoundTrip(t, st)
}
