package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Madhuiit/dcl/internal/model"
)

// PostgresStore implements Store using PostgreSQL. The snapshot lives in a
// single JSONB row so it stays diffable with ordinary SQL tooling.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the snapshot table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS auction_state (
			id         TEXT PRIMARY KEY,
			document   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create auction_state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*model.Ledger, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document::TEXT FROM auction_state WHERE id = $1`, stateID).
		Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return decode(doc)
}

func (s *PostgresStore) Save(ctx context.Context, l *model.Ledger) error {
	data, err := encode(l)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO auction_state (id, document, updated_at)
		 VALUES ($1, $2::JSONB, now())
		 ON CONFLICT (id) DO UPDATE
		 SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		stateID, string(data),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
