// Package store defines the persistence interface for the auction ledger.
// The whole ledger is one snapshot document rewritten in full on every save;
// implementations include a local JSON file, SQLite, PostgreSQL, MongoDB,
// a Redis read-through cache, and in-memory (for testing).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Madhuiit/dcl/internal/model"
)

var (
	// ErrNotFound is returned by Load when no snapshot has been saved yet.
	ErrNotFound = errors.New("store: no ledger snapshot")

	// ErrCorrupt is returned by Load when a snapshot exists but cannot be
	// decoded into a ledger.
	ErrCorrupt = errors.New("store: ledger snapshot is corrupt")
)

// Store persists ledger snapshots. Last write wins.
type Store interface {
	// Load returns the most recently saved ledger.
	Load(ctx context.Context) (*model.Ledger, error)

	// Save replaces the persisted snapshot with l.
	Save(ctx context.Context, l *model.Ledger) error

	// Close releases the backend's resources.
	Close() error
}

// stateID is the fixed key of the single snapshot row/document.
const stateID = "state"

func encode(l *model.Ledger) ([]byte, error) {
	if l == nil {
		return nil, errors.New("store: cannot save a nil ledger")
	}
	return json.MarshalIndent(l, "", "    ")
}

func decode(data []byte) (*model.Ledger, error) {
	var l model.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if l.Players == nil || l.Teams == nil {
		return nil, fmt.Errorf("%w: missing players or teams", ErrCorrupt)
	}
	for name, t := range l.Teams {
		if t == nil {
			return nil, fmt.Errorf("%w: team %s is null", ErrCorrupt, name)
		}
		if t.Name == "" {
			t.Name = name
		}
		if t.Players == nil {
			t.Players = []model.Sale{}
		}
	}
	if l.UnsoldPlayerIDs == nil {
		l.UnsoldPlayerIDs = []int{}
	}
	return &l, nil
}
