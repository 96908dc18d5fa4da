// Package catalog loads the immutable list of players put up for auction.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Madhuiit/dcl/internal/model"
)

// Loader produces the players to auction. Failures wrap
// model.ErrCatalogUnavailable.
type Loader interface {
	LoadCatalog(ctx context.Context) ([]model.Player, error)
}

// FileLoader reads a JSON array of player objects from disk.
type FileLoader struct {
	Path string
}

// NewFileLoader creates a loader for the players file at path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{Path: path}
}

func (f *FileLoader) LoadCatalog(ctx context.Context) ([]model.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCatalogUnavailable, err)
	}
	return Parse(data)
}

// Parse decodes a catalog document and rejects duplicate ids.
func Parse(data []byte) ([]model.Player, error) {
	var players []model.Player
	if err := json.Unmarshal(data, &players); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCatalogUnavailable, err)
	}
	seen := make(map[int]bool, len(players))
	for _, p := range players {
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: duplicate player id %d", model.ErrCatalogUnavailable, p.ID)
		}
		seen[p.ID] = true
	}
	return players, nil
}

// StaticLoader serves a fixed player list.
type StaticLoader []model.Player

func (s StaticLoader) LoadCatalog(_ context.Context) ([]model.Player, error) {
	out := make([]model.Player, len(s))
	copy(out, s)
	return out, nil
}
