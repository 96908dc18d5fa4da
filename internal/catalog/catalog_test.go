package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Madhuiit/dcl/internal/model"
)

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "players.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileLoader(t *testing.T) {
	path := writeCatalog(t, `[
		{"id": 1, "player_name": "Ravi Kumar", "father_name": "Mohan", "role": "Batsman"},
		{"id": 2, "player_name": "Sunil", "father_name": "Ram"}
	]`)

	players, err := NewFileLoader(path).LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("got %d players, want 2", len(players))
	}
	if players[0].PlayerName != "Ravi Kumar" || players[0].Attributes["role"] != "Batsman" {
		t.Errorf("unexpected first player: %+v", players[0])
	}
}

func TestFileLoader_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.json")},
		{"malformed", writeCatalog(t, `[{"id": 1,`)},
		{"not an array", writeCatalog(t, `{"id": 1}`)},
		{"duplicate ids", writeCatalog(t, `[{"id": 1}, {"id": 1}]`)},
		{"missing id", writeCatalog(t, `[{"player_name": "X"}]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileLoader(tt.path).LoadCatalog(context.Background())
			if !errors.Is(err, model.ErrCatalogUnavailable) {
				t.Errorf("got %v, want ErrCatalogUnavailable", err)
			}
		})
	}
}

func TestStaticLoader_ReturnsCopy(t *testing.T) {
	s := StaticLoader{{ID: 1, PlayerName: "A"}}
	got, _ := s.LoadCatalog(context.Background())
	got[0].PlayerName = "changed"
	if s[0].PlayerName != "A" {
		t.Error("static catalog was mutated")
	}
}
