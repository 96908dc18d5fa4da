package ledger

import (
	"context"
	"reflect"
	"testing"

	"github.com/Madhuiit/dcl/internal/eligibility"
	"github.com/Madhuiit/dcl/internal/model"
)

func namedPlayers() []model.Player {
	names := []string{
		"Ramesh Jat", "Suresh Jat", "Mahesh Choudhary", "Raju", "Ravi Kumar",
		"Rakesh", "Ramdev", "Ratan", "Rahul", "Rajendra", "Ranveer", "Rameshwar", "Rana",
	}
	out := make([]model.Player, 0, len(names))
	for i, n := range names {
		out = append(out, model.Player{ID: i + 1, PlayerName: n})
	}
	return out
}

func ids(ps []model.Player) []int {
	out := make([]int, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestSearchUnsold(t *testing.T) {
	f := newFixture(t, namedPlayers(), []string{"A"}, eligibility.NewRules(100000, 1, 10))
	if err := f.engine.Sell(context.Background(), 2, "A", 100); err != nil {
		t.Fatalf("Sell: %v", err)
	}

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"empty", "", []int{}},
		{"single character", "r", []int{}},
		{"whitespace padded single character", "  r ", []int{}},
		{"padded single-digit id", " 1", []int{}},
		{"surrounding whitespace trimmed", "  jat ", []int{1}},
		{"padded two-digit id", " 12 ", []int{12}},
		{"case-insensitive substring", "JAT", []int{1}},
		{"sold players excluded", "suresh", []int{}},
		{"single-digit id is too short", "3", []int{}},
		{"exact two-digit id", "12", []int{12}},
		{"id does not match as substring", "13x", []int{}},
		{"capped at ten", "ra", []int{1, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(f.engine.SearchUnsold(tt.query))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SearchUnsold(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestExportProjection(t *testing.T) {
	ps := []model.Player{
		{ID: 1, PlayerName: "Ravi", FatherName: "Mohan", Attributes: map[string]any{"village": "Lemda"}},
		{ID: 2, PlayerName: "Amit", Attributes: map[string]any{"role": "bowler"}},
		{ID: 3, PlayerName: "Kunal"},
	}
	f := newFixture(t, ps, []string{"Zeta", "Alpha"}, eligibility.NewRules(1000, 3, 10))
	ctx := context.Background()
	if err := f.engine.Sell(ctx, 1, "Alpha", 100); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.Sell(ctx, 2, "Alpha", 25); err != nil {
		t.Fatal(err)
	}
	before := f.engine.Snapshot()

	proj := f.engine.ExportProjection()

	if len(proj.Teams) != 2 || proj.Teams[0].Name != "Alpha" || proj.Teams[1].Name != "Zeta" {
		t.Fatalf("teams not sorted by name: %+v", proj.Teams)
	}
	alpha := proj.Teams[0]
	if len(alpha.Roster) != 2 || alpha.Roster[0].Player.FatherName != "Mohan" || alpha.Roster[1].Points != 25 {
		t.Errorf("unexpected Alpha roster: %+v", alpha.Roster)
	}
	if len(proj.Teams[1].Roster) != 0 {
		t.Errorf("Zeta roster should be empty")
	}

	sum := proj.Summary[0]
	if sum.Team != "Alpha" || sum.PlayersBought != 2 || sum.PointsRemaining != 875 || sum.PointsSpent != 125 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if sum.AveragePrice.String() != "62.5" {
		t.Errorf("average = %s, want 62.5", sum.AveragePrice)
	}
	if sum.MaxBid != 875 {
		t.Errorf("max bid = %d, want 875", sum.MaxBid)
	}
	zeta := proj.Summary[1]
	if !zeta.AveragePrice.IsZero() || zeta.PointsRemaining != 1000 {
		t.Errorf("unexpected Zeta summary: %+v", zeta)
	}

	if want := []string{"role", "village"}; !reflect.DeepEqual(proj.AttributeKeys, want) {
		t.Errorf("attribute keys = %v, want %v", proj.AttributeKeys, want)
	}
	assertUnchanged(t, f.engine, before)
}
