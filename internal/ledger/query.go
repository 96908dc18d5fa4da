package ledger

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Madhuiit/dcl/internal/eligibility"
	"github.com/Madhuiit/dcl/internal/model"
)

const (
	searchMinQuery = 2
	searchLimit    = 10
)

// SearchUnsold finds unsold players whose name contains query
// (case-insensitive) or whose id equals it. Queries shorter than two
// characters match nothing. At most ten players are returned, by id.
func (e *Engine) SearchUnsold(query string) []model.Player {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return searchUnsold(e.ledger, query)
}

func searchUnsold(l *model.Ledger, query string) []model.Player {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []model.Player{}
	if utf8.RuneCountInString(q) < searchMinQuery {
		return out
	}

	ids := append([]int(nil), l.UnsoldPlayerIDs...)
	sort.Ints(ids)
	for _, id := range ids {
		p, ok := l.Players[id]
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(p.PlayerName), q) || strconv.Itoa(id) == q {
			out = append(out, p)
			if len(out) == searchLimit {
				break
			}
		}
	}
	return out
}

// RosterRow is one sold player in a team's export listing.
type RosterRow struct {
	Player model.Player `json:"player"`
	Points int64        `json:"sold_for_points"`
}

// TeamExport is a team's roster in purchase order.
type TeamExport struct {
	Name   string      `json:"name"`
	Roster []RosterRow `json:"roster"`
}

// SummaryRow aggregates one team.
type SummaryRow struct {
	Team            string          `json:"team_name"`
	PlayersBought   int             `json:"players_bought"`
	PointsRemaining int64           `json:"points_remaining"`
	PointsSpent     int64           `json:"points_spent"`
	MaxBid          int64           `json:"max_bid"`
	AveragePrice    decimal.Decimal `json:"average_price"`
}

// Projection is a read-only tabular view of the ledger.
type Projection struct {
	Teams   []TeamExport `json:"teams"`
	Summary []SummaryRow `json:"summary"`

	// AttributeKeys lists every extra catalog attribute seen on a sold
	// player, sorted, so renderers can lay out stable columns.
	AttributeKeys []string `json:"attribute_keys"`
}

// ExportProjection builds the per-team rosters and summary rows.
func (e *Engine) ExportProjection() Projection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return project(e.ledger, e.rules)
}

func project(l *model.Ledger, rules eligibility.Rules) Projection {
	names := l.TeamNames()
	proj := Projection{
		Teams:         make([]TeamExport, 0, len(names)),
		Summary:       make([]SummaryRow, 0, len(names)),
		AttributeKeys: []string{},
	}
	keys := make(map[string]bool)

	for _, name := range names {
		t := l.Teams[name]
		te := TeamExport{Name: name, Roster: make([]RosterRow, 0, len(t.Players))}
		for _, s := range t.Players {
			p, ok := l.Players[s.PlayerID]
			if !ok {
				p = model.Player{ID: s.PlayerID}
			}
			for k := range p.Attributes {
				keys[k] = true
			}
			te.Roster = append(te.Roster, RosterRow{Player: p, Points: s.Points})
		}
		proj.Teams = append(proj.Teams, te)

		spent := t.Spent()
		avg := decimal.Zero
		if n := len(t.Players); n > 0 {
			avg = decimal.NewFromInt(spent).Div(decimal.NewFromInt(int64(n))).Round(2)
		}
		proj.Summary = append(proj.Summary, SummaryRow{
			Team:            name,
			PlayersBought:   len(t.Players),
			PointsRemaining: t.Points,
			PointsSpent:     spent,
			MaxBid:          rules.MaxBid(t),
			AveragePrice:    avg,
		})
	}

	for k := range keys {
		proj.AttributeKeys = append(proj.AttributeKeys, k)
	}
	sort.Strings(proj.AttributeKeys)
	return proj
}
