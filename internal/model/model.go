// Package model defines the core domain types shared across the auction service.
// Points are whole numbers; a team's budget never goes fractional.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Player is an immutable catalog record. Catalog keys other than id,
// player_name and father_name are kept verbatim in Attributes so they
// survive persistence and reach the export.
type Player struct {
	ID         int            `json:"id"`
	PlayerName string         `json:"player_name"`
	FatherName string         `json:"father_name,omitempty"`
	Attributes map[string]any `json:"-"`
}

func (p Player) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Attributes)+3)
	for k, v := range p.Attributes {
		out[k] = v
	}
	out["id"] = p.ID
	out["player_name"] = p.PlayerName
	if p.FatherName != "" {
		out["father_name"] = p.FatherName
	}
	return json.Marshal(out)
}

func (p *Player) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	idRaw, ok := raw["id"]
	if !ok {
		return fmt.Errorf("player: missing id")
	}
	id, err := parseID(idRaw)
	if err != nil {
		return err
	}

	var out Player
	out.ID = id
	if v, ok := raw["player_name"]; ok {
		if err := json.Unmarshal(v, &out.PlayerName); err != nil {
			return fmt.Errorf("player %d: player_name: %w", id, err)
		}
	}
	if v, ok := raw["father_name"]; ok {
		if err := json.Unmarshal(v, &out.FatherName); err != nil {
			return fmt.Errorf("player %d: father_name: %w", id, err)
		}
	}

	for k, v := range raw {
		switch k {
		case "id", "player_name", "father_name":
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("player %d: %s: %w", id, k, err)
		}
		if out.Attributes == nil {
			out.Attributes = make(map[string]any)
		}
		out.Attributes[k] = val
	}

	*p = out
	return nil
}

// parseID accepts a JSON integer or a string holding one.
func parseID(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		id, err := strconv.Atoi(n.String())
		if err != nil {
			return 0, fmt.Errorf("player: id %s is not an integer", n)
		}
		return id, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("player: invalid id %s", raw)
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("player: id %q is not an integer", s)
	}
	return id, nil
}

// Sale records one player awarded to a team. A sale lives in exactly one
// team's roster; transfers move it, they never copy it.
type Sale struct {
	PlayerID int   `json:"id"`
	Points   int64 `json:"points"` // amount paid, >= 0
}

// Team is one bidder with its remaining budget and ordered roster.
type Team struct {
	Name    string `json:"name"`
	Points  int64  `json:"points"` // remaining budget
	Players []Sale `json:"players"`
}

// Clone returns a deep copy of the team.
func (t Team) Clone() Team {
	players := make([]Sale, len(t.Players))
	copy(players, t.Players)
	t.Players = players
	return t
}

// FindSale returns the roster index of playerID, or -1.
func (t *Team) FindSale(playerID int) int {
	for i, s := range t.Players {
		if s.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// RemoveSale removes and returns the sale at index i.
func (t *Team) RemoveSale(i int) Sale {
	sale := t.Players[i]
	t.Players = append(t.Players[:i:i], t.Players[i+1:]...)
	return sale
}

// Spent is the sum of every sale on the roster.
func (t *Team) Spent() int64 {
	var total int64
	for _, s := range t.Players {
		total += s.Points
	}
	return total
}

// TransactionType tags the undo record. Only sales are undoable.
type TransactionType string

const TransactionSell TransactionType = "sell"

// Transaction is the single-slot undo record left by the most recent sale.
type Transaction struct {
	ID                string          `json:"id"`
	Type              TransactionType `json:"type"`
	PlayerID          int             `json:"player_id"`
	TeamName          string          `json:"team_name"`
	Points            int64           `json:"points"`
	PreviousTeamState Team            `json:"previous_team_state"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Ledger is the root aggregate: every player is either in UnsoldPlayerIDs
// or on exactly one team's roster.
type Ledger struct {
	Players         map[int]Player   `json:"players"`
	Teams           map[string]*Team `json:"teams"`
	UnsoldPlayerIDs []int            `json:"unsold_player_ids"`
	LastTransaction *Transaction     `json:"last_transaction"`
}

// NewLedger builds a fresh ledger: every team at initialPoints with an empty
// roster and every catalog player unsold.
func NewLedger(players []Player, teams []string, initialPoints int64) *Ledger {
	l := &Ledger{
		Players:         make(map[int]Player, len(players)),
		Teams:           make(map[string]*Team, len(teams)),
		UnsoldPlayerIDs: make([]int, 0, len(players)),
	}
	for _, p := range players {
		if _, dup := l.Players[p.ID]; dup {
			continue
		}
		l.Players[p.ID] = p
		l.UnsoldPlayerIDs = append(l.UnsoldPlayerIDs, p.ID)
	}
	for _, name := range teams {
		l.Teams[name] = &Team{Name: name, Points: initialPoints, Players: []Sale{}}
	}
	return l
}

// Clone returns a deep copy. Player records are immutable and their
// attribute maps are shared.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	out := &Ledger{
		Players:         make(map[int]Player, len(l.Players)),
		Teams:           make(map[string]*Team, len(l.Teams)),
		UnsoldPlayerIDs: append(make([]int, 0, len(l.UnsoldPlayerIDs)), l.UnsoldPlayerIDs...),
	}
	for id, p := range l.Players {
		out.Players[id] = p
	}
	for name, t := range l.Teams {
		c := t.Clone()
		out.Teams[name] = &c
	}
	if l.LastTransaction != nil {
		tx := *l.LastTransaction
		tx.PreviousTeamState = tx.PreviousTeamState.Clone()
		out.LastTransaction = &tx
	}
	return out
}

// TeamNames returns the team names sorted alphabetically.
func (l *Ledger) TeamNames() []string {
	names := make([]string, 0, len(l.Teams))
	for name := range l.Teams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsUnsold reports whether id is in the unsold pool.
func (l *Ledger) IsUnsold(id int) bool {
	for _, u := range l.UnsoldPlayerIDs {
		if u == id {
			return true
		}
	}
	return false
}

// AddUnsold puts id back in the pool. It never inserts a duplicate.
func (l *Ledger) AddUnsold(id int) {
	if !l.IsUnsold(id) {
		l.UnsoldPlayerIDs = append(l.UnsoldPlayerIDs, id)
	}
}

// RemoveUnsold drops id from the pool and reports whether it was present.
func (l *Ledger) RemoveUnsold(id int) bool {
	for i, u := range l.UnsoldPlayerIDs {
		if u == id {
			l.UnsoldPlayerIDs = append(l.UnsoldPlayerIDs[:i:i], l.UnsoldPlayerIDs[i+1:]...)
			return true
		}
	}
	return false
}

// Validate checks both ledger invariants against the configured starting
// budget.
func (l *Ledger) Validate(initialPoints int64) error {
	if err := l.CheckPlacement(); err != nil {
		return err
	}
	return l.CheckBudgets(initialPoints)
}

// CheckPlacement verifies every catalog player is either unsold or on
// exactly one roster, and nothing else is.
func (l *Ledger) CheckPlacement() error {
	if l == nil || l.Players == nil || l.Teams == nil {
		return fmt.Errorf("%w: ledger is missing players or teams", ErrInvariant)
	}

	seen := make(map[int]string, len(l.Players))
	for _, id := range l.UnsoldPlayerIDs {
		if _, ok := l.Players[id]; !ok {
			return fmt.Errorf("%w: unsold player %d is not in the catalog", ErrInvariant, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: player %d listed twice in the unsold pool", ErrInvariant, id)
		}
		seen[id] = "unsold"
	}

	for _, name := range l.TeamNames() {
		for _, s := range l.Teams[name].Players {
			if _, ok := l.Players[s.PlayerID]; !ok {
				return fmt.Errorf("%w: team %s owns unknown player %d", ErrInvariant, name, s.PlayerID)
			}
			if where, dup := seen[s.PlayerID]; dup {
				return fmt.Errorf("%w: player %d held by %s and %s", ErrInvariant, s.PlayerID, where, name)
			}
			seen[s.PlayerID] = name
		}
	}

	for id := range l.Players {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("%w: player %d is neither sold nor unsold", ErrInvariant, id)
		}
	}
	return nil
}

// CheckBudgets verifies each team's spend equals its drop from
// initialPoints.
func (l *Ledger) CheckBudgets(initialPoints int64) error {
	for _, name := range l.TeamNames() {
		t := l.Teams[name]
		var spent int64
		for _, sale := range t.Players {
			if sale.Points < 0 || spent > math.MaxInt64-sale.Points {
				return fmt.Errorf("%w: team %s has an out-of-range sale for player %d",
					ErrInvariant, name, sale.PlayerID)
			}
			spent += sale.Points
		}
		if t.Points < initialPoints-math.MaxInt64 {
			return fmt.Errorf("%w: team %s budget %d is out of range", ErrInvariant, name, t.Points)
		}
		if initialPoints-t.Points != spent {
			return fmt.Errorf("%w: team %s spent %d but budget dropped by %d",
				ErrInvariant, name, spent, initialPoints-t.Points)
		}
	}
	return nil
}
