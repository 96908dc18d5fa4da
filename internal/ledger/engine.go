// Package ledger owns the auction ledger and applies every operator action
// to it: reset, sell, unsell, transfer, edit and undo.
//
// Mutations are serialized by a process mutex and, when a lock manager is
// configured, by a distributed lock shared with other processes on the same
// store. Each mutation is applied to a deep copy of the ledger, the copy is
// persisted, and only then does it replace the in-memory ledger. A rejected
// or unpersisted operation leaves the ledger exactly as it was.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Madhuiit/dcl/internal/catalog"
	"github.com/Madhuiit/dcl/internal/eligibility"
	"github.com/Madhuiit/dcl/internal/lock"
	"github.com/Madhuiit/dcl/internal/metrics"
	"github.com/Madhuiit/dcl/internal/model"
	"github.com/Madhuiit/dcl/internal/store"
)

// DefaultLockKey is the Redis key guarding ledger mutations.
const DefaultLockKey = "dcl:ledger:lock"

// Event describes a committed mutation.
type Event struct {
	Op       Op        `json:"op"`
	PlayerID int       `json:"player_id,omitempty"`
	Team     string    `json:"team,omitempty"`
	FromTeam string    `json:"from_team,omitempty"`
	Points   int64     `json:"points,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier receives an Event after every committed mutation. Notify must
// not block.
type Notifier interface {
	Notify(Event)
}

// Config wires an Engine to its collaborators. Store, Catalog and Teams
// are required.
type Config struct {
	Store    store.Store
	Catalog  catalog.Loader
	Rules    eligibility.Rules
	Teams    []string
	Random   RandomSource
	Locker   lock.Manager
	LockKey  string
	Notifier Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

// Engine is the single owner of the ledger.
type Engine struct {
	store    store.Store
	catalog  catalog.Loader
	rules    eligibility.Rules
	teams    []string
	random   RandomSource
	locker   lock.Manager
	lockKey  string
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	ledger *model.Ledger
}

// New creates an engine holding an empty ledger. Call Open to load the
// persisted snapshot.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("ledger: store is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("ledger: catalog is required")
	}
	if len(cfg.Teams) == 0 {
		return nil, errors.New("ledger: at least one team is required")
	}
	seen := make(map[string]bool, len(cfg.Teams))
	for _, name := range cfg.Teams {
		if name == "" {
			return nil, errors.New("ledger: team names must not be empty")
		}
		if seen[name] {
			return nil, fmt.Errorf("ledger: duplicate team %q", name)
		}
		seen[name] = true
	}

	e := &Engine{
		store:    cfg.Store,
		catalog:  cfg.Catalog,
		rules:    cfg.Rules,
		teams:    append([]string(nil), cfg.Teams...),
		random:   cfg.Random,
		locker:   cfg.Locker,
		lockKey:  cfg.LockKey,
		notifier: cfg.Notifier,
		log:      cfg.Logger,
		now:      cfg.Now,
	}
	if e.random == nil {
		e.random = NewRandomSource()
	}
	if e.lockKey == "" {
		e.lockKey = DefaultLockKey
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.ledger = e.emptyLedger()
	return e, nil
}

func (e *Engine) emptyLedger() *model.Ledger {
	return model.NewLedger(nil, e.teams, e.rules.InitialPoints)
}

// Open loads the persisted ledger. A missing, unreadable or inconsistent
// snapshot is replaced by a fresh Reset. The returned error is non-nil only
// when that Reset fails; the engine is usable either way.
func (e *Engine) Open(ctx context.Context) error {
	l, err := e.store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		e.log.Info("no saved ledger, initializing from catalog")
		return e.Reset(ctx)
	case err != nil:
		e.log.Warn("ledger load failed, re-initializing", "err", err)
		return e.Reset(ctx)
	}

	if err := l.CheckPlacement(); err != nil {
		e.log.Warn("saved ledger is inconsistent, re-initializing", "err", err)
		return e.Reset(ctx)
	}
	for _, name := range e.teams {
		if _, ok := l.Teams[name]; !ok {
			e.log.Warn("team missing from saved ledger, adding", "team", name)
			l.Teams[name] = &model.Team{Name: name, Points: e.rules.InitialPoints, Players: []model.Sale{}}
		}
	}
	if err := l.CheckBudgets(e.rules.InitialPoints); err != nil {
		e.log.Warn("saved ledger budgets disagree with initial points", "err", err)
	}

	e.mu.Lock()
	e.ledger = l
	e.mu.Unlock()
	e.observe(l)

	e.log.Info("ledger loaded",
		"players", len(l.Players),
		"unsold", len(l.UnsoldPlayerIDs),
		"teams", len(l.Teams),
	)
	return nil
}

// Reset rebuilds the ledger from the catalog: every team back to the
// initial budget with an empty roster and every player unsold. If the
// catalog cannot be read the in-memory ledger is left empty, nothing is
// persisted, and the error wraps model.ErrCatalogUnavailable.
func (e *Engine) Reset(ctx context.Context) error {
	return e.serialize(ctx, OpReset, func() error {
		players, err := e.catalog.LoadCatalog(ctx)
		if err != nil {
			e.ledger = e.emptyLedger()
			e.observe(e.ledger)
			if !errors.Is(err, model.ErrCatalogUnavailable) {
				err = fmt.Errorf("%w: %w", model.ErrCatalogUnavailable, err)
			}
			e.reject(OpReset, err)
			return err
		}
		next := model.NewLedger(players, e.teams, e.rules.InitialPoints)
		return e.commit(ctx, OpReset, next, nil, Event{Op: OpReset})
	})
}

// NextUnsoldPlayer picks a player uniformly at random from the unsold pool
// without removing it. ok is false when the pool is empty.
func (e *Engine) NextUnsoldPlayer() (p model.Player, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := e.ledger.UnsoldPlayerIDs
	if len(ids) == 0 {
		return model.Player{}, false
	}
	id := ids[e.random.IntN(len(ids))]
	return e.ledger.Players[id], true
}

// Sell awards an unsold player to a team for points.
func (e *Engine) Sell(ctx context.Context, playerID int, teamName string, points int64) error {
	ev := Event{Op: OpSell, PlayerID: playerID, Team: teamName, Points: points}
	return e.mutate(ctx, OpSell, &ev, func(l *model.Ledger) (*model.Transaction, error) {
		team, err := findTeam(l, teamName)
		if err != nil {
			return nil, err
		}
		if !l.IsUnsold(playerID) {
			return nil, fmt.Errorf("%w: player %d", model.ErrAlreadySoldOrInvalid, playerID)
		}
		if err := e.rules.CheckBid(team, points); err != nil {
			return nil, err
		}

		rec := &model.Transaction{
			ID:                uuid.NewString(),
			Type:              model.TransactionSell,
			PlayerID:          playerID,
			TeamName:          teamName,
			Points:            points,
			PreviousTeamState: team.Clone(),
			CreatedAt:         e.now().UTC(),
		}
		team.Players = append(team.Players, model.Sale{PlayerID: playerID, Points: points})
		team.Points -= points
		l.RemoveUnsold(playerID)
		return rec, nil
	})
}

// Unsell removes a sale from a team, refunds it, and returns the player to
// the unsold pool.
func (e *Engine) Unsell(ctx context.Context, playerID int, teamName string) error {
	ev := Event{Op: OpUnsell, PlayerID: playerID, Team: teamName}
	return e.mutate(ctx, OpUnsell, &ev, func(l *model.Ledger) (*model.Transaction, error) {
		team, err := findTeam(l, teamName)
		if err != nil {
			return nil, err
		}
		i := team.FindSale(playerID)
		if i < 0 {
			return nil, fmt.Errorf("%w: player %d is not on %s", model.ErrPlayerNotOnRoster, playerID, teamName)
		}
		sale := team.RemoveSale(i)
		team.Points += sale.Points
		l.AddUnsold(playerID)
		return nil, nil
	})
}

// TransferSale moves a sale from one team to another at newPoints,
// refunding the source and debiting the destination.
func (e *Engine) TransferSale(ctx context.Context, playerID int, fromTeam, toTeam string, newPoints int64) error {
	ev := Event{Op: OpTransfer, PlayerID: playerID, FromTeam: fromTeam, Team: toTeam, Points: newPoints}
	return e.mutate(ctx, OpTransfer, &ev, func(l *model.Ledger) (*model.Transaction, error) {
		src, err := findTeam(l, fromTeam)
		if err != nil {
			return nil, err
		}
		dst, err := findTeam(l, toTeam)
		if err != nil {
			return nil, err
		}
		i := src.FindSale(playerID)
		if i < 0 {
			return nil, fmt.Errorf("%w: player %d is not on %s", model.ErrPlayerNotOnRoster, playerID, fromTeam)
		}

		sale := src.RemoveSale(i)
		src.Points += sale.Points
		if err := e.rules.CheckTransfer(dst, newPoints); err != nil {
			return nil, err
		}
		sale.Points = newPoints
		dst.Players = append(dst.Players, sale)
		dst.Points -= newPoints
		return nil, nil
	})
}

// EditSaleAmount changes what a team paid for a player, adjusting the
// team's budget by the difference.
func (e *Engine) EditSaleAmount(ctx context.Context, playerID int, teamName string, newPoints int64) error {
	ev := Event{Op: OpEdit, PlayerID: playerID, Team: teamName, Points: newPoints}
	return e.mutate(ctx, OpEdit, &ev, func(l *model.Ledger) (*model.Transaction, error) {
		team, err := findTeam(l, teamName)
		if err != nil {
			return nil, err
		}
		i := team.FindSale(playerID)
		if i < 0 {
			return nil, fmt.Errorf("%w: player %d is not on %s", model.ErrPlayerNotOnRoster, playerID, teamName)
		}
		old := team.Players[i].Points
		if err := e.rules.CheckEdit(team, old, newPoints); err != nil {
			return nil, err
		}
		team.Points += old - newPoints
		team.Players[i].Points = newPoints
		return nil, nil
	})
}

// Undo reverts the most recent sale by restoring the buying team's
// pre-sale snapshot and returning the player to the unsold pool.
func (e *Engine) Undo(ctx context.Context) error {
	ev := Event{Op: OpUndo}
	return e.mutate(ctx, OpUndo, &ev, func(l *model.Ledger) (*model.Transaction, error) {
		if historyOf(l) != HistoryPendingSell {
			return nil, model.ErrNothingToUndo
		}
		rec := l.LastTransaction
		if _, ok := l.Teams[rec.TeamName]; !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrTeamNotFound, rec.TeamName)
		}
		ev.PlayerID, ev.Team, ev.Points = rec.PlayerID, rec.TeamName, rec.Points
		prev := rec.PreviousTeamState.Clone()
		if prev.Name == "" {
			prev.Name = rec.TeamName
		}
		l.Teams[rec.TeamName] = &prev
		l.AddUnsold(rec.PlayerID)
		return nil, nil
	})
}

// Snapshot returns a deep copy of the ledger.
func (e *Engine) Snapshot() *model.Ledger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Clone()
}

// TeamView is a team with its derived bidding ceiling.
type TeamView struct {
	Name    string       `json:"name"`
	Points  int64        `json:"points"`
	Players []model.Sale `json:"players"`
	MaxBid  int64        `json:"bidding_power"`
}

// Teams returns every team sorted by name, with MaxBid computed now.
func (e *Engine) Teams() []TeamView {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return teamViews(e.ledger, e.rules)
}

func teamViews(l *model.Ledger, rules eligibility.Rules) []TeamView {
	names := l.TeamNames()
	out := make([]TeamView, 0, len(names))
	for _, name := range names {
		t := l.Teams[name]
		c := t.Clone()
		out = append(out, TeamView{
			Name:    name,
			Points:  c.Points,
			Players: c.Players,
			MaxBid:  rules.MaxBid(t),
		})
	}
	return out
}

// View is one consistent read of the ledger: the teams and history state
// are derived from Ledger under the same lock.
type View struct {
	Ledger  *model.Ledger
	Teams   []TeamView
	History HistoryState
}

// View returns a deep copy of the ledger together with its team views.
func (e *Engine) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return View{
		Ledger:  e.ledger.Clone(),
		Teams:   teamViews(e.ledger, e.rules),
		History: historyOf(e.ledger),
	}
}

// Sync reloads the shared snapshot so reads observe writes made by other
// processes. It does nothing unless a lock manager is configured, since
// the engine is then the only writer.
func (e *Engine) Sync(ctx context.Context) error {
	if e.locker == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refresh(ctx)
}

// Rules returns the bidding rules in force.
func (e *Engine) Rules() eligibility.Rules { return e.rules }

// HistoryState reports whether a sale is pending undo.
func (e *Engine) HistoryState() HistoryState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return historyOf(e.ledger)
}

// --- internals ---

func findTeam(l *model.Ledger, name string) (*model.Team, error) {
	t, ok := l.Teams[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrTeamNotFound, name)
	}
	return t, nil
}

// serialize runs fn under the process mutex and, if configured, the
// distributed lock. With the distributed lock held the in-memory ledger is
// first refreshed from the store, since another process may have written.
func (e *Engine) serialize(ctx context.Context, op Op, fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.locker == nil {
		return fn()
	}
	err := lock.WithLock(ctx, e.locker, e.lockKey, func() error {
		if err := e.refresh(ctx); err != nil {
			return err
		}
		return fn()
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		err = model.ErrLedgerBusy
		e.reject(op, err)
	}
	return err
}

// refresh replaces the in-memory ledger with the stored one. Caller holds e.mu.
func (e *Engine) refresh(ctx context.Context) error {
	l, err := e.store.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrCorrupt):
		return nil
	case err != nil:
		return fmt.Errorf("%w: reload ledger: %w", model.ErrPersistence, err)
	}
	if err := l.CheckPlacement(); err != nil {
		e.log.Warn("stored ledger is inconsistent, keeping in-memory copy", "err", err)
		return nil
	}
	e.ledger = l
	return nil
}

// mutate applies fn to a copy of the ledger and commits it.
func (e *Engine) mutate(ctx context.Context, op Op, ev *Event, fn func(l *model.Ledger) (*model.Transaction, error)) error {
	return e.serialize(ctx, op, func() error {
		next := e.ledger.Clone()
		rec, err := fn(next)
		if err != nil {
			e.reject(op, err)
			return err
		}
		return e.commit(ctx, op, next, rec, *ev)
	})
}

// commit records history, persists next and swaps it in. Caller holds e.mu.
func (e *Engine) commit(ctx context.Context, op Op, next *model.Ledger, rec *model.Transaction, ev Event) error {
	if err := advance(next, op, rec); err != nil {
		return err
	}
	if err := next.CheckPlacement(); err != nil {
		e.reject(op, err)
		return err
	}

	start := time.Now()
	err := e.store.Save(ctx, next)
	metrics.ObserveSave(start)
	if err != nil {
		err = fmt.Errorf("%w: save ledger: %w", model.ErrPersistence, err)
		e.reject(op, err)
		e.log.Error("ledger save failed", "op", op, "err", err)
		return err
	}

	e.ledger = next
	metrics.OperationsTotal.WithLabelValues(string(op)).Inc()
	if op == OpSell {
		metrics.PointsSold.Add(float64(ev.Points))
	}
	e.observe(next)

	e.log.Info("ledger updated",
		"op", op,
		"player_id", ev.PlayerID,
		"team", ev.Team,
		"points", ev.Points,
		"unsold", len(next.UnsoldPlayerIDs),
	)

	if e.notifier != nil {
		ev.At = e.now().UTC()
		e.notifier.Notify(ev)
	}
	return nil
}

func (e *Engine) observe(l *model.Ledger) {
	metrics.UnsoldPlayers.Set(float64(len(l.UnsoldPlayerIDs)))
	for name, t := range l.Teams {
		metrics.TeamPointsRemaining.WithLabelValues(name).Set(float64(t.Points))
	}
}

func (e *Engine) reject(op Op, err error) {
	metrics.RejectionsTotal.WithLabelValues(string(op), ErrorKind(err)).Inc()
}

// ErrorKind names the error's kind for logs and metric labels.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrState):
		return "state"
	case errors.Is(err, model.ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}
