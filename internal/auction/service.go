// Package auction provides the HTTP handlers for driving the ledger:
// selling, unselling, transferring and editing sales, undo, reset, search
// and export.
package auction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Madhuiit/dcl/internal/export"
	"github.com/Madhuiit/dcl/internal/ledger"
	"github.com/Madhuiit/dcl/internal/model"
)

// Service exposes the ledger engine over HTTP. Serialization of
// mutations lives in the engine, not here.
type Service struct {
	engine *ledger.Engine
}

// NewService creates a new auction service. Live updates reach clients
// through a WSHub registered as the engine's Notifier.
func NewService(engine *ledger.Engine) *Service {
	return &Service{engine: engine}
}

// Routes registers the API endpoints on r. Authentication and the
// WebSocket endpoint are the caller's concern.
func (s *Service) Routes(r chi.Router) {
	r.Get("/state", s.GetState)
	r.Get("/next_player", s.NextPlayer)
	r.Post("/sell", s.Sell)
	r.Post("/unsell_player", s.Unsell)
	r.Post("/transfer_sale", s.TransferSale)
	r.Post("/edit_sale", s.EditSale)
	r.Post("/undo", s.Undo)
	r.Post("/reset", s.Reset)
	r.Get("/search_players", s.SearchPlayers)
	r.Get("/export", s.Export)
	r.Get("/export/excel", s.ExportExcel)
}

// --- Request/Response types ---

// Int accepts a JSON number or a string holding one. Dashboards post ids
// read from form fields, so both forms occur.
type Int int64

func (n *Int) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*n = Int(v)
	return nil
}

// SellRequest is the JSON body for POST /api/sell.
type SellRequest struct {
	PlayerID *Int   `json:"playerId"`
	TeamName string `json:"teamName"`
	Points   Int    `json:"points"` // omitted means 0
}

// UnsellRequest is the JSON body for POST /api/unsell_player.
type UnsellRequest struct {
	PlayerID *Int   `json:"playerId"`
	TeamName string `json:"teamName"`
}

// TransferRequest is the JSON body for POST /api/transfer_sale.
type TransferRequest struct {
	PlayerID         *Int   `json:"playerId"`
	OriginalTeamName string `json:"originalTeamName"`
	NewTeamName      string `json:"newTeamName"`
	NewPoints        *Int   `json:"newPoints"`
}

// EditRequest is the JSON body for POST /api/edit_sale.
type EditRequest struct {
	PlayerID  *Int   `json:"playerId"`
	TeamName  string `json:"teamName"`
	NewPoints *Int   `json:"newPoints"`
}

// StateResponse is the full ledger with each team's derived bidding power.
type StateResponse struct {
	Players         map[int]model.Player       `json:"players"`
	Teams           map[string]ledger.TeamView `json:"teams"`
	UnsoldPlayerIDs []int                      `json:"unsold_player_ids"`
	LastTransaction *model.Transaction         `json:"last_transaction"`
	History         string                     `json:"history"`
}

// MutationResponse acknowledges a mutation. State is included for the
// operations whose callers re-render from it.
type MutationResponse struct {
	Success bool           `json:"success"`
	State   *StateResponse `json:"state,omitempty"`
}

func (s *Service) state() *StateResponse {
	v := s.engine.View()
	teams := make(map[string]ledger.TeamView, len(v.Teams))
	for _, tv := range v.Teams {
		teams[tv.Name] = tv
	}
	return &StateResponse{
		Players:         v.Ledger.Players,
		Teams:           teams,
		UnsoldPlayerIDs: v.Ledger.UnsoldPlayerIDs,
		LastTransaction: v.Ledger.LastTransaction,
		History:         v.History.String(),
	}
}

// sync pulls writes made by other processes before a read. A failed reload
// is logged and the current copy is served.
func (s *Service) sync(r *http.Request) {
	if err := s.engine.Sync(r.Context()); err != nil {
		slog.Warn("ledger reload failed, serving cached copy", "path", r.URL.Path, "err", err)
	}
}

// --- HTTP Handlers ---

// GetState handles GET /api/state
func (s *Service) GetState(w http.ResponseWriter, r *http.Request) {
	s.sync(r)
	writeJSON(w, http.StatusOK, s.state())
}

// NextPlayer handles GET /api/next_player. It responds null once every
// player is sold.
func (s *Service) NextPlayer(w http.ResponseWriter, r *http.Request) {
	s.sync(r)
	p, ok := s.engine.NextUnsoldPlayer()
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Sell handles POST /api/sell
func (s *Service) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PlayerID == nil || req.TeamName == "" {
		writeError(w, "playerId and teamName are required", http.StatusBadRequest)
		return
	}

	err := s.engine.Sell(r.Context(), int(*req.PlayerID), req.TeamName, int64(req.Points))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, State: s.state()})
}

// Unsell handles POST /api/unsell_player
func (s *Service) Unsell(w http.ResponseWriter, r *http.Request) {
	var req UnsellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PlayerID == nil || req.TeamName == "" {
		writeError(w, "Missing data", http.StatusBadRequest)
		return
	}

	if err := s.engine.Unsell(r.Context(), int(*req.PlayerID), req.TeamName); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true})
}

// TransferSale handles POST /api/transfer_sale
func (s *Service) TransferSale(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PlayerID == nil || req.OriginalTeamName == "" || req.NewTeamName == "" || req.NewPoints == nil {
		writeError(w, "Missing data for transfer.", http.StatusBadRequest)
		return
	}

	err := s.engine.TransferSale(r.Context(), int(*req.PlayerID), req.OriginalTeamName, req.NewTeamName, int64(*req.NewPoints))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true})
}

// EditSale handles POST /api/edit_sale
func (s *Service) EditSale(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PlayerID == nil || req.TeamName == "" || req.NewPoints == nil {
		writeError(w, "Missing data for edit.", http.StatusBadRequest)
		return
	}

	if err := s.engine.EditSaleAmount(r.Context(), int(*req.PlayerID), req.TeamName, int64(*req.NewPoints)); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true})
}

// Undo handles POST /api/undo
func (s *Service) Undo(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Undo(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, State: s.state()})
}

// Reset handles POST /api/reset
func (s *Service) Reset(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reset(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	slog.Info("auction reset", "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, State: s.state()})
}

// SearchPlayers handles GET /api/search_players?q=
func (s *Service) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	s.sync(r)
	writeJSON(w, http.StatusOK, s.engine.SearchUnsold(r.URL.Query().Get("q")))
}

// Export handles GET /api/export
func (s *Service) Export(w http.ResponseWriter, r *http.Request) {
	s.sync(r)
	writeJSON(w, http.StatusOK, s.engine.ExportProjection())
}

// ExportExcel handles GET /api/export/excel
func (s *Service) ExportExcel(w http.ResponseWriter, r *http.Request) {
	s.sync(r)
	var buf bytes.Buffer
	if err := export.Write(&buf, s.engine.ExportProjection()); err != nil {
		slog.Error("excel export failed", "err", err)
		writeError(w, "failed to build report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// writeEngineError maps a ledger error to a status by its kind.
func writeEngineError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("ledger operation failed", "err", err)
		msg = "failed to save auction state"
	}
	writeError(w, msg, status)
}

// StatusFor returns the HTTP status for an engine error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrLedgerBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrState):
		return http.StatusConflict
	case errors.Is(err, model.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
