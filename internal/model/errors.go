package model

import "errors"

// Error kinds. Every domain error below unwraps to exactly one of these so
// callers can branch on the kind without knowing the specific failure.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrState       = errors.New("state error")
	ErrPersistence = errors.New("persistence error")
)

var (
	ErrBidExceedsLimit   = newError(ErrValidation, "bid exceeds limit")
	ErrBidBelowMinimum   = newError(ErrValidation, "bid below minimum")
	ErrInvalidAmount     = newError(ErrValidation, "invalid amount")
	ErrTeamNotFound      = newError(ErrNotFound, "team not found")
	ErrPlayerNotOnRoster = newError(ErrNotFound, "player not on roster")
	ErrPlayerNotFound    = newError(ErrNotFound, "player not found")

	ErrAlreadySoldOrInvalid = newError(ErrState, "player already sold or invalid")
	ErrNothingToUndo        = newError(ErrState, "nothing to undo")
	ErrLedgerBusy           = newError(ErrState, "ledger is locked by another process")

	ErrCatalogUnavailable = newError(ErrPersistence, "catalog unavailable")
	ErrInvariant          = newError(ErrState, "ledger invariant violated")
)

type domainError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &domainError{kind: kind, msg: msg}
}

func (e *domainError) Error() string { return e.msg }

func (e *domainError) Unwrap() error { return e.kind }
