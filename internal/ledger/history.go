package ledger

import (
	"fmt"

	"github.com/Madhuiit/dcl/internal/model"
)

// Op names a mutating ledger operation.
type Op string

const (
	OpReset    Op = "reset"
	OpSell     Op = "sell"
	OpUnsell   Op = "unsell"
	OpTransfer Op = "transfer"
	OpEdit     Op = "edit"
	OpUndo     Op = "undo"
)

// HistoryState is the single-slot undo history: either nothing can be
// undone, or exactly the most recent sale can.
type HistoryState int

const (
	HistoryEmpty HistoryState = iota
	HistoryPendingSell
)

func (s HistoryState) String() string {
	switch s {
	case HistoryEmpty:
		return "empty"
	case HistoryPendingSell:
		return "pending_sell"
	default:
		return fmt.Sprintf("HistoryState(%d)", int(s))
	}
}

// historyOf reads the history state stored in l.
func historyOf(l *model.Ledger) HistoryState {
	if l.LastTransaction != nil && l.LastTransaction.Type == model.TransactionSell {
		return HistoryPendingSell
	}
	return HistoryEmpty
}

// advance applies the history transition for op to l. A sell installs rec
// as the pending record; every other operation discards whatever was
// pending.
func advance(l *model.Ledger, op Op, rec *model.Transaction) error {
	if op != OpSell {
		l.LastTransaction = nil
		return nil
	}
	if rec == nil || rec.Type != model.TransactionSell {
		return fmt.Errorf("ledger: sell committed without a sell record")
	}
	l.LastTransaction = rec
	return nil
}
