package ledger

import (
	"testing"

	"github.com/Madhuiit/dcl/internal/model"
)

func TestAdvance(t *testing.T) {
	sell := &model.Transaction{Type: model.TransactionSell, PlayerID: 1, TeamName: "A"}

	tests := []struct {
		name    string
		start   *model.Transaction
		op      Op
		rec     *model.Transaction
		want    HistoryState
		wantErr bool
	}{
		{"sell from empty", nil, OpSell, sell, HistoryPendingSell, false},
		{"sell replaces pending", sell, OpSell, &model.Transaction{Type: model.TransactionSell, PlayerID: 2}, HistoryPendingSell, false},
		{"sell without record", nil, OpSell, nil, HistoryEmpty, true},
		{"undo clears", sell, OpUndo, nil, HistoryEmpty, false},
		{"unsell clears", sell, OpUnsell, nil, HistoryEmpty, false},
		{"transfer clears", sell, OpTransfer, nil, HistoryEmpty, false},
		{"edit clears", sell, OpEdit, nil, HistoryEmpty, false},
		{"reset clears", sell, OpReset, nil, HistoryEmpty, false},
		{"non-sell ignores record", nil, OpEdit, sell, HistoryEmpty, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := model.NewLedger(nil, []string{"A"}, 100)
			l.LastTransaction = tt.start
			err := advance(l, tt.op, tt.rec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("advance error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := historyOf(l); got != tt.want {
				t.Errorf("state = %v, want %v", got, tt.want)
			}
			if tt.want == HistoryPendingSell && l.LastTransaction != tt.rec {
				t.Error("pending record should be the one just recorded")
			}
		})
	}
}

func TestHistoryState_String(t *testing.T) {
	if HistoryEmpty.String() != "empty" || HistoryPendingSell.String() != "pending_sell" {
		t.Errorf("unexpected names: %s, %s", HistoryEmpty, HistoryPendingSell)
	}
}
