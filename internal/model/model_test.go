package model

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestPlayer_KeepsExtraAttributes(t *testing.T) {
	raw := `{"id": 7, "player_name": "Ravi", "father_name": "Mohan", "village": "Lemda", "age": 24}`

	var p Player
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != 7 || p.PlayerName != "Ravi" || p.FatherName != "Mohan" {
		t.Fatalf("unexpected identity fields: %+v", p)
	}
	if p.Attributes["village"] != "Lemda" {
		t.Errorf("village = %v, want Lemda", p.Attributes["village"])
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Player
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal back: %v", err)
	}
	if !reflect.DeepEqual(p, back) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, p)
	}
}

func TestPlayer_StringID(t *testing.T) {
	var p Player
	if err := json.Unmarshal([]byte(`{"id": "12", "player_name": "X"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != 12 {
		t.Errorf("ID = %d, want 12", p.ID)
	}
	if p.Attributes != nil {
		t.Errorf("expected no attributes, got %v", p.Attributes)
	}
}

func TestPlayer_MissingID(t *testing.T) {
	var p Player
	if err := json.Unmarshal([]byte(`{"player_name": "X"}`), &p); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestLedger_CloneIsDeep(t *testing.T) {
	l := NewLedger([]Player{{ID: 1, PlayerName: "A"}, {ID: 2, PlayerName: "B"}}, []string{"T"}, 100)
	c := l.Clone()

	c.Teams["T"].Players = append(c.Teams["T"].Players, Sale{PlayerID: 1, Points: 10})
	c.Teams["T"].Points -= 10
	c.RemoveUnsold(1)

	if len(l.Teams["T"].Players) != 0 || l.Teams["T"].Points != 100 {
		t.Errorf("original team mutated: %+v", l.Teams["T"])
	}
	if !l.IsUnsold(1) {
		t.Error("original unsold pool mutated")
	}
}

func TestLedger_AddUnsoldIsIdempotent(t *testing.T) {
	l := NewLedger([]Player{{ID: 1}}, nil, 0)
	l.AddUnsold(1)
	l.AddUnsold(1)
	if len(l.UnsoldPlayerIDs) != 1 {
		t.Errorf("unsold = %v, want one entry", l.UnsoldPlayerIDs)
	}
}

func TestLedger_Validate(t *testing.T) {
	fresh := func() *Ledger {
		return NewLedger([]Player{{ID: 1}, {ID: 2}}, []string{"A", "B"}, 100)
	}

	tests := []struct {
		name   string
		mutate func(l *Ledger)
		want   string
	}{
		{"fresh", func(*Ledger) {}, ""},
		{"consistent sale", func(l *Ledger) {
			l.RemoveUnsold(1)
			l.Teams["A"].Players = append(l.Teams["A"].Players, Sale{PlayerID: 1, Points: 40})
			l.Teams["A"].Points = 60
		}, ""},
		{"sold and unsold", func(l *Ledger) {
			l.Teams["A"].Players = append(l.Teams["A"].Players, Sale{PlayerID: 1, Points: 0})
		}, "held by unsold"},
		{"two teams", func(l *Ledger) {
			l.RemoveUnsold(1)
			l.Teams["A"].Players = append(l.Teams["A"].Players, Sale{PlayerID: 1})
			l.Teams["B"].Players = append(l.Teams["B"].Players, Sale{PlayerID: 1})
		}, "held by"},
		{"missing", func(l *Ledger) { l.RemoveUnsold(2) }, "neither sold nor unsold"},
		{"budget drift", func(l *Ledger) { l.Teams["B"].Points = 90 }, "spent 0"},
		{"spend overflows", func(l *Ledger) {
			l.RemoveUnsold(1)
			l.RemoveUnsold(2)
			a := l.Teams["A"]
			a.Players = []Sale{{PlayerID: 1, Points: math.MaxInt64}, {PlayerID: 2, Points: 10}}
			// Budget after both debits; the total spend no longer fits.
			p := int64(100)
			p -= math.MaxInt64
			p -= 10
			a.Points = p
		}, "out-of-range sale"},
		{"negative sale", func(l *Ledger) {
			l.RemoveUnsold(1)
			l.Teams["A"].Players = []Sale{{PlayerID: 1, Points: -5}}
			l.Teams["A"].Points = 105
		}, "out-of-range sale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := fresh()
			tt.mutate(l)
			err := l.Validate(100)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want containing %q", err, tt.want)
			}
			if !errors.Is(err, ErrInvariant) || !errors.Is(err, ErrState) {
				t.Errorf("error should unwrap to ErrInvariant and ErrState: %v", err)
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	cases := map[error]error{
		ErrBidExceedsLimit:      ErrValidation,
		ErrBidBelowMinimum:      ErrValidation,
		ErrTeamNotFound:         ErrNotFound,
		ErrPlayerNotOnRoster:    ErrNotFound,
		ErrAlreadySoldOrInvalid: ErrState,
		ErrNothingToUndo:        ErrState,
		ErrCatalogUnavailable:   ErrPersistence,
	}
	for err, kind := range cases {
		if !errors.Is(err, kind) {
			t.Errorf("%v should be a %v", err, kind)
		}
	}
}
