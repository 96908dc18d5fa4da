package export

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Madhuiit/dcl/internal/ledger"
	"github.com/Madhuiit/dcl/internal/model"
)

func sampleProjection() ledger.Projection {
	return ledger.Projection{
		Teams: []ledger.TeamExport{
			{Name: "Kevin XI", Roster: []ledger.RosterRow{
				{Player: model.Player{ID: 7, PlayerName: "Ravi", FatherName: "Mohan", Attributes: map[string]any{"village": "Lemda"}}, Points: 1500},
				{Player: model.Player{ID: 9, PlayerName: "Amit"}, Points: 500},
			}},
			{Name: "bhagat sing club", Roster: []ledger.RosterRow{}},
		},
		Summary: []ledger.SummaryRow{
			{Team: "Kevin XI", PlayersBought: 2, PointsRemaining: 108000, PointsSpent: 2000, MaxBid: 103500, AveragePrice: decimal.NewFromInt(1000)},
			{Team: "bhagat sing club", PlayersBought: 0, PointsRemaining: 110000, MaxBid: 104000, AveragePrice: decimal.Zero},
		},
		AttributeKeys: []string{"village"},
	}
}

func TestWorkbook(t *testing.T) {
	f, err := Workbook(sampleProjection())
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	defer f.Close()

	if want := []string{"KevinXI", "bhagatsingclub", "Summary"}; !reflect.DeepEqual(f.GetSheetList(), want) {
		t.Fatalf("sheets = %v, want %v", f.GetSheetList(), want)
	}

	rows, err := f.GetRows("KevinXI")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"id", "player_name", "father_name", "village", "Sold For Points"}; !reflect.DeepEqual(rows[0], want) {
		t.Errorf("header = %v, want %v", rows[0], want)
	}
	if want := []string{"7", "Ravi", "Mohan", "Lemda", "1500"}; !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row 1 = %v, want %v", rows[1], want)
	}
	if len(rows) != 3 {
		t.Errorf("rows = %d, want header plus 2", len(rows))
	}

	summary, err := f.GetRows("Summary")
	if err != nil {
		t.Fatal(err)
	}
	if summary[1][0] != "Kevin XI" || summary[1][1] != "2" || summary[1][2] != "108000" {
		t.Errorf("summary row = %v", summary[1])
	}
	if summary[2][0] != "bhagat sing club" || summary[2][2] != "110000" {
		t.Errorf("summary row = %v", summary[2])
	}
}

func TestWrite_ProducesReadableWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleProjection()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	if len(f.GetSheetList()) != 3 {
		t.Errorf("sheets = %v", f.GetSheetList())
	}
}

func TestWorkbook_NoTeams(t *testing.T) {
	f, err := Workbook(ledger.Projection{})
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	defer f.Close()
	if want := []string{"Summary"}; !reflect.DeepEqual(f.GetSheetList(), want) {
		t.Errorf("sheets = %v, want %v", f.GetSheetList(), want)
	}
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{"summary": true}
	tests := []struct {
		team string
		want string
	}{
		{"Naman Communication", "NamanCommunication"},
		{"Maa Karni club", "MaaKarniclub"},
		{"Summary", "Summary2"},
		{"!!!", "Team"},
		{"???", "Team2"},
		{"An Extremely Long Team Name That Overflows", "AnExtremelyLongTeamNameThatOver"},
		{"An Extremely Long Team Name That Overflows!", "AnExtremelyLongTeamNameThatOve2"},
	}
	for _, tt := range tests {
		if got := SheetName(tt.team, used); got != tt.want {
			t.Errorf("SheetName(%q) = %q, want %q", tt.team, got, tt.want)
		}
	}
}
