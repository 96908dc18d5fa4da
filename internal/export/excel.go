// Package export renders the ledger projection as an XLSX workbook: one
// sheet per team roster followed by a Summary sheet.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/Madhuiit/dcl/internal/ledger"
)

// Filename is the download name used by the HTTP export.
const Filename = "DCL_Auction_Report.xlsx"

// ContentType is the XLSX MIME type.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet = "Summary"
	maxSheetName = 31
)

// Workbook builds the report. The caller must Close the returned file.
func Workbook(p ledger.Projection) (*excelize.File, error) {
	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)

	used := map[string]bool{strings.ToLower(summarySheet): true}
	header := []any{"id", "player_name", "father_name"}
	for _, k := range p.AttributeKeys {
		header = append(header, k)
	}
	header = append(header, "Sold For Points")

	for i, team := range p.Teams {
		sheet := SheetName(team.Name, used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}

		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return nil, err
		}
		for r, row := range team.Roster {
			values := []any{row.Player.ID, row.Player.PlayerName, row.Player.FatherName}
			for _, k := range p.AttributeKeys {
				values = append(values, cellValue(row.Player.Attributes[k]))
			}
			values = append(values, row.Points)
			if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(r+2), &values); err != nil {
				return nil, err
			}
		}
	}

	if len(p.Teams) == 0 {
		if err := f.SetSheetName(defaultSheet, summarySheet); err != nil {
			return nil, err
		}
	} else if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	summaryHeader := []any{"Team Name", "Players Bought", "Points Remaining", "Points Spent", "Max Bid", "Average Price"}
	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
		return nil, err
	}
	for r, s := range p.Summary {
		values := []any{s.Team, s.PlayersBought, s.PointsRemaining, s.PointsSpent, s.MaxBid, s.AveragePrice.InexactFloat64()}
		if err := f.SetSheetRow(summarySheet, "A"+strconv.Itoa(r+2), &values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Write renders the report to w.
func Write(w io.Writer, p ledger.Projection) error {
	f, err := Workbook(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

// SheetName reduces a team name to its letters and digits, truncated to the
// 31-character sheet limit, and makes it unique against used (compared
// case-insensitively, as Excel does). The chosen name is added to used.
func SheetName(team string, used map[string]bool) string {
	var b strings.Builder
	for _, r := range team {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	base := truncate(b.String(), maxSheetName)
	if base == "" {
		base = "Team"
	}

	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := strconv.Itoa(n)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

func cellValue(v any) any {
	switch v := v.(type) {
	case nil:
		return ""
	case string, bool, float64, int, int64:
		return v
	default:
		return fmt.Sprint(v)
	}
}
