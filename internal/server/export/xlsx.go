// Package export renders term-sheet version histories as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/dealflow/internal/server/models"
	"github.com/xuri/excelize/v2"
)

var baseHeader = []string{"Version", "Locked", "Offered By", "Created At"}

// TermSheetHistoryXLSX writes one row per version, in the given order, with
// a column per term key seen in any version.
func TermSheetHistoryXLSX(kind models.TermSheetKind, versions []models.TermSheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := strings.ToUpper(string(kind)) + " history"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	keys := termKeys(versions)
	header := append(append([]string{}, baseHeader...), keys...)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, h := range header {
		if err := setCell(f, sheet, col+1, 1, h); err != nil {
			return nil, err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, v := range versions {
		row := i + 2
		values := []any{v.Version, v.Locked, v.OfferedBy, v.CreatedAt.UTC().Format("2006-01-02 15:04:05")}
		for _, k := range keys {
			values = append(values, cellValue(v.Terms[k]))
		}
		for col, val := range values {
			if err := setCell(f, sheet, col+1, row, val); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func termKeys(versions []models.TermSheet) []string {
	seen := map[string]struct{}{}
	for _, v := range versions {
		for k := range v.Terms {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string, bool, float64, int:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
