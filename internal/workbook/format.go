package workbook

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FormatResult carries the formatting pass outcome. The pass is best-effort
// and non-fatal: when Formatted is false the Data is the caller's original
// buffer and Warning says why, so callers can tell "formatted" from "stored
// unformatted" without treating either as an error.
type FormatResult struct {
	Data      []byte
	Formatted bool
	Warning   error
}

// ApplyTableStyle wraps each sheet's occupied rectangle in a named structured
// table with banded rows. The table name is Table_<sheet name with spaces as
// underscores>; when a table of that exact name already exists on the sheet
// creation is skipped, which makes the pass idempotent. Sheets with only a
// header row (or nothing) are left alone, since a structured table needs at
// least one data row.
func ApplyTableStyle(data []byte) FormatResult {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return FormatResult{Data: data, Warning: fmt.Errorf("workbook: open for formatting: %w", err)}
	}
	defer func() { _ = f.Close() }()

	for _, sheet := range f.GetSheetList() {
		if err := styleSheet(f, sheet); err != nil {
			return FormatResult{Data: data, Warning: err}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return FormatResult{Data: data, Warning: fmt.Errorf("workbook: serialize formatted: %w", err)}
	}
	return FormatResult{Data: buf.Bytes(), Formatted: true}
}

func styleSheet(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("workbook: read %s for formatting: %w", sheet, err)
	}
	lastRow := len(rows)
	lastCol := 0
	for _, r := range rows {
		if len(r) > lastCol {
			lastCol = len(r)
		}
	}
	if lastRow < 2 || lastCol < 1 {
		return nil
	}

	name := "Table_" + strings.ReplaceAll(sheet, " ", "_")
	tables, err := f.GetTables(sheet)
	if err != nil {
		return fmt.Errorf("workbook: list tables of %s: %w", sheet, err)
	}
	for _, t := range tables {
		if t.Name == name {
			return nil
		}
	}

	endCell, err := excelize.CoordinatesToCellName(lastCol, lastRow)
	if err != nil {
		return fmt.Errorf("workbook: table range of %s: %w", sheet, err)
	}
	banded := true
	table := excelize.Table{
		Range:             "A1:" + endCell,
		Name:              name,
		StyleName:         "TableStyleMedium9",
		ShowFirstColumn:   false,
		ShowLastColumn:    false,
		ShowRowStripes:    &banded,
		ShowColumnStripes: false,
	}
	if err := f.AddTable(sheet, &table); err != nil {
		return fmt.Errorf("workbook: add table %s: %w", name, err)
	}
	return nil
}
