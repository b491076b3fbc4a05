// Package workbook serializes named tables to a single xlsx buffer and back,
// and applies the structured-table formatting pass. It is pure: no network,
// no filesystem.
package workbook

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"fleetreports/internal/report"
)

// Encode emits sheets in a stable order so diffs stay readable even though
// consumers index sheets by name: Summary, Events, HourlyAggregate, then any
// remaining sheets sorted by name.
var sheetOrder = []string{report.SheetSummary, report.SheetEvents, report.SheetHourly}

// dateColumns is the fixed per-sheet list of columns coerced to a date type
// on decode. Coercion failures degrade to text, never fail the decode.
var dateColumns = map[string]string{
	report.SheetSummary: report.ColDate,
	report.SheetEvents:  report.ColEventTime,
	report.SheetHourly:  report.ColHour,
}

// Encode serializes the named tables into a single xlsx byte buffer. Sheets
// absent from the map are absent from the workbook. Cell types string,
// float64, bool and time.Time round-trip through Decode without timezone
// shift.
func Encode(sheets map[string]report.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	names := make([]string, 0, len(sheets))
	for _, n := range sheetOrder {
		if _, ok := sheets[n]; ok {
			names = append(names, n)
		}
	}
	var extras []string
	for n := range sheets {
		if !isFixedSheet(n) {
			extras = append(extras, n)
		}
	}
	sort.Strings(extras)
	names = append(names, extras...)

	for i, name := range names {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("workbook: rename first sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("workbook: add sheet %s: %w", name, err)
			}
		}
		if err := writeSheet(f, name, sheets[name]); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("workbook: serialize: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, t report.Table) error {
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("workbook: write header of %s: %w", name, err)
	}
	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("workbook: row address in %s: %w", name, err)
		}
		values := append([]any(nil), row...)
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("workbook: write row %d of %s: %w", i+1, name, err)
		}
	}
	return nil
}

func isFixedSheet(name string) bool {
	for _, n := range sheetOrder {
		if n == name {
			return true
		}
	}
	return false
}

// Decode parses an xlsx buffer back into named tables. A sheet absent from
// the workbook is absent from the map (callers collapse absence to emptiness
// where their contract says so). A malformed buffer is an error: merging
// against an unknown existing state risks data loss, so nothing partial is
// returned.
func Decode(data []byte) (map[string]report.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("workbook: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	out := make(map[string]report.Table, len(f.GetSheetList()))
	for _, name := range f.GetSheetList() {
		t, err := decodeSheet(f, name)
		if err != nil {
			return nil, fmt.Errorf("workbook: sheet %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

func decodeSheet(f *excelize.File, name string) (report.Table, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return report.Table{}, err
	}
	if len(rows) == 0 {
		return report.Table{}, nil
	}
	t := report.Table{Columns: append([]string(nil), rows[0]...)}
	dateIdx := -1
	if col, ok := dateColumns[name]; ok {
		dateIdx = t.ColumnIndex(col)
	}
	for ri, raw := range rows[1:] {
		row := make([]any, len(t.Columns))
		for ci := range t.Columns {
			var val string
			if ci < len(raw) {
				val = raw[ci]
			}
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err != nil {
				return report.Table{}, err
			}
			row[ci] = coerceCell(f, name, cell, val, ci == dateIdx)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// coerceCell maps a raw cell back to a typed value. Strings stay strings
// (shared and inline), bools come back as bools, everything numeric becomes
// float64, and date-column serials become time.Time. A date cell that cannot
// be parsed stays text rather than failing the row.
func coerceCell(f *excelize.File, sheet, cell, raw string, isDate bool) any {
	ct, ctErr := f.GetCellType(sheet, cell)
	isString := ctErr == nil && (ct == excelize.CellTypeSharedString || ct == excelize.CellTypeInlineString)
	if isDate {
		if !isString {
			if serial, err := strconv.ParseFloat(raw, 64); err == nil {
				if ts, err := excelize.ExcelDateToTime(serial, false); err == nil {
					return ts
				}
			}
		}
		// date-like text still coerces; failures stay text
		for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts
			}
		}
		return raw
	}
	if isString {
		return raw
	}
	if ctErr == nil && ct == excelize.CellTypeBool {
		return raw == "1"
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}
