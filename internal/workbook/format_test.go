package workbook

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"fleetreports/internal/report"
)

func sheetNames(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return f.GetSheetList(), nil
}

func tableNames(t *testing.T, data []byte) map[string][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = f.Close() }()
	out := make(map[string][]string)
	for _, sheet := range f.GetSheetList() {
		tables, err := f.GetTables(sheet)
		if err != nil {
			t.Fatalf("tables of %s: %v", sheet, err)
		}
		for _, tbl := range tables {
			out[sheet] = append(out[sheet], tbl.Name)
		}
	}
	return out
}

func encoded(t *testing.T) []byte {
	t.Helper()
	summary := report.NewSummaryTable()
	summary.Rows = append(summary.Rows, []any{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 87.5, 4.0, "RRP"})
	events := report.NewEventsTable()
	events.Rows = append(events.Rows, []any{"AAA", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), report.EventEntry, "AAA", "Gate1"})
	data, err := Encode(map[string]report.Table{
		report.SheetSummary: summary,
		report.SheetEvents:  events,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestApplyTableStyle_CreatesNamedTables(t *testing.T) {
	res := ApplyTableStyle(encoded(t))
	if !res.Formatted || res.Warning != nil {
		t.Fatalf("formatting degraded: %v", res.Warning)
	}
	names := tableNames(t, res.Data)
	if got := names[report.SheetSummary]; len(got) != 1 || got[0] != "Table_Summary" {
		t.Fatalf("summary tables = %v", got)
	}
	if got := names[report.SheetEvents]; len(got) != 1 || got[0] != "Table_Events" {
		t.Fatalf("events tables = %v", got)
	}
}

func TestApplyTableStyle_Idempotent(t *testing.T) {
	once := ApplyTableStyle(encoded(t))
	if !once.Formatted {
		t.Fatalf("first pass degraded: %v", once.Warning)
	}
	twice := ApplyTableStyle(once.Data)
	if !twice.Formatted {
		t.Fatalf("second pass degraded: %v", twice.Warning)
	}
	first, second := tableNames(t, once.Data), tableNames(t, twice.Data)
	for sheet, names := range first {
		if len(second[sheet]) != len(names) {
			t.Fatalf("sheet %s: table count changed on second pass: %v vs %v", sheet, names, second[sheet])
		}
	}
}

func TestApplyTableStyle_SkipsHeaderOnlySheets(t *testing.T) {
	data, err := Encode(map[string]report.Table{report.SheetSummary: report.NewSummaryTable()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	res := ApplyTableStyle(data)
	if !res.Formatted {
		t.Fatalf("header-only sheet degraded the pass: %v", res.Warning)
	}
	if names := tableNames(t, res.Data); len(names[report.SheetSummary]) != 0 {
		t.Fatalf("header-only sheet got a table: %v", names)
	}
}

func TestApplyTableStyle_DegradesOnGarbage(t *testing.T) {
	in := []byte("not a workbook at all")
	res := ApplyTableStyle(in)
	if res.Formatted {
		t.Fatalf("garbage input reported formatted")
	}
	if res.Warning == nil {
		t.Fatalf("expected a warning")
	}
	if !bytes.Equal(res.Data, in) {
		t.Fatalf("degraded result must be the original bytes")
	}
}

func TestApplyTableStyle_DecodeSurvives(t *testing.T) {
	res := ApplyTableStyle(encoded(t))
	if _, err := Decode(res.Data); err != nil {
		t.Fatalf("decode of formatted workbook: %v", err)
	}
}
