package reports

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	memorystore "fleetreports/internal/infra/blob/memory"
	"fleetreports/internal/ledger"
	"fleetreports/internal/report"
	"fleetreports/internal/workbook"
)

func testConfig() Config {
	return Config{Folder: "Reports", File: "fleet_reports.xlsx", DropIfEmpty: true, Facility: "RRP"}
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *memorystore.Store) {
	t.Helper()
	store := memorystore.New()
	return New(store, cfg), store
}

func summaryRecord(day time.Time) report.DailySummaryRecord {
	return report.DailySummaryRecord{
		Date:           day,
		AvgDwell:       87.5,
		MaintenancePct: 96.25,
		Facility:       "RRP",
	}
}

func eventsBatch(poi string, times ...time.Time) report.Table {
	t := report.NewEventsTable()
	for _, ts := range times {
		t.Rows = append(t.Rows, []any{"TRK-001", ts, "entry", "TRK-001", poi})
	}
	return t
}

func hourlyBatch(poi string, hours ...time.Time) report.Table {
	t := report.NewHourlyTable()
	for _, h := range hours {
		t.Rows = append(t.Rows, []any{h, float64(1), float64(0), float64(1), float64(0), poi, "TRK-001"})
	}
	return t
}

func storedBytes(t *testing.T, store *memorystore.Store) []byte {
	t.Helper()
	_, rc, err := store.Get(context.Background(), "Reports/fleet_reports.xlsx")
	if err != nil {
		t.Fatalf("get stored report: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read stored report: %v", err)
	}
	return data
}

func storedSheets(t *testing.T, store *memorystore.Store) map[string]report.Table {
	t.Helper()
	sheets, err := workbook.Decode(storedBytes(t, store))
	if err != nil {
		t.Fatalf("decode stored report: %v", err)
	}
	return sheets
}

func TestUpsertDailySummary_CreatesReport(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, testConfig())

	out, err := m.UpsertDailySummary(ctx, summaryRecord(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if out != OutcomeSuccess {
		t.Fatalf("outcome = %q", out)
	}
	if !store.HasFolder("Reports") {
		t.Fatalf("folder was not ensured")
	}

	table, found, err := m.LoadSummary(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatalf("report not found after upsert")
	}
	if len(table.Rows) != 1 {
		t.Fatalf("rows = %d", len(table.Rows))
	}
	row := table.Rows[0]
	di := table.ColumnIndex(report.ColDate)
	ts, ok := report.CellTime(row[di])
	if !ok || !report.SameDay(ts, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date cell = %v", row[di])
	}
	if v := row[table.ColumnIndex(report.ColAvgDwell)]; v != 87.5 {
		t.Fatalf("avg dwell = %v", v)
	}
	if v := row[table.ColumnIndex(report.ColMaintenancePct)]; v != 96.25 {
		t.Fatalf("maintenance pct = %v", v)
	}
	if v := row[table.ColumnIndex(report.ColFacility)]; v != "RRP" {
		t.Fatalf("facility = %v", v)
	}
}

func TestUpsertDailySummary_DuplicateDateRejected(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, testConfig())

	if _, err := m.UpsertDailySummary(ctx, summaryRecord(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	before := storedBytes(t, store)

	out, err := m.UpsertDailySummary(ctx, summaryRecord(time.Date(2024, 3, 1, 22, 15, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("duplicate upsert: %v", err)
	}
	if out != OutcomeRejected {
		t.Fatalf("outcome = %q, want rejected", out)
	}
	if !bytes.Equal(before, storedBytes(t, store)) {
		t.Fatalf("stored report changed on a rejected upsert")
	}

	table, _, err := m.LoadSummary(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("rows = %d after rejection", len(table.Rows))
	}
}

func TestUpsertEventPartition_ReplacesOnlyTargetSlice(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, testConfig())

	march := func(day, hour int) time.Time {
		return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
	}

	if _, err := m.UpsertEventPartition(ctx,
		eventsBatch("Gate1", march(1, 8), march(2, 9), march(3, 10)),
		hourlyBatch("Gate1", march(1, 8)), "Gate1", time.March, 2024); err != nil {
		t.Fatalf("seed gate1: %v", err)
	}
	if _, err := m.UpsertEventPartition(ctx,
		eventsBatch("Gate2", march(5, 11), march(6, 12)),
		hourlyBatch("Gate2", march(5, 11)), "Gate2", time.March, 2024); err != nil {
		t.Fatalf("seed gate2: %v", err)
	}

	// Re-publish Gate1 March with a different batch: its old rows vanish,
	// Gate2 rows stay.
	if _, err := m.UpsertEventPartition(ctx,
		eventsBatch("Gate1", march(10, 7), march(11, 7), march(12, 7), march(13, 7), march(14, 7)),
		hourlyBatch("Gate1", march(10, 7)), "Gate1", time.March, 2024); err != nil {
		t.Fatalf("replace gate1: %v", err)
	}

	events, err := m.LoadPartition(ctx, KindEvents)
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events.Rows) != 7 {
		t.Fatalf("events rows = %d, want 5 new gate1 + 2 gate2", len(events.Rows))
	}
	pi := events.ColumnIndex(report.ColPOI)
	counts := map[string]int{}
	for _, row := range events.Rows {
		counts[report.CellString(row[pi])]++
	}
	if counts["Gate1"] != 5 || counts["Gate2"] != 2 {
		t.Fatalf("per-poi counts = %v", counts)
	}
}

func TestUpsertEventPartition_Idempotent(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, testConfig())

	batch := eventsBatch("Gate1",
		time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))
	hourly := hourlyBatch("Gate1", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		if _, err := m.UpsertEventPartition(ctx, batch, hourly, "Gate1", time.March, 2024); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	events, err := m.LoadPartition(ctx, KindEvents)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events.Rows) != 2 {
		t.Fatalf("events rows = %d after repeated upserts", len(events.Rows))
	}
	agg, err := m.LoadPartition(ctx, KindHourly)
	if err != nil {
		t.Fatalf("load hourly: %v", err)
	}
	if len(agg.Rows) != 1 {
		t.Fatalf("hourly rows = %d after repeated upserts", len(agg.Rows))
	}
}

func TestUpsertEventPartition_EmptyBatchOmitsSheet(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, testConfig())

	if _, err := m.UpsertEventPartition(ctx,
		eventsBatch("Gate1", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
		report.NewHourlyTable(), "Gate1", time.March, 2024); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	sheets := storedSheets(t, store)
	if _, ok := sheets[report.SheetEvents]; !ok {
		t.Fatalf("Events sheet missing")
	}
	if _, ok := sheets[report.SheetHourly]; ok {
		t.Fatalf("HourlyAggregate sheet written for an empty batch")
	}
	if _, ok := sheets[report.SheetSummary]; !ok {
		t.Fatalf("Summary sheet missing")
	}
}

func TestUpsertDailySummary_DropIfEmptyDropsPartitionSheets(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, testConfig())

	if _, err := m.UpsertEventPartition(ctx,
		eventsBatch("Gate1", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
		report.NewHourlyTable(), "Gate1", time.March, 2024); err != nil {
		t.Fatalf("seed events: %v", err)
	}
	if _, err := m.UpsertDailySummary(ctx, summaryRecord(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("upsert summary: %v", err)
	}

	sheets := storedSheets(t, store)
	if _, ok := sheets[report.SheetEvents]; ok {
		t.Fatalf("Events sheet carried through a summary write with DropIfEmpty set")
	}
}

func TestUpsertDailySummary_CarriesSheetsWhenDropIfEmptyOff(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.DropIfEmpty = false
	m, store := newTestManager(t, cfg)

	if _, err := m.UpsertEventPartition(ctx,
		eventsBatch("Gate1", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
		report.NewHourlyTable(), "Gate1", time.March, 2024); err != nil {
		t.Fatalf("seed events: %v", err)
	}
	if _, err := m.UpsertDailySummary(ctx, summaryRecord(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("upsert summary: %v", err)
	}

	sheets := storedSheets(t, store)
	events, ok := sheets[report.SheetEvents]
	if !ok || len(events.Rows) != 1 {
		t.Fatalf("Events sheet not carried: ok=%v rows=%d", ok, len(events.Rows))
	}
}

func TestLoadSummary_AbsentFile(t *testing.T) {
	m, _ := newTestManager(t, testConfig())
	_, found, err := m.LoadSummary(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatalf("found a report that was never written")
	}
}

func TestLoadPartition_UnknownKind(t *testing.T) {
	m, _ := newTestManager(t, testConfig())
	if _, err := m.LoadPartition(context.Background(), SheetKind("Totals")); err == nil {
		t.Fatalf("expected error for unknown partition sheet")
	}
}

func TestManager_RecordsRunLedger(t *testing.T) {
	ctx := context.Background()
	runs := ledger.NewMemory()
	store := memorystore.New()
	m := New(store, testConfig(), WithLedger(runs))

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := m.UpsertDailySummary(ctx, summaryRecord(day)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if out, err := m.UpsertDailySummary(ctx, summaryRecord(day)); err != nil || out != OutcomeRejected {
		t.Fatalf("duplicate: out=%q err=%v", out, err)
	}

	entries, err := runs.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ledger entries = %d", len(entries))
	}
	if entries[0].Outcome != string(OutcomeRejected) || entries[1].Outcome != string(OutcomeSuccess) {
		t.Fatalf("outcomes = %q, %q", entries[0].Outcome, entries[1].Outcome)
	}
	if entries[0].Facility != "RRP" || entries[0].Kind != "daily_summary" {
		t.Fatalf("entry = %+v", entries[0])
	}
}
