// Package reports orchestrates the report merge-and-store cycle: load the
// current workbook from the remote repository, merge new data under the
// policy for its record kind, regenerate table formatting and write the
// result back. It is designed for one in-flight cycle at a time; the
// surrounding scheduler guarantees single-writer execution.
package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"fleetreports/internal/blob/core"
	"fleetreports/internal/ledger"
	"fleetreports/internal/metrics"
	"fleetreports/internal/report"
	"fleetreports/internal/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Outcome classifies an upsert for the caller. Rejected is a business
// outcome, not a failure: the write was skipped because the date already
// exists, and nothing on the remote changed.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailure  Outcome = "failure"
)

// Record kinds written to the run ledger.
const (
	kindDailySummary   = "daily_summary"
	kindEventPartition = "event_partition"
)

// SheetKind selects a partition sheet for LoadPartition.
type SheetKind string

const (
	KindEvents SheetKind = report.SheetEvents
	KindHourly SheetKind = report.SheetHourly
)

// Config carries the report's identity. The path is explicit construction
// state, never a module-level constant.
type Config struct {
	// Folder and File locate the single report inside the repository.
	Folder string
	File   string
	// DropIfEmpty preserves the legacy write shape: a sheet whose new
	// batch is empty is omitted from the write even when the stored
	// report had data there. Set false to carry untouched sheets forward.
	DropIfEmpty bool
	// Facility tags ledger entries; the report's identity implies it.
	Facility string
}

// Manager owns the load -> merge -> format -> store cycle for one report.
type Manager struct {
	store core.Store
	cfg   Config
	log   *slog.Logger
	met   *metrics.Registry
	runs  ledger.Ledger
}

// Option configures optional manager collaborators.
type Option func(*Manager)

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

// WithMetrics attaches Prometheus collectors.
func WithMetrics(r *metrics.Registry) Option { return func(m *Manager) { m.met = r } }

// WithLedger attaches a run ledger.
func WithLedger(l ledger.Ledger) Option { return func(m *Manager) { m.runs = l } }

// New constructs a manager over the given repository store.
func New(store core.Store, cfg Config, opts ...Option) *Manager {
	m := &Manager{store: store, cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) path() string { return path.Join(m.cfg.Folder, m.cfg.File) }

// load reads and decodes the current report. A missing file is (nil, false,
// nil): absence is a state, not an error. A malformed file is fatal for the
// call; merging against unknown existing state risks data loss.
func (m *Manager) load(ctx context.Context) (map[string]report.Table, bool, error) {
	_, rc, err := m.store.Get(ctx, m.path())
	if errors.Is(err, core.ErrNotFound) {
		m.countStore("get", "not_found")
		return nil, false, nil
	}
	if err != nil {
		m.countStore("get", "error")
		return nil, false, fmt.Errorf("reports: read %s: %w", m.path(), err)
	}
	m.countStore("get", "ok")
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("reports: read %s: %w", m.path(), err)
	}
	sheets, err := workbook.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("reports: decode %s: %w", m.path(), err)
	}
	return sheets, true, nil
}

// LoadSummary returns the current Summary sheet. The bool is false when the
// report file does not exist yet; that is not an error.
func (m *Manager) LoadSummary(ctx context.Context) (report.Table, bool, error) {
	sheets, found, err := m.load(ctx)
	if err != nil || !found {
		return report.Table{}, false, err
	}
	return sheets[report.SheetSummary], true, nil
}

// LoadPartition returns the current Events or HourlyAggregate sheet, empty
// when the file or the sheet is absent.
func (m *Manager) LoadPartition(ctx context.Context, kind SheetKind) (report.Table, error) {
	if kind != KindEvents && kind != KindHourly {
		return report.Table{}, fmt.Errorf("reports: unknown partition sheet %q", kind)
	}
	sheets, found, err := m.load(ctx)
	if err != nil || !found {
		return report.Table{}, err
	}
	return sheets[string(kind)], nil
}

// UpsertDailySummary applies the point-dedup policy and stores the result.
// A record whose calendar day already exists returns OutcomeRejected with a
// nil error and leaves the stored report untouched.
func (m *Manager) UpsertDailySummary(ctx context.Context, rec report.DailySummaryRecord) (Outcome, error) {
	start := time.Now()
	entry := ledger.Entry{
		ID:       ledger.NewID(),
		Kind:     kindDailySummary,
		Facility: m.cfg.Facility,
		At:       start.UTC(),
	}

	sheets, _, err := m.load(ctx)
	if err != nil {
		return m.fail(ctx, entry, start, kindDailySummary, err)
	}
	merged, err := report.MergeSummary(sheets[report.SheetSummary], rec)
	if errors.Is(err, report.ErrDateExists) {
		m.log.Warn("daily summary rejected: date already present",
			"date", report.DayOf(rec.Date).Format("2006-01-02"), "facility", rec.Facility)
		m.countUpsert(kindDailySummary, OutcomeRejected)
		entry.Outcome = string(OutcomeRejected)
		entry.Duration = time.Since(start)
		m.record(ctx, entry)
		return OutcomeRejected, nil
	}
	if err != nil {
		return m.fail(ctx, entry, start, kindDailySummary, err)
	}

	next := map[string]report.Table{report.SheetSummary: merged}
	if !m.cfg.DropIfEmpty {
		carrySheet(next, sheets, report.SheetEvents)
		carrySheet(next, sheets, report.SheetHourly)
	}
	if err := m.Store(ctx, next); err != nil {
		return m.fail(ctx, entry, start, kindDailySummary, err)
	}

	if m.met != nil {
		m.met.SummaryRows.Set(float64(len(merged.Rows)))
	}
	m.countUpsert(kindDailySummary, OutcomeSuccess)
	m.log.Info("daily summary stored",
		"date", report.DayOf(rec.Date).Format("2006-01-02"),
		"facility", rec.Facility, "rows", len(merged.Rows))
	entry.Outcome = string(OutcomeSuccess)
	entry.Rows = 1
	entry.Duration = time.Since(start)
	m.record(ctx, entry)
	return OutcomeSuccess, nil
}

// UpsertEventPartition applies the partition-overwrite policy to the Events
// and HourlyAggregate sheets independently, then stores the result. Each call
// fully replaces one (POI, month, year) slice of history with the supplied
// batches; rows in other partitions are untouched. An empty batch omits its
// sheet from the write when DropIfEmpty is set.
func (m *Manager) UpsertEventPartition(ctx context.Context, events, hourly report.Table, poi string, month time.Month, year int) (Outcome, error) {
	start := time.Now()
	entry := ledger.Entry{
		ID:       ledger.NewID(),
		Kind:     kindEventPartition,
		Facility: m.cfg.Facility,
		POI:      poi,
		Month:    int(month),
		Year:     year,
		At:       start.UTC(),
	}

	sheets, _, err := m.load(ctx)
	if err != nil {
		return m.fail(ctx, entry, start, kindEventPartition, err)
	}

	next := map[string]report.Table{report.SheetSummary: sheets[report.SheetSummary]}
	rows := 0
	rows += m.mergePartitionSheet(next, sheets, report.SheetEvents, events, report.ColEventTime, poi, month, year)
	rows += m.mergePartitionSheet(next, sheets, report.SheetHourly, hourly, report.ColHour, poi, month, year)

	if err := m.Store(ctx, next); err != nil {
		return m.fail(ctx, entry, start, kindEventPartition, err)
	}

	m.countUpsert(kindEventPartition, OutcomeSuccess)
	m.log.Info("event partition stored",
		"poi", poi, "month", int(month), "year", year, "batch_rows", rows)
	entry.Outcome = string(OutcomeSuccess)
	entry.Rows = rows
	entry.Duration = time.Since(start)
	m.record(ctx, entry)
	return OutcomeSuccess, nil
}

// mergePartitionSheet merges one partition sheet into next, honoring the
// empty-batch omission and the absence-not-emptiness invariant. Returns the
// batch row count.
func (m *Manager) mergePartitionSheet(next, current map[string]report.Table, sheet string, batch report.Table, timeCol, poi string, month time.Month, year int) int {
	if batch.Empty() && m.cfg.DropIfEmpty {
		return 0
	}
	merged := report.MergePartition(current[sheet], batch, timeCol, poi, month, year)
	if merged.Empty() {
		return len(batch.Rows)
	}
	next[sheet] = merged
	return len(batch.Rows)
}

// Store encodes the sheets, applies table formatting best-effort, ensures the
// target folder and atomically replaces the report file. The Summary sheet is
// always written, empty if missing; Events and HourlyAggregate appear only
// when present in sheets.
func (m *Manager) Store(ctx context.Context, sheets map[string]report.Table) error {
	out := make(map[string]report.Table, len(sheets)+1)
	for k, v := range sheets {
		out[k] = v
	}
	if s, ok := out[report.SheetSummary]; !ok || len(s.Columns) == 0 {
		merged := report.NewSummaryTable()
		merged.Rows = s.Rows
		out[report.SheetSummary] = merged
	}

	if err := m.store.EnsureFolder(ctx, m.cfg.Folder); err != nil {
		m.countStore("ensure_folder", "error")
		return fmt.Errorf("reports: ensure folder %s: %w", m.cfg.Folder, err)
	}
	m.countStore("ensure_folder", "ok")

	data, err := workbook.Encode(out)
	if err != nil {
		return fmt.Errorf("reports: encode: %w", err)
	}
	res := workbook.ApplyTableStyle(data)
	if !res.Formatted {
		// best-effort contract: store the unformatted bytes and say so
		m.log.Warn("table formatting failed, storing unformatted workbook", "warning", res.Warning)
		if m.met != nil {
			m.met.FormatFallbacks.Inc()
		}
	}

	if _, err := m.store.Put(ctx, m.path(), bytes.NewReader(res.Data), core.PutOptions{ContentType: xlsxContentType}); err != nil {
		m.countStore("put", "error")
		return fmt.Errorf("reports: upload %s: %w", m.path(), err)
	}
	m.countStore("put", "ok")
	return nil
}

func carrySheet(next, current map[string]report.Table, name string) {
	if t, ok := current[name]; ok && !t.Empty() {
		next[name] = t
	}
}

func (m *Manager) fail(ctx context.Context, entry ledger.Entry, start time.Time, kind string, err error) (Outcome, error) {
	m.log.Error("upsert failed", "kind", kind, "err", err)
	m.countUpsert(kind, OutcomeFailure)
	entry.Outcome = string(OutcomeFailure)
	entry.Error = err.Error()
	entry.Duration = time.Since(start)
	m.record(ctx, entry)
	return OutcomeFailure, err
}

func (m *Manager) countUpsert(kind string, outcome Outcome) {
	if m.met != nil {
		m.met.Upserts.WithLabelValues(kind, string(outcome)).Inc()
	}
}

func (m *Manager) countStore(op, status string) {
	if m.met != nil {
		m.met.StoreRoundtrips.WithLabelValues(op, status).Inc()
	}
}

func (m *Manager) record(ctx context.Context, e ledger.Entry) {
	if m.runs == nil {
		return
	}
	if err := m.runs.Append(ctx, e); err != nil {
		m.log.Warn("run ledger append failed", "err", err)
	}
}
