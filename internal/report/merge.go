package report

import (
	"errors"
	"time"
)

// ErrDateExists signals the point-dedup rejection: a summary record for the
// same calendar day is already present. It is a business outcome, not a
// failure; no row is added and no existing row is modified.
var ErrDateExists = errors.New("report: date already present in summary")

// DailySummaryRecord is one day of performance figures for a facility.
type DailySummaryRecord struct {
	Date           time.Time // calendar day, time component ignored
	AvgDwell       float64
	MaintenancePct float64
	Facility       string
}

// Row renders the record in Summary column order.
func (r DailySummaryRecord) Row() []any {
	return []any{DayOf(r.Date), r.AvgDwell, r.MaintenancePct, r.Facility}
}

// MergeSummary applies the point-dedup policy: if any existing row shares the
// record's calendar day the merge returns the existing table unchanged
// together with ErrDateExists; otherwise the record is appended at the end.
// Row order of existing data is preserved. The uniqueness key is the date
// alone; the facility is part of the report's identity, not the key.
func MergeSummary(existing Table, rec DailySummaryRecord) (Table, error) {
	if len(existing.Columns) == 0 {
		existing = NewSummaryTable()
	}
	di := existing.ColumnIndex(ColDate)
	if di >= 0 {
		for _, row := range existing.Rows {
			ts, ok := CellTime(row[di])
			if ok && SameDay(ts, rec.Date) {
				return existing, ErrDateExists
			}
		}
	}
	merged := existing.Clone()
	merged.Rows = append(merged.Rows, rec.Row())
	return merged, nil
}

// MergePartition applies the partition-overwrite policy: every existing row
// whose (POI, month, year) matches the target partition is removed, then all
// batch rows are appended. Rows in other partitions keep their order and
// content. Partition membership is re-derived from each existing row's own
// timestamp in timeCol, never from a batch-level tag; a row whose timestamp
// failed date coercion cannot match and is kept.
func MergePartition(existing, batch Table, timeCol, poi string, month time.Month, year int) Table {
	if len(existing.Columns) == 0 {
		return batch.Clone()
	}
	merged := Table{Columns: append([]string(nil), existing.Columns...)}
	ti := existing.ColumnIndex(timeCol)
	pi := existing.ColumnIndex(ColPOI)
	for _, row := range existing.Rows {
		if inPartition(row, ti, pi, poi, month, year) {
			continue
		}
		merged.Rows = append(merged.Rows, append([]any(nil), row...))
	}
	for _, row := range batch.Rows {
		merged.Rows = append(merged.Rows, alignRow(row, batch.Columns, merged.Columns))
	}
	return merged
}

func inPartition(row []any, ti, pi int, poi string, month time.Month, year int) bool {
	if ti < 0 || pi < 0 || ti >= len(row) || pi >= len(row) {
		return false
	}
	ts, ok := CellTime(row[ti])
	if !ok {
		return false
	}
	return CellString(row[pi]) == poi && ts.Month() == month && ts.Year() == year
}

// alignRow remaps a batch row into the merged column order by name, so a
// batch whose columns are ordered differently still lands under the right
// headers. Columns missing from the batch come through empty.
func alignRow(row []any, from, to []string) []any {
	if len(from) == len(to) {
		same := true
		for i := range from {
			if from[i] != to[i] {
				same = false
				break
			}
		}
		if same {
			return append([]any(nil), row...)
		}
	}
	out := make([]any, len(to))
	for i := range out {
		out[i] = ""
	}
	for i, name := range from {
		if i >= len(row) {
			break
		}
		for j, target := range to {
			if target == name {
				out[j] = row[i]
				break
			}
		}
	}
	return out
}
