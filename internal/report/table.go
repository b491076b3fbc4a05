// Package report holds the tabular data model and the merge engine for the
// persisted fleet report: a multi-sheet workbook with a daily summary plus
// per-POI event and hourly-aggregate history.
package report

import "time"

// Sheet names inside the persisted report. Only Summary is mandatory; the
// other two are entirely absent (not empty) when there is no data.
const (
	SheetSummary = "Summary"
	SheetEvents  = "Events"
	SheetHourly  = "HourlyAggregate"
)

// Column names are part of the contract consumed by spreadsheet users and
// must not be renamed without a migration step.
const (
	ColDate           = "Date"
	ColAvgDwell       = "Avg Dwell"
	ColMaintenancePct = "Maintenance Pct"
	ColFacility       = "Facility"

	ColVehicle   = "Vehicle"
	ColEventTime = "Event Timestamp"
	ColEvent     = "Event"
	ColPresence  = "Vehicles Present"
	ColPOI       = "POI"

	ColHour       = "Hour"
	ColOpenCount  = "Open Count"
	ColCloseCount = "Close Count"
	ColMaxCount   = "Max Count"
	ColMinCount   = "Min Count"
)

// Table is an ordered set of typed rows under named columns. Cell values are
// string, float64, bool or time.Time; anything else is treated as opaque and
// passed through untouched.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewSummaryTable returns an empty table with the Summary sheet layout.
func NewSummaryTable() Table {
	return Table{Columns: []string{ColDate, ColAvgDwell, ColMaintenancePct, ColFacility}}
}

// NewEventsTable returns an empty table with the Events sheet layout.
func NewEventsTable() Table {
	return Table{Columns: []string{ColVehicle, ColEventTime, ColEvent, ColPresence, ColPOI}}
}

// NewHourlyTable returns an empty table with the HourlyAggregate sheet layout.
func NewHourlyTable() Table {
	return Table{Columns: []string{ColHour, ColOpenCount, ColCloseCount, ColMaxCount, ColMinCount, ColPOI, ColPresence}}
}

// Empty reports whether the table has no data rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// ColumnIndex returns the position of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the table (rows reallocated, cells shared).
func (t Table) Clone() Table {
	out := Table{Columns: append([]string(nil), t.Columns...)}
	if t.Rows != nil {
		out.Rows = make([][]any, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append([]any(nil), r...)
		}
	}
	return out
}

// CellTime extracts a timestamp cell. The bool is false when the cell is not
// a time value (for example when decode-side coercion degraded it to text).
func CellTime(v any) (time.Time, bool) {
	ts, ok := v.(time.Time)
	return ts, ok
}

// CellString renders a cell for key comparison. Non-string cells that are not
// relevant as keys return "".
func CellString(v any) string {
	s, _ := v.(string)
	return s
}

// DayOf truncates a timestamp to its calendar day, keeping the wall clock
// (no timezone shift).
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
