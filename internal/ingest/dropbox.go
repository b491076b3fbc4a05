// Package ingest reads scraped batch files from a drop-box directory. The
// browser-automation scraper is an external collaborator; its contract with
// the engine is one JSON file per batch, already typed and pre-filtered to a
// single partition or a single summary day.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fleetreports/internal/report"
)

// Batch is one pending unit of work. Exactly one of Summary or Visits is
// expected to be set.
type Batch struct {
	Facility string `json:"facility,omitempty"`

	// Summary carries one daily summary record.
	Summary *SummaryInput `json:"summary,omitempty"`

	// Visits carries raw dwell intervals for one POI partition.
	POI    string         `json:"poi,omitempty"`
	Month  int            `json:"month,omitempty"`
	Year   int            `json:"year,omitempty"`
	Visits []report.Visit `json:"visits,omitempty"`
}

// SummaryInput is the raw daily figures before normalization.
type SummaryInput struct {
	Date          time.Time `json:"date"`
	RawMetric     float64   `json:"raw_metric"`
	DowntimeHours float64   `json:"downtime_hours"`
	FleetSize     int       `json:"fleet_size"`
	Reserve       int       `json:"reserve"`
}

// Record normalizes the raw figures into a summary record: the metric is
// normalized per hour and the maintenance ratio discounts the reserve
// vehicles from the available fleet-hours.
func (s SummaryInput) Record(facility string) report.DailySummaryRecord {
	fleetHours := float64(s.FleetSize) * 24
	pct := 0.0
	if fleetHours > 0 {
		pct = 100 * (fleetHours - s.DowntimeHours - 24*float64(s.Reserve)) / fleetHours
	}
	return report.DailySummaryRecord{
		Date:           report.DayOf(s.Date),
		AvgDwell:       s.RawMetric / 24,
		MaintenancePct: pct,
		Facility:       facility,
	}
}

// Pending is a batch together with its source file.
type Pending struct {
	Path  string
	Batch Batch
}

// DropBox scans a directory for *.json batch files.
type DropBox struct {
	Dir string
}

// Pending lists parseable batch files in name order. A file that fails to
// parse is surfaced with its path so the operator can quarantine it.
func (d DropBox) Pending() ([]Pending, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ingest: scan %s: %w", d.Dir, err)
	}
	var out []Pending
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(d.Dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ingest: read %s: %w", path, err)
		}
		var b Batch
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("ingest: parse %s: %w", path, err)
		}
		out = append(out, Pending{Path: path, Batch: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Done moves a processed batch file aside so the next scan skips it. The
// failed file stays in place; the caller retries the whole upsert next tick.
func (d DropBox) Done(p Pending) error {
	dir := filepath.Join(d.Dir, "processed")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ingest: processed dir: %w", err)
	}
	return os.Rename(p.Path, filepath.Join(dir, filepath.Base(p.Path)))
}
