package report

import (
	"testing"
	"time"
)

func TestBuildActivity_Empty(t *testing.T) {
	events, hourly := BuildActivity(nil, "Gate1")
	if !events.Empty() || !hourly.Empty() {
		t.Fatalf("expected empty tables")
	}
	if len(events.Columns) == 0 || len(hourly.Columns) == 0 {
		t.Fatalf("expected canonical columns even when empty")
	}
}

func TestBuildActivity_EventLog(t *testing.T) {
	visits := []Visit{
		{Vehicle: "AAA", Entry: ts(2024, 3, 1, 8).Add(10 * time.Minute), Exit: ts(2024, 3, 1, 9).Add(30 * time.Minute)},
		{Vehicle: "BBB", Entry: ts(2024, 3, 1, 8).Add(40 * time.Minute), Exit: ts(2024, 3, 1, 10)},
	}
	events, _ := BuildActivity(visits, "Gate1")
	if len(events.Rows) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events.Rows))
	}
	// chronological: AAA in, BBB in, AAA out, BBB out
	wantKinds := []string{EventEntry, EventEntry, EventExit, EventExit}
	wantRoster := []string{"AAA", "AAA;BBB", "BBB", ""}
	for i, row := range events.Rows {
		if row[2] != wantKinds[i] {
			t.Fatalf("event %d kind = %v", i, row[2])
		}
		if row[3] != wantRoster[i] {
			t.Fatalf("event %d roster = %q want %q", i, row[3], wantRoster[i])
		}
		if row[4] != "Gate1" {
			t.Fatalf("event %d poi = %v", i, row[4])
		}
	}
}

func TestBuildActivity_OpenVisitEmitsNoExit(t *testing.T) {
	visits := []Visit{
		{Vehicle: "AAA", Entry: ts(2024, 3, 1, 8)},
		{Vehicle: "BBB", Entry: ts(2024, 3, 1, 8).Add(5 * time.Minute), Exit: ts(2024, 3, 1, 9), Note: "still on site"},
	}
	events, _ := BuildActivity(visits, "Gate1")
	for _, row := range events.Rows {
		if row[2] == EventExit {
			t.Fatalf("open visit produced an exit: %v", row)
		}
	}
	if len(events.Rows) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(events.Rows))
	}
}

func TestBuildActivity_HourlyCandles(t *testing.T) {
	visits := []Visit{
		{Vehicle: "AAA", Entry: ts(2024, 3, 1, 8).Add(10 * time.Minute), Exit: ts(2024, 3, 1, 9).Add(20 * time.Minute)},
		{Vehicle: "BBB", Entry: ts(2024, 3, 1, 8).Add(30 * time.Minute), Exit: ts(2024, 3, 1, 9).Add(40 * time.Minute)},
	}
	_, hourly := BuildActivity(visits, "Gate1")
	if len(hourly.Rows) != 2 {
		t.Fatalf("expected 2 hour buckets, got %d", len(hourly.Rows))
	}

	// bucket 08:00-09:00: two entries
	first := hourly.Rows[0]
	if when, _ := CellTime(first[0]); !when.Equal(ts(2024, 3, 1, 9)) {
		t.Fatalf("first bucket closes at %v", first[0])
	}
	if first[1] != 0.0 || first[2] != 2.0 || first[3] != 2.0 || first[4] != 0.0 {
		t.Fatalf("first bucket counts = %v", first[1:5])
	}
	if first[6] != "AAA;BBB" {
		t.Fatalf("first bucket roster = %v", first[6])
	}

	// bucket 09:00-10:00: both exit
	second := hourly.Rows[1]
	if second[1] != 2.0 || second[2] != 0.0 || second[3] != 2.0 || second[4] != 0.0 {
		t.Fatalf("second bucket counts = %v", second[1:5])
	}
	if second[6] != "" {
		t.Fatalf("second bucket roster = %v", second[6])
	}
}

func TestVisitOpen(t *testing.T) {
	if (Visit{Exit: ts(2024, 3, 1, 9)}).Open() {
		t.Fatalf("closed visit reported open")
	}
	if !(Visit{}).Open() {
		t.Fatalf("zero-exit visit reported closed")
	}
	if !(Visit{Exit: ts(2024, 3, 1, 9), Note: "Still On Site at export"}).Open() {
		t.Fatalf("marker note not recognized")
	}
}
