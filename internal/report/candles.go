package report

import (
	"sort"
	"strings"
	"time"
)

// Visit is one raw dwell interval scraped for a POI: a vehicle entered, and
// either left or is still on site. The engine never validates plates or POI
// names; it trusts the scraper's shapes.
type Visit struct {
	Vehicle string    `json:"vehicle"`
	Entry   time.Time `json:"entry"`
	Exit    time.Time `json:"exit,omitempty"`
	Note    string    `json:"note,omitempty"`
}

// Event kinds recorded in the Events sheet.
const (
	EventEntry = "entry"
	EventExit  = "exit"
)

// Exit annotations meaning the vehicle has not actually left: the upstream
// export fills the exit column with a placeholder when the visit is open.
var openVisitMarkers = []string{"still on site", "still inside", "no exit"}

// Open reports whether the visit has no usable exit: either the exit
// timestamp is missing or the note marks the vehicle as still present.
func (v Visit) Open() bool {
	if v.Exit.IsZero() {
		return true
	}
	note := strings.ToLower(v.Note)
	for _, marker := range openVisitMarkers {
		if strings.Contains(note, marker) {
			return true
		}
	}
	return false
}

type activityEvent struct {
	vehicle string
	at      time.Time
	kind    string
}

// BuildActivity turns raw visits for one POI into the two history tables the
// merge engine consumes: the chronological entry/exit event log with a
// running presence roster, and the per-hour aggregate with open/close/max/min
// presence counts. Both tables are empty when there are no visits.
//
// Presence rosters are `;`-joined sorted vehicle lists so the sheet stays
// readable for spreadsheet users.
func BuildActivity(visits []Visit, poi string) (events, hourly Table) {
	events = NewEventsTable()
	hourly = NewHourlyTable()
	if len(visits) == 0 {
		return events, hourly
	}

	// Entries first, then exits, then a stable sort by timestamp: at equal
	// timestamps an entry is processed before an exit.
	var evs []activityEvent
	for _, v := range visits {
		if !v.Entry.IsZero() {
			evs = append(evs, activityEvent{vehicle: v.Vehicle, at: v.Entry, kind: EventEntry})
		}
	}
	for _, v := range visits {
		if !v.Entry.IsZero() && !v.Open() {
			evs = append(evs, activityEvent{vehicle: v.Vehicle, at: v.Exit, kind: EventExit})
		}
	}
	if len(evs) == 0 {
		return events, hourly
	}
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].at.Before(evs[j].at) })

	present := map[string]struct{}{}
	for _, ev := range evs {
		switch ev.kind {
		case EventEntry:
			present[ev.vehicle] = struct{}{}
		case EventExit:
			delete(present, ev.vehicle)
		}
		events.Rows = append(events.Rows, []any{ev.vehicle, ev.at, ev.kind, roster(present), poi})
	}

	start := evs[0].at.Truncate(time.Hour)
	end := evs[len(evs)-1].at.Truncate(time.Hour)
	if end.Before(evs[len(evs)-1].at) {
		end = end.Add(time.Hour)
	}

	// Replay the event stream per hour bucket; the row is keyed on the
	// bucket's closing hour.
	present = map[string]struct{}{}
	current, prevClose := 0.0, 0.0
	idx := 0
	for bucket := start; bucket.Before(end); bucket = bucket.Add(time.Hour) {
		bucketEnd := bucket.Add(time.Hour)
		maxCount, minCount := current, current
		for idx < len(evs) && evs[idx].at.Before(bucketEnd) {
			ev := evs[idx]
			switch ev.kind {
			case EventEntry:
				present[ev.vehicle] = struct{}{}
				current++
			case EventExit:
				delete(present, ev.vehicle)
				current--
			}
			if current > maxCount {
				maxCount = current
			}
			if current < minCount {
				minCount = current
			}
			idx++
		}
		hourly.Rows = append(hourly.Rows, []any{bucketEnd, prevClose, current, maxCount, minCount, poi, roster(present)})
		prevClose = current
	}
	return events, hourly
}

func roster(present map[string]struct{}) string {
	if len(present) == 0 {
		return ""
	}
	names := make([]string, 0, len(present))
	for v := range present {
		names = append(names, v)
	}
	sort.Strings(names)
	return strings.Join(names, ";")
}
