package config

import (
	"fmt"
	"os"
	"strings"

	"fleetreports/internal/report"
	"fleetreports/internal/workbook"
)

// The roster workbook carries the operational setup maintained by business
// users: a Facilities sheet plus one POIs_<facility> sheet per facility.
const (
	rosterFacilitiesSheet = "Facilities"
	rosterPOIPrefix       = "POIs_"
)

// Facility is one operating unit with its monitored points of interest.
type Facility struct {
	Code    string
	Fleet   int // total vehicles
	Reserve int // vehicles excluded from the maintenance denominator
	POIs    []POI
}

// POI is a monitored point of interest inside a facility.
type POI struct {
	Name           string
	Group          string
	SLAHours       float64
	AlertThreshold int
}

// Roster is the active operational setup. Rows flagged inactive in the
// workbook are filtered out.
type Roster struct {
	Facilities []Facility
}

// Facility looks up a facility by code.
func (r Roster) Facility(code string) (Facility, bool) {
	for _, f := range r.Facilities {
		if f.Code == code {
			return f, true
		}
	}
	return Facility{}, false
}

// POI looks up one of the facility's active POIs by name.
func (f Facility) POI(name string) (POI, bool) {
	for _, p := range f.POIs {
		if p.Name == name {
			return p, true
		}
	}
	return POI{}, false
}

// ActivePOI reports whether the named POI is configured and active for the
// facility. An unknown facility is never active.
func (r Roster) ActivePOI(facility, poi string) bool {
	f, ok := r.Facility(facility)
	if !ok {
		return false
	}
	_, ok = f.POI(poi)
	return ok
}

// LoadRosterFile reads and parses a roster workbook from disk.
func LoadRosterFile(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("config: roster: %w", err)
	}
	return LoadRoster(data)
}

// LoadRoster parses a roster workbook. The Facilities sheet needs columns
// Facility, Fleet Size, Reserve and Active; each POIs_<code> sheet needs
// POI, Group, SLA Hours, Alert Threshold and Active.
func LoadRoster(data []byte) (Roster, error) {
	sheets, err := workbook.Decode(data)
	if err != nil {
		return Roster{}, fmt.Errorf("config: roster: %w", err)
	}
	facilities, ok := sheets[rosterFacilitiesSheet]
	if !ok {
		return Roster{}, fmt.Errorf("config: roster: sheet %s missing", rosterFacilitiesSheet)
	}

	var roster Roster
	ci := columnIndexes(facilities, "Facility", "Fleet Size", "Reserve", "Active")
	if ci["Facility"] < 0 {
		return Roster{}, fmt.Errorf("config: roster: Facilities sheet has no Facility column")
	}
	for _, row := range facilities.Rows {
		if !activeCell(row, ci["Active"]) {
			continue
		}
		f := Facility{
			Code:    cellText(row, ci["Facility"]),
			Fleet:   int(cellNumber(row, ci["Fleet Size"])),
			Reserve: int(cellNumber(row, ci["Reserve"])),
		}
		if f.Code == "" {
			continue
		}
		f.POIs = loadPOIs(sheets, f.Code)
		roster.Facilities = append(roster.Facilities, f)
	}
	return roster, nil
}

func loadPOIs(sheets map[string]report.Table, facility string) []POI {
	t, ok := sheets[rosterPOIPrefix+facility]
	if !ok {
		return nil
	}
	ci := columnIndexes(t, "POI", "Group", "SLA Hours", "Alert Threshold", "Active")
	var pois []POI
	for _, row := range t.Rows {
		if !activeCell(row, ci["Active"]) {
			continue
		}
		p := POI{
			Name:           cellText(row, ci["POI"]),
			Group:          cellText(row, ci["Group"]),
			SLAHours:       cellNumber(row, ci["SLA Hours"]),
			AlertThreshold: int(cellNumber(row, ci["Alert Threshold"])),
		}
		if p.Name == "" {
			continue
		}
		pois = append(pois, p)
	}
	return pois
}

func columnIndexes(t report.Table, names ...string) map[string]int {
	out := make(map[string]int, len(names))
	for _, n := range names {
		out[n] = t.ColumnIndex(n)
	}
	return out
}

func cellText(row []any, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	default:
		return ""
	}
}

func cellNumber(row []any, i int) float64 {
	if i < 0 || i >= len(row) {
		return 0
	}
	n, _ := row[i].(float64)
	return n
}

// activeCell treats a missing Active column as active; the flag is an
// opt-out for business users.
func activeCell(row []any, i int) bool {
	if i < 0 || i >= len(row) {
		return true
	}
	switch v := row[i].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "" || s == "true" || s == "yes" || s == "1"
	default:
		return true
	}
}
