// Package ledger keeps an append-only record of merge-and-store runs so
// operators can audit what each upsert did without opening the report file.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Entry is one upsert run against the report.
type Entry struct {
	ID       string        `json:"id"`
	Kind     string        `json:"kind"` // daily_summary | event_partition
	Facility string        `json:"facility,omitempty"`
	POI      string        `json:"poi,omitempty"`
	Month    int           `json:"month,omitempty"`
	Year     int           `json:"year,omitempty"`
	Outcome  string        `json:"outcome"` // success | rejected | failure
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
	Error    string        `json:"error,omitempty"`
}

// Ledger persists run entries. Append never blocks a store write beyond the
// insert itself; failures are the caller's to log, not to retry.
type Ledger interface {
	Append(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// NewID returns a random 16-byte hex identifier for an entry.
func NewID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// OpenDriver constructs the named backend. Backend-specific settings still
// come from the environment:
//
//	FLEETREPORTS_LEDGER_PATH: sqlite file path (default ./fleetreports.db)
//	FLEETREPORTS_LEDGER_DSN: postgres DSN when driver=postgres
func OpenDriver(ctx context.Context, driver string) (Ledger, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(ctx, os.Getenv("FLEETREPORTS_LEDGER_PATH"))
	case "postgres":
		return NewPostgres(ctx, os.Getenv("FLEETREPORTS_LEDGER_DSN"))
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %s", driver)
	}
}

// Open selects the backend from FLEETREPORTS_LEDGER_DRIVER (sqlite|postgres|
// memory, default sqlite). Callers holding a validated configuration should
// use OpenDriver instead.
func Open(ctx context.Context) (Ledger, error) {
	driver := os.Getenv("FLEETREPORTS_LEDGER_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return OpenDriver(ctx, driver)
}
