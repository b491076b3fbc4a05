package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	sqliteInsert = `INSERT INTO runs (id, kind, facility, poi, month, year, outcome, rows_merged, duration_ms, at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqliteRecent = `SELECT id, kind, facility, poi, month, year, outcome, rows_merged, duration_ms, at, error
		FROM runs ORDER BY at DESC, id DESC LIMIT ?`
)

// NewSQLite opens (creating if needed) a SQLite-backed ledger at path.
func NewSQLite(ctx context.Context, path string) (Ledger, error) {
	if path == "" {
		path = "fleetreports.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newSQLLedger(ctx, db, sqliteInsert, sqliteRecent)
}
