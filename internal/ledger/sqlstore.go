package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// sqlLedger implements Ledger on database/sql. The sqlite and postgres
// constructors differ only in driver, DDL dialect and placeholder style.
type sqlLedger struct {
	db     *sql.DB
	insert string
	recent string
}

const ddl = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	facility TEXT NOT NULL DEFAULT '',
	poi TEXT NOT NULL DEFAULT '',
	month INTEGER NOT NULL DEFAULT 0,
	year INTEGER NOT NULL DEFAULT 0,
	outcome TEXT NOT NULL,
	rows_merged INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	at TIMESTAMP NOT NULL,
	error TEXT NOT NULL DEFAULT ''
)`

func newSQLLedger(ctx context.Context, db *sql.DB, insert, recent string) (*sqlLedger, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger db: %w", err)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &sqlLedger{db: db, insert: insert, recent: recent}, nil
}

func (l *sqlLedger) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, l.insert,
		e.ID, e.Kind, e.Facility, e.POI, e.Month, e.Year,
		e.Outcome, e.Rows, e.Duration.Milliseconds(), e.At.UTC(), e.Error)
	if err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	return nil
}

func (l *sqlLedger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, l.recent, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var e Entry
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.Kind, &e.Facility, &e.POI, &e.Month, &e.Year,
			&e.Outcome, &e.Rows, &durationMS, &e.At, &e.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *sqlLedger) Close() error { return l.db.Close() }
