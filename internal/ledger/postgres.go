package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	postgresInsert = `INSERT INTO runs (id, kind, facility, poi, month, year, outcome, rows_merged, duration_ms, at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	postgresRecent = `SELECT id, kind, facility, poi, month, year, outcome, rows_merged, duration_ms, at, error
		FROM runs ORDER BY at DESC, id DESC LIMIT $1`
)

const defaultPostgresDSN = "postgres://localhost/fleetreports?sslmode=disable"

// NewPostgres opens a Postgres-backed ledger using the provided DSN (falls
// back to a localhost default for dev parity with the sqlite driver).
func NewPostgres(ctx context.Context, dsn string) (Ledger, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newSQLLedger(ctx, db, postgresInsert, postgresRecent)
}
