// Package dbx provides tiny DB abstractions shared by the SQL-backed
// repositories: a minimal interface (DBTX) implemented by both *sql.DB and
// *sql.Tx, and a connection facade that re-establishes a live connection
// before every statement.
package dbx

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/modhost/backend/internal/logging"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a *sql.DB handle together with a logger. Repositories call
// Reconnect before issuing statements; a false return short-circuits the
// operation as a logged failure instead of surfacing a driver error.
type DB struct {
	db  *sql.DB
	log logging.Logger
}

// Open opens a database handle for the given driver and DSN. The connection
// is established lazily; Reconnect verifies it.
func Open(driver, dsn string, log logging.Logger) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &DB{db: db, log: log}, nil
}

// Wrap adapts an existing *sql.DB (used by tests to inject mocks).
func Wrap(db *sql.DB, log logging.Logger) *DB {
	return &DB{db: db, log: log}
}

// Reconnect verifies the connection is live, re-establishing it if the pool
// has gone stale. Failures are logged and reported as false.
func (d *DB) Reconnect(ctx context.Context) bool {
	if err := d.db.PingContext(ctx); err != nil {
		d.log.Error(ctx, "could not reconnect to SQL backend", "error", err)
		return false
	}
	return true
}

// Handle returns the underlying *sql.DB.
func (d *DB) Handle() *sql.DB {
	return d.db
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	return d.db.Close()
}
