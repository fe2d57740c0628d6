package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modhost/backend/internal/dbx"
)

// Infrastructure failures must surface as absent results and false
// booleans, never as panics or leaked driver errors.

func TestSQLRepositoryReconnectFailureShortCircuits(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	down := errors.New("connection refused")
	// Constructor attempt, then one retry per operation.
	mock.ExpectPing().WillReturnError(down)
	mock.ExpectPing().WillReturnError(down)
	mock.ExpectPing().WillReturnError(down)

	repo := NewSQLRepository(dbx.Wrap(db, testLogger()), testLogger())

	assert.Nil(t, repo.FindByID(ctx, "a1"))
	assert.False(t, repo.Delete(ctx, "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepositorySchemaInitFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	broken := errors.New("disk I/O error")
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").WillReturnError(broken)
	repo := NewSQLRepository(dbx.Wrap(db, testLogger()), testLogger())

	// The next operation retries the create and gives up cleanly again.
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").WillReturnError(broken)
	assert.Nil(t, repo.FindByID(ctx, "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepositoryMigrationFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	exists := errors.New("duplicate column name")
	for range accountsMigrations {
		mock.ExpectExec(".*").WillReturnError(exists)
	}
	repo := NewSQLRepository(dbx.Wrap(db, testLogger()), testLogger())

	// Schema counts as ensured despite every migration step failing.
	mock.ExpectExec("DELETE FROM accounts").
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.True(t, repo.Delete(ctx, "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRepositoryStatementErrorReportsFalse(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	for range accountsMigrations {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	repo := NewSQLRepository(dbx.Wrap(db, testLogger()), testLogger())

	mock.ExpectExec("DELETE FROM accounts").
		WithArgs("a1").
		WillReturnError(errors.New("table is locked"))
	assert.False(t, repo.Delete(ctx, "a1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
