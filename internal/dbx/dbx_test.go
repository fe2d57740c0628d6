package dbx

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/modhost/backend/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOpenAndReconnect(t *testing.T) {
	d, err := Open("sqlite", "file:dbx_tests?mode=memory&cache=shared", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.True(t, d.Reconnect(context.Background()))
	require.NotNil(t, d.Handle())
}

func TestReconnect_ClosedHandle(t *testing.T) {
	db, err := sql.Open("sqlite", "file:dbx_closed?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	d := Wrap(db, testLogger())
	require.False(t, d.Reconnect(context.Background()))
}
