package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/modhost/backend/internal/dbx"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newSQLiteRepo(t *testing.T) *SQLRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:sessions_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxIdleConns(2)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(dbx.Wrap(db, testLogger()), testLogger())
}

func backends(t *testing.T) map[string]Repository {
	t.Helper()
	jf, err := NewJSONFileRepository(filepath.Join(t.TempDir(), "sessions.json"), testLogger())
	require.NoError(t, err)
	return map[string]Repository{
		"memory":   NewMemoryRepository(),
		"jsonfile": jf,
		"sql":      newSQLiteRepo(t),
	}
}

func session(token string) models.Session {
	return models.Session{
		Token:         token,
		AccountID:     "a1",
		CreatedAt:     100,
		ExpiresAt:     0,
		Kind:          models.TokenKindPermanent,
		RemainingUses: -1,
	}
}

func TestSessionCreateAndFindRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := session("tok-1")
			want.Kind = models.TokenKindUses
			want.RemainingUses = 3
			require.True(t, repo.Create(ctx, want))

			got := repo.FindByToken(ctx, "tok-1")
			require.NotNil(t, got)
			assert.Equal(t, want, *got)
			assert.Nil(t, repo.FindByToken(ctx, "missing"))
		})
	}
}

func TestSessionCreateRejectsDuplicateAndBlankToken(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := session("tok-1")
			require.True(t, repo.Create(ctx, first))

			dup := session("tok-1")
			dup.AccountID = "a2"
			assert.False(t, repo.Create(ctx, dup))
			assert.Equal(t, "a1", repo.FindByToken(ctx, "tok-1").AccountID)

			assert.False(t, repo.Create(ctx, session("  ")))
		})
	}
}

func TestSessionUpdateReplacesRecord(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec := session("tok-1")
			rec.Kind = models.TokenKindUses
			rec.RemainingUses = 2
			require.True(t, repo.Create(ctx, rec))

			rec.RemainingUses = 1
			require.True(t, repo.Update(ctx, rec))
			assert.Equal(t, 1, repo.FindByToken(ctx, "tok-1").RemainingUses)

			assert.False(t, repo.Update(ctx, session("absent")))
		})
	}
}

func TestSessionDelete(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.True(t, repo.Create(ctx, session("tok-1")))
			assert.True(t, repo.Delete(ctx, "tok-1"))
			assert.Nil(t, repo.FindByToken(ctx, "tok-1"))
			assert.False(t, repo.Delete(ctx, "tok-1"))
		})
	}
}

// A second repository bound to the same document must observe mutations
// made through the first one, because lookups re-read the file.
func TestSessionJSONFileLookupReloadsDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")

	writer, err := NewJSONFileRepository(path, testLogger())
	require.NoError(t, err)
	reader, err := NewJSONFileRepository(path, testLogger())
	require.NoError(t, err)

	require.True(t, writer.Create(ctx, session("tok-1")))
	got := reader.FindByToken(ctx, "tok-1")
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.AccountID)

	require.True(t, writer.Delete(ctx, "tok-1"))
	assert.Nil(t, reader.FindByToken(ctx, "tok-1"))
}

func TestSessionJSONFileLegacyMigration(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")

	legacy := `{"sessions":[{"token":"tok-old","accountId":"a1","createdAt":5,"expiresAt":9}]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	repo, err := NewJSONFileRepository(path, testLogger())
	require.NoError(t, err)

	got := repo.FindByToken(ctx, "tok-old")
	require.NotNil(t, got)
	assert.Equal(t, models.TokenKindSession, got.Kind)
	assert.Equal(t, -1, got.RemainingUses)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"SESSION"`)
	assert.Contains(t, string(raw), `"remainingUses":-1`)
}

func TestSessionJSONFileCorruptDocumentFailsConstruction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewJSONFileRepository(path, testLogger())
	require.Error(t, err)
}
