package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modhost/backend/internal/common"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
	"github.com/modhost/backend/internal/server/repositories/sessions"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newSessionService() (*SessionService, sessions.Repository) {
	repo := sessions.NewMemoryRepository()
	svc := NewSessionService(repo, 4*time.Hour, 30*24*time.Hour, testLogger())
	return svc, repo
}

func TestCreateSessionTTL(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionService()
	svc.now = func() int64 { return 1_000_000 }

	short, err := svc.CreateSession(ctx, "a1", false)
	require.NoError(t, err)
	assert.Equal(t, models.TokenKindSession, short.Kind)
	assert.Equal(t, int64(1_000_000)+(4*time.Hour).Milliseconds(), short.ExpiresAt)
	assert.Equal(t, -1, short.RemainingUses)
	assert.NotEmpty(t, short.Token)

	long, err := svc.CreateSession(ctx, "a1", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000)+(30*24*time.Hour).Milliseconds(), long.ExpiresAt)
	assert.NotEqual(t, short.Token, long.Token)
}

func TestCreateTokenValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionService()

	_, err := svc.CreateTokenWithDays(ctx, "a1", 0)
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = svc.CreateTokenWithUses(ctx, "a1", -2)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestCreatePermanentTokenNeverExpires(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionService()

	tok, err := svc.CreatePermanentToken(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), tok.ExpiresAt)
	assert.Equal(t, -1, tok.RemainingUses)

	id, err := svc.FindAccountID(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "a1", id)
}

func TestFindAccountIDUnknownToken(t *testing.T) {
	svc, _ := newSessionService()
	_, err := svc.FindAccountID(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestFindAccountIDExpiredTokenIsRemoved(t *testing.T) {
	ctx := context.Background()
	svc, repo := newSessionService()
	svc.now = func() int64 { return 1_000_000 }

	tok, err := svc.CreateSession(ctx, "a1", false)
	require.NoError(t, err)

	id, err := svc.FindAccountID(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "a1", id)

	// Jump past the TTL: resolution fails and the record is deleted.
	svc.now = func() int64 { return tok.ExpiresAt }
	_, err = svc.FindAccountID(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
	assert.Nil(t, repo.FindByToken(ctx, tok.Token))
}

func TestFindAccountIDLimitedUses(t *testing.T) {
	ctx := context.Background()
	svc, repo := newSessionService()

	tok, err := svc.CreateTokenWithUses(ctx, "a1", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tok.ExpiresAt)

	for i := 0; i < 2; i++ {
		id, err := svc.FindAccountID(ctx, tok.Token)
		require.NoError(t, err)
		assert.Equal(t, "a1", id)
	}

	_, err = svc.FindAccountID(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Nil(t, repo.FindByToken(ctx, tok.Token))
}

// A decrement that cannot be durably written must not grant access.
func TestFindAccountIDFailsClosedWhenDecrementFails(t *testing.T) {
	ctx := context.Background()
	repo := &updateRejectingRepo{Repository: sessions.NewMemoryRepository()}
	svc := NewSessionService(repo, time.Hour, time.Hour, testLogger())

	tok, err := svc.CreateTokenWithUses(ctx, "a1", 5)
	require.NoError(t, err)

	repo.reject = true
	_, err = svc.FindAccountID(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	// The stored record still carries the full use count.
	assert.Equal(t, 5, repo.FindByToken(ctx, tok.Token).RemainingUses)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newSessionService()

	tok, err := svc.CreateSession(ctx, "a1", false)
	require.NoError(t, err)
	assert.True(t, svc.DeleteSession(ctx, tok.Token))
	assert.False(t, svc.DeleteSession(ctx, tok.Token))
}

type updateRejectingRepo struct {
	sessions.Repository
	reject bool
}

func (r *updateRejectingRepo) Update(ctx context.Context, s models.Session) bool {
	if r.reject {
		return false
	}
	return r.Repository.Update(ctx, s)
}
