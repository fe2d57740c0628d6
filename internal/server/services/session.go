// Package services holds the domain logic layered on top of the
// repositories: token issuance and resolution, and the cross-repository
// integrity fix-ups.
package services

import (
	"context"
	"time"

	"github.com/modhost/backend/internal/common"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
	"github.com/modhost/backend/internal/server/repositories/sessions"
)

const tokenBytes = 32

// SessionService issues and validates bearer tokens. It owns all expiry and
// use-count policy; the repository stores records verbatim.
type SessionService struct {
	repo        sessions.Repository
	log         logging.Logger
	sessionTTL  time.Duration
	rememberTTL time.Duration

	now func() int64
}

// NewSessionService wires the service to its repository. sessionTTL and
// rememberTTL bound the two login token lifetimes.
func NewSessionService(repo sessions.Repository, sessionTTL, rememberTTL time.Duration, log logging.Logger) *SessionService {
	return &SessionService{
		repo:        repo,
		log:         log,
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
		now:         common.NowMillis,
	}
}

// CreateSession issues a login token for accountID. With remember set the
// long TTL applies instead of the short one.
func (s *SessionService) CreateSession(ctx context.Context, accountID string, remember bool) (*models.Session, error) {
	ttl := s.sessionTTL
	if remember {
		ttl = s.rememberTTL
	}
	return s.issue(ctx, accountID, models.TokenKindSession, ttl, -1)
}

// CreateTokenWithDays issues a token expiring after the given number of days.
func (s *SessionService) CreateTokenWithDays(ctx context.Context, accountID string, days int) (*models.Session, error) {
	if days <= 0 {
		return nil, common.ErrorValidation
	}
	return s.issue(ctx, accountID, models.TokenKindDays, time.Duration(days)*24*time.Hour, -1)
}

// CreateTokenWithUses issues a token valid for exactly uses resolutions.
func (s *SessionService) CreateTokenWithUses(ctx context.Context, accountID string, uses int) (*models.Session, error) {
	if uses <= 0 {
		return nil, common.ErrorValidation
	}
	return s.issue(ctx, accountID, models.TokenKindUses, 0, uses)
}

// CreatePermanentToken issues a token with no expiry and unlimited uses.
func (s *SessionService) CreatePermanentToken(ctx context.Context, accountID string) (*models.Session, error) {
	return s.issue(ctx, accountID, models.TokenKindPermanent, 0, -1)
}

func (s *SessionService) issue(ctx context.Context, accountID string, kind models.TokenKind, ttl time.Duration, uses int) (*models.Session, error) {
	now := s.now()
	session := models.Session{
		AccountID:     accountID,
		CreatedAt:     now,
		Kind:          kind,
		RemainingUses: uses,
	}
	if ttl > 0 {
		session.ExpiresAt = now + ttl.Milliseconds()
	}

	// Token collisions are vanishingly rare; a create that still fails
	// after a few fresh tokens indicates a storage failure.
	for attempt := 0; attempt < 3; attempt++ {
		token, err := common.MakeRandTokenString(tokenBytes)
		if err != nil {
			return nil, err
		}
		session.Token = token
		if s.repo.Create(ctx, session) {
			s.log.Info(ctx, "token issued",
				"kind", string(kind), "account_id", accountID,
				"token", common.TokenPreview(token))
			return &session, nil
		}
	}
	s.log.Error(ctx, "token issuance failed", "kind", string(kind), "account_id", accountID)
	return nil, common.ErrorInternal
}

// FindAccountID resolves token to its owning account id, applying the
// expiry and use-count policy. Expired or exhausted records are deleted on
// sight. A use-limited token only resolves if the decremented record was
// durably written.
func (s *SessionService) FindAccountID(ctx context.Context, token string) (string, error) {
	record := s.repo.FindByToken(ctx, token)
	if record == nil {
		return "", common.ErrInvalidToken
	}

	if record.ExpiresAt > 0 && s.now() >= record.ExpiresAt {
		s.repo.Delete(ctx, token)
		s.log.Info(ctx, "expired token removed", "token", common.TokenPreview(token))
		return "", common.ErrTokenExpired
	}

	if record.RemainingUses == 0 {
		s.repo.Delete(ctx, token)
		return "", common.ErrInvalidToken
	}

	if record.RemainingUses > 0 {
		updated := *record
		updated.RemainingUses--
		if !s.repo.Update(ctx, updated) {
			return "", common.ErrInvalidToken
		}
		return record.AccountID, nil
	}

	return record.AccountID, nil
}

// DeleteSession removes the token record. Deleting an unknown token reports
// false.
func (s *SessionService) DeleteSession(ctx context.Context, token string) bool {
	return s.repo.Delete(ctx, token)
}
