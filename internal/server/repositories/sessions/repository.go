// Package sessions declares the repository contract for session records and
// provides the volatile, file-backed, and SQL-backed implementations. The
// repositories store records verbatim; all expiry and use-count policy lives
// in the session service.
package sessions

import (
	"context"
	"strings"

	"github.com/modhost/backend/internal/server/models"
)

// Repository defines the storage operations for sessions, keyed by token.
// Lookups return nil when nothing matches; mutations report success as a
// boolean and leave the prior state unchanged on failure.
type Repository interface {
	FindByToken(ctx context.Context, token string) *models.Session

	Create(ctx context.Context, session models.Session) bool
	Update(ctx context.Context, session models.Session) bool
	Delete(ctx context.Context, token string) bool
}

func valid(s models.Session) bool {
	return strings.TrimSpace(s.Token) != ""
}
