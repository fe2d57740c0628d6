// Package teams declares the repository contract for team records and
// provides the volatile, file-backed, and SQL-backed implementations.
package teams

import (
	"context"
	"strings"

	"github.com/modhost/backend/internal/server/models"
)

// Repository defines the storage operations for teams. Lookups return nil
// when nothing matches; mutations report success as a boolean and leave the
// prior state unchanged on failure.
type Repository interface {
	FindByID(ctx context.Context, id string) *models.Team

	// FindPage returns records ordered by (createdAt, id) ascending.
	FindPage(ctx context.Context, limit, offset int) []models.Team

	Create(ctx context.Context, team models.Team) bool
	Update(ctx context.Context, team models.Team) bool
	Delete(ctx context.Context, id string) bool
}

func valid(t models.Team) bool {
	return strings.TrimSpace(t.ID) != ""
}
