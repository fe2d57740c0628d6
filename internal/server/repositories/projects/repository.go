// Package projects declares the repository contract for project records and
// provides the volatile, file-backed, and SQL-backed implementations.
// Projects are keyed by slug; the record id is a secondary identifier kept
// for legacy references.
package projects

import (
	"context"
	"strings"

	"github.com/modhost/backend/internal/server/models"
)

// Repository defines the storage operations for projects. Lookups return
// nil when nothing matches; mutations report success as a boolean and leave
// the prior state unchanged on failure.
type Repository interface {
	FindBySlug(ctx context.Context, slug string) *models.Project

	// FindPage returns records ordered by (createdAt, slug) ascending.
	FindPage(ctx context.Context, limit, offset int) []models.Project

	Create(ctx context.Context, project models.Project) bool
	Update(ctx context.Context, project models.Project) bool
	Delete(ctx context.Context, slug string) bool
}

func valid(p models.Project) bool {
	return strings.TrimSpace(p.Slug) != ""
}
