// Package accounts declares the repository contract for account records and
// provides the volatile, file-backed, and SQL-backed implementations.
package accounts

import (
	"context"
	"strings"

	"github.com/modhost/backend/internal/server/models"
)

// Repository defines the storage operations for accounts. Lookups return
// nil when nothing matches; mutations report success as a boolean and leave
// the prior state unchanged on failure. Infrastructure failures are logged
// by the implementation and never surface to callers.
type Repository interface {
	FindByID(ctx context.Context, id string) *models.Account
	FindByEmail(ctx context.Context, email string) *models.Account
	FindByUsername(ctx context.Context, username string) *models.Account

	// FindPage returns records ordered by (createdAt, id) ascending.
	// A non-positive limit or negative offset yields an empty list.
	FindPage(ctx context.Context, limit, offset int) []models.Account

	// HasAdminAccount reports whether any account carries the admin flag.
	HasAdminAccount(ctx context.Context) bool

	Create(ctx context.Context, account models.Account) bool
	Update(ctx context.Context, account models.Account) bool
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt int64) bool
	Delete(ctx context.Context, id string) bool
}

// FindAll drains the repository by repeated paging. It terminates because
// every useful page advances the offset and a short page ends the loop.
func FindAll(ctx context.Context, r Repository, pageSize int) []models.Account {
	all := []models.Account{}
	if pageSize <= 0 {
		return all
	}
	offset := 0
	for {
		page := r.FindPage(ctx, pageSize, offset)
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		offset += len(page)
		if len(page) < pageSize {
			break
		}
	}
	return all
}

// valid reports whether the record carries every required field.
func valid(a models.Account) bool {
	return strings.TrimSpace(a.ID) != "" &&
		strings.TrimSpace(a.Email) != "" &&
		strings.TrimSpace(a.Username) != ""
}
