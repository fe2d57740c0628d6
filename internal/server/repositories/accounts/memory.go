package accounts

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/modhost/backend/internal/server/models"
)

// MemoryRepository keeps accounts in a process-local concurrent map. State
// does not survive a restart; it targets ephemeral and test deployments.
//
// The map serializes per-key mutation, but composite uniqueness checks
// (email/username already taken) are check-then-store and can lose a race
// between two concurrent creates. This relaxation is accepted because
// callers use unique ids as the true identity.
type MemoryRepository struct {
	accounts sync.Map // id -> models.Account
}

// NewMemoryRepository returns an empty volatile repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) *models.Account {
	v, ok := r.accounts.Load(id)
	if !ok {
		return nil
	}
	a := v.(models.Account).Clone()
	return &a
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) *models.Account {
	return r.findFirst(func(a models.Account) bool {
		return strings.EqualFold(a.Email, email)
	})
}

func (r *MemoryRepository) FindByUsername(ctx context.Context, username string) *models.Account {
	return r.findFirst(func(a models.Account) bool {
		return strings.EqualFold(a.Username, username)
	})
}

func (r *MemoryRepository) FindPage(ctx context.Context, limit, offset int) []models.Account {
	if limit <= 0 || offset < 0 {
		return []models.Account{}
	}
	all := r.snapshot()
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt < all[j].CreatedAt
		}
		return all[i].ID < all[j].ID
	})
	return pageOf(all, limit, offset)
}

func (r *MemoryRepository) HasAdminAccount(ctx context.Context) bool {
	return r.findFirst(func(a models.Account) bool { return a.Admin }) != nil
}

func (r *MemoryRepository) Create(ctx context.Context, account models.Account) bool {
	if !valid(account) {
		return false
	}
	if r.FindByID(ctx, account.ID) != nil ||
		r.FindByEmail(ctx, account.Email) != nil ||
		r.FindByUsername(ctx, account.Username) != nil {
		return false
	}
	r.accounts.Store(account.ID, account.Clone())
	return true
}

func (r *MemoryRepository) Update(ctx context.Context, account models.Account) bool {
	if !valid(account) {
		return false
	}
	if _, ok := r.accounts.Load(account.ID); !ok {
		return false
	}
	r.accounts.Store(account.ID, account.Clone())
	return true
}

func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt int64) bool {
	v, ok := r.accounts.Load(id)
	if !ok {
		return false
	}
	a := v.(models.Account).Clone()
	a.PasswordHash = passwordHash
	a.UpdatedAt = updatedAt
	r.accounts.Store(id, a)
	return true
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) bool {
	_, ok := r.accounts.LoadAndDelete(id)
	return ok
}

func (r *MemoryRepository) findFirst(match func(models.Account) bool) *models.Account {
	var found *models.Account
	r.accounts.Range(func(_, v any) bool {
		a := v.(models.Account)
		if match(a) {
			c := a.Clone()
			found = &c
			return false
		}
		return true
	})
	return found
}

func (r *MemoryRepository) snapshot() []models.Account {
	all := []models.Account{}
	r.accounts.Range(func(_, v any) bool {
		all = append(all, v.(models.Account).Clone())
		return true
	})
	return all
}

// pageOf slices the sorted set, clamping past-the-end requests to empty.
func pageOf(all []models.Account, limit, offset int) []models.Account {
	if offset >= len(all) {
		return []models.Account{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
