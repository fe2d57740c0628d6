package teams

import (
	"context"
	"sort"
	"sync"

	"github.com/modhost/backend/internal/server/models"
)

// MemoryRepository keeps teams in a process-local concurrent map keyed by
// id. State does not survive a restart.
type MemoryRepository struct {
	teams sync.Map // id -> models.Team
}

// NewMemoryRepository returns an empty volatile repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) *models.Team {
	v, ok := r.teams.Load(id)
	if !ok {
		return nil
	}
	t := v.(models.Team).Clone()
	return &t
}

func (r *MemoryRepository) FindPage(ctx context.Context, limit, offset int) []models.Team {
	if limit <= 0 || offset < 0 {
		return []models.Team{}
	}
	all := []models.Team{}
	r.teams.Range(func(_, v any) bool {
		all = append(all, v.(models.Team).Clone())
		return true
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt < all[j].CreatedAt
		}
		return all[i].ID < all[j].ID
	})
	return pageOf(all, limit, offset)
}

func (r *MemoryRepository) Create(ctx context.Context, team models.Team) bool {
	if !valid(team) {
		return false
	}
	if _, exists := r.teams.Load(team.ID); exists {
		return false
	}
	r.teams.Store(team.ID, team.Clone())
	return true
}

func (r *MemoryRepository) Update(ctx context.Context, team models.Team) bool {
	if !valid(team) {
		return false
	}
	if _, exists := r.teams.Load(team.ID); !exists {
		return false
	}
	r.teams.Store(team.ID, team.Clone())
	return true
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) bool {
	_, ok := r.teams.LoadAndDelete(id)
	return ok
}

func pageOf(all []models.Team, limit, offset int) []models.Team {
	if offset >= len(all) {
		return []models.Team{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
