package projects

import (
	"context"
	"sort"
	"sync"

	"github.com/modhost/backend/internal/server/models"
)

// MemoryRepository keeps projects in a process-local concurrent map keyed by
// slug. State does not survive a restart.
type MemoryRepository struct {
	projects sync.Map // slug -> models.Project
}

// NewMemoryRepository returns an empty volatile repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) FindBySlug(ctx context.Context, slug string) *models.Project {
	v, ok := r.projects.Load(slug)
	if !ok {
		return nil
	}
	p := v.(models.Project).Clone()
	return &p
}

func (r *MemoryRepository) FindPage(ctx context.Context, limit, offset int) []models.Project {
	if limit <= 0 || offset < 0 {
		return []models.Project{}
	}
	all := []models.Project{}
	r.projects.Range(func(_, v any) bool {
		all = append(all, v.(models.Project).Clone())
		return true
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt < all[j].CreatedAt
		}
		return all[i].Slug < all[j].Slug
	})
	return pageOf(all, limit, offset)
}

func (r *MemoryRepository) Create(ctx context.Context, project models.Project) bool {
	if !valid(project) {
		return false
	}
	if _, exists := r.projects.Load(project.Slug); exists {
		return false
	}
	r.projects.Store(project.Slug, project.Clone())
	return true
}

func (r *MemoryRepository) Update(ctx context.Context, project models.Project) bool {
	if !valid(project) {
		return false
	}
	if _, exists := r.projects.Load(project.Slug); !exists {
		return false
	}
	r.projects.Store(project.Slug, project.Clone())
	return true
}

func (r *MemoryRepository) Delete(ctx context.Context, slug string) bool {
	_, ok := r.projects.LoadAndDelete(slug)
	return ok
}

func pageOf(all []models.Project, limit, offset int) []models.Project {
	if offset >= len(all) {
		return []models.Project{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
