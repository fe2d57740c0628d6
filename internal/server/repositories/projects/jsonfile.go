package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/modhost/backend/internal/filex"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
)

// JSONFileRepository persists all projects in a single JSON document that is
// fully rewritten on every mutation, guarded by one mutex. Older documents
// are migrated on load: absent list fields are backfilled as empty lists and
// a legacy "categories" key is renamed to "categoryIds"; absent scalar
// fields decode to their zero values directly.
type JSONFileRepository struct {
	path string
	log  logging.Logger

	mu       sync.Mutex
	projects []models.Project
}

type projectsDocument struct {
	Projects []models.Project `json:"projects"`
}

type projectFile struct {
	models.Project
	Categories []string `json:"categories"`
}

// NewJSONFileRepository loads (or creates) the projects document at path.
// An unreadable or corrupt document aborts construction.
func NewJSONFileRepository(path string, log logging.Logger) (*JSONFileRepository, error) {
	r := &JSONFileRepository{path: path, log: log}
	if err := r.loadOrCreate(); err != nil {
		return nil, fmt.Errorf("load project storage file %s: %w", path, err)
	}
	return r, nil
}

func (r *JSONFileRepository) loadOrCreate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		r.projects = []models.Project{}
		if !r.save(r.projects) {
			return fmt.Errorf("write initial document")
		}
		return nil
	}
	if err != nil {
		return err
	}

	var doc struct {
		Projects []projectFile `json:"projects"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	projects := make([]models.Project, 0, len(doc.Projects))
	migrated := doc.Projects == nil
	for _, f := range doc.Projects {
		p, changed := migrateProject(f)
		projects = append(projects, p)
		migrated = migrated || changed
	}
	r.projects = projects

	if migrated && !r.save(r.projects) {
		r.log.Warn(context.Background(), "project storage migration re-save failed", "path", r.path)
	}
	return nil
}

func migrateProject(f projectFile) (models.Project, bool) {
	p := f.Project
	changed := false
	if p.CategoryIDs == nil {
		if f.Categories != nil {
			p.CategoryIDs = f.Categories
		} else {
			p.CategoryIDs = []string{}
		}
		changed = true
	}
	for _, list := range []*[]string{&p.AdditionalTags, &p.DonationURLs, &p.GalleryURLs, &p.GameVersions, &p.VersionIDs} {
		if *list == nil {
			*list = []string{}
			changed = true
		}
	}
	return p, changed
}

func (r *JSONFileRepository) FindBySlug(ctx context.Context, slug string) *models.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Slug == slug {
			c := p.Clone()
			return &c
		}
	}
	return nil
}

func (r *JSONFileRepository) FindPage(ctx context.Context, limit, offset int) []models.Project {
	if limit <= 0 || offset < 0 {
		return []models.Project{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	all := cloneAll(r.projects)
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt < all[j].CreatedAt
		}
		return all[i].Slug < all[j].Slug
	})
	return pageOf(all, limit, offset)
}

func (r *JSONFileRepository) Create(ctx context.Context, project models.Project) bool {
	if !valid(project) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.projects {
		if p.Slug == project.Slug {
			return false
		}
	}
	candidate := append(cloneAll(r.projects), project.Clone())
	return r.commit(candidate)
}

func (r *JSONFileRepository) Update(ctx context.Context, project models.Project) bool {
	if !valid(project) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.projects {
		if p.Slug == project.Slug {
			candidate := cloneAll(r.projects)
			candidate[i] = project.Clone()
			return r.commit(candidate)
		}
	}
	return false
}

func (r *JSONFileRepository) Delete(ctx context.Context, slug string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.projects {
		if p.Slug == slug {
			candidate := append(cloneAll(r.projects[:i]), cloneAll(r.projects[i+1:])...)
			return r.commit(candidate)
		}
	}
	return false
}

func (r *JSONFileRepository) commit(candidate []models.Project) bool {
	if !r.save(candidate) {
		return false
	}
	r.projects = candidate
	return true
}

func (r *JSONFileRepository) save(projects []models.Project) bool {
	data, err := json.Marshal(projectsDocument{Projects: projects})
	if err != nil {
		r.log.Error(context.Background(), "project storage encode failed", "error", err)
		return false
	}
	if err := filex.WriteFileAtomic(r.path, data); err != nil {
		r.log.Error(context.Background(), "project storage write failed", "path", r.path, "error", err)
		return false
	}
	return true
}

func cloneAll(in []models.Project) []models.Project {
	out := make([]models.Project, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
