package teams

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

// JSONFileRepository persists all teams in a single JSON document that is
// fully rewritten on every mutation, guarded by one mutex. Older documents
// are migrated on load by backfilling absent list fields as empty lists.
type JSONFileRepository struct {
	path string
	log  logging.Logger

	mu    sync.Mutex
	teams []models.Team
}

type teamsDocument struct {
	Teams []models.Team `json:"teams"`
}

// NewJSONFileRepository loads (or creates) the teams document at path. An
// unreadable or corrupt document aborts construction.
func NewJSONFileRepository(path string, log logging.Logger) (*JSONFileRepository, error) {
	r := &JSONFileRepository{path: path, log: log}
	if err := r.loadOrCreate(); err != nil {
		return nil, fmt.Errorf("load team storage file %s: %w", path, err)
	}
	return r, nil
}

func (r *JSONFileRepository) loadOrCreate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		r.teams = []models.Team{}
		if !r.save(r.teams) {
			return fmt.Errorf("write initial document")
		}
		return nil
	}
	if err != nil {
		return err
	}

	var doc teamsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	teams := make([]models.Team, 0, len(doc.Teams))
	migrated := doc.Teams == nil
	for _, t := range doc.Teams {
		if t.Projects == nil {
			t.Projects = []string{}
			migrated = true
		}
		if t.MemberIDs == nil {
			t.MemberIDs = []string{}
			migrated = true
		}
		teams = append(teams, t)
	}
	r.teams = teams

	if migrated && !r.save(r.teams) {
		r.log.Warn(context.Background(), "team storage migration re-save failed", "path", r.path)
	}
	return nil
}

func (r *JSONFileRepository) FindByID(ctx context.Context, id string) *models.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.ID == id {
			c := t.Clone()
			return &c
		}
	}
	return nil
}

func (r *JSONFileRepository) FindPage(ctx context.Context, limit, offset int) []models.Team {
	if limit <= 0 || offset < 0 {
		return []models.Team{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	all := cloneAll(r.teams)
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt < all[j].CreatedAt
		}
		return all[i].ID < all[j].ID
	})
	return pageOf(all, limit, offset)
}

func (r *JSONFileRepository) Create(ctx context.Context, team models.Team) bool {
	if !valid(team) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.teams {
		if t.ID == team.ID {
			return false
		}
	}
	candidate := append(cloneAll(r.teams), team.Clone())
	return r.commit(candidate)
}

func (r *JSONFileRepository) Update(ctx context.Context, team models.Team) bool {
	if !valid(team) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, t := range r.teams {
		if t.ID == team.ID {
			candidate := cloneAll(r.teams)
			candidate[i] = team.Clone()
			return r.commit(candidate)
		}
	}
	return false
}

func (r *JSONFileRepository) Delete(ctx context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, t := range r.teams {
		if t.ID == id {
			candidate := append(cloneAll(r.teams[:i]), cloneAll(r.teams[i+1:])...)
			return r.commit(candidate)
		}
	}
	return false
}

func (r *JSONFileRepository) commit(candidate []models.Team) bool {
	if !r.save(candidate) {
		return false
	}
	r.teams = candidate
	return true
}

func (r *JSONFileRepository) save(teams []models.Team) bool {
	data, err := json.Marshal(teamsDocument{Teams: teams})
	if err != nil {
		r.log.Error(context.Background(), "team storage encode failed", "error", err)
		return false
	}
	if err := filex.WriteFileAtomic(r.path, data); err != nil {
		r.log.Error(context.Background(), "team storage write failed", "path", r.path, "error", err)
		return false
	}
	return true
}

func cloneAll(in []models.Team) []models.Team {
	out := make([]models.Team, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
