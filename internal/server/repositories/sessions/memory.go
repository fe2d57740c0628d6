package sessions

import (
	"context"
	"sync"

	"github.com/modhost/backend/internal/server/models"
)

// MemoryRepository keeps sessions in a process-local concurrent map keyed by
// token. State does not survive a restart.
type MemoryRepository struct {
	sessions sync.Map // token -> models.Session
}

// NewMemoryRepository returns an empty volatile repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) FindByToken(ctx context.Context, token string) *models.Session {
	v, ok := r.sessions.Load(token)
	if !ok {
		return nil
	}
	s := v.(models.Session)
	return &s
}

func (r *MemoryRepository) Create(ctx context.Context, session models.Session) bool {
	if !valid(session) {
		return false
	}
	if _, exists := r.sessions.Load(session.Token); exists {
		return false
	}
	r.sessions.Store(session.Token, session)
	return true
}

func (r *MemoryRepository) Update(ctx context.Context, session models.Session) bool {
	if !valid(session) {
		return false
	}
	if _, exists := r.sessions.Load(session.Token); !exists {
		return false
	}
	r.sessions.Store(session.Token, session)
	return true
}

func (r *MemoryRepository) Delete(ctx context.Context, token string) bool {
	_, ok := r.sessions.LoadAndDelete(token)
	return ok
}
