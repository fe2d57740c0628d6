package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/modhost/backend/internal/filex"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
)

// JSONFileRepository persists all sessions in a single JSON document that is
// fully rewritten on every mutation, guarded by one mutex. Unlike the other
// file-backed repositories, every lookup re-reads the document from disk
// first so that session state reflects mutations made by another process
// sharing the data directory.
//
// Older documents are migrated on load: a missing policy kind becomes
// SESSION and a missing use counter becomes unlimited (-1).
type JSONFileRepository struct {
	path string
	log  logging.Logger

	mu       sync.Mutex
	sessions []models.Session
}

type sessionsDocument struct {
	Sessions []models.Session `json:"sessions"`
}

// sessionFile mirrors models.Session with pointer fields where absence in
// an older document must be distinguishable from a zero value.
type sessionFile struct {
	Token         string  `json:"token"`
	AccountID     string  `json:"accountId"`
	CreatedAt     int64   `json:"createdAt"`
	ExpiresAt     int64   `json:"expiresAt"`
	Kind          *string `json:"type"`
	RemainingUses *int    `json:"remainingUses"`
}

// NewJSONFileRepository loads (or creates) the sessions document at path.
// An unreadable or corrupt document aborts construction.
func NewJSONFileRepository(path string, log logging.Logger) (*JSONFileRepository, error) {
	r := &JSONFileRepository{path: path, log: log}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(true); err != nil {
		return nil, fmt.Errorf("load session storage file %s: %w", path, err)
	}
	return r, nil
}

// loadLocked reads the document into memory. With create set, a missing
// file is initialized; on subsequent reloads a read failure keeps the
// current in-memory state.
func (r *JSONFileRepository) loadLocked(create bool) error {
	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		if !create {
			return err
		}
		r.sessions = []models.Session{}
		if !r.save(r.sessions) {
			return fmt.Errorf("write initial document")
		}
		return nil
	}
	if err != nil {
		return err
	}

	var doc struct {
		Sessions []sessionFile `json:"sessions"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	sessions := make([]models.Session, 0, len(doc.Sessions))
	migrated := doc.Sessions == nil
	for _, f := range doc.Sessions {
		s, changed := migrateSession(f)
		sessions = append(sessions, s)
		migrated = migrated || changed
	}
	r.sessions = sessions

	if migrated && !r.save(r.sessions) {
		r.log.Warn(context.Background(), "session storage migration re-save failed", "path", r.path)
	}
	return nil
}

func migrateSession(f sessionFile) (models.Session, bool) {
	s := models.Session{
		Token:         f.Token,
		AccountID:     f.AccountID,
		CreatedAt:     f.CreatedAt,
		ExpiresAt:     f.ExpiresAt,
		Kind:          models.TokenKindSession,
		RemainingUses: -1,
	}
	changed := false
	if f.Kind != nil {
		s.Kind = models.ParseTokenKind(*f.Kind)
	} else {
		changed = true
	}
	if f.RemainingUses != nil {
		s.RemainingUses = *f.RemainingUses
	} else {
		changed = true
	}
	return s, changed
}

func (r *JSONFileRepository) FindByToken(ctx context.Context, token string) *models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadLocked(false); err != nil {
		r.log.Error(ctx, "session storage reload failed", "path", r.path, "error", err)
	}
	for _, s := range r.sessions {
		if s.Token == token {
			c := s
			return &c
		}
	}
	return nil
}

func (r *JSONFileRepository) Create(ctx context.Context, session models.Session) bool {
	if !valid(session) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Token == session.Token {
			return false
		}
	}
	candidate := append(append([]models.Session{}, r.sessions...), session)
	return r.commit(candidate)
}

func (r *JSONFileRepository) Update(ctx context.Context, session models.Session) bool {
	if !valid(session) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.sessions {
		if s.Token == session.Token {
			candidate := append([]models.Session{}, r.sessions...)
			candidate[i] = session
			return r.commit(candidate)
		}
	}
	return false
}

func (r *JSONFileRepository) Delete(ctx context.Context, token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.sessions {
		if s.Token == token {
			candidate := append([]models.Session{}, r.sessions[:i]...)
			candidate = append(candidate, r.sessions[i+1:]...)
			return r.commit(candidate)
		}
	}
	return false
}

func (r *JSONFileRepository) commit(candidate []models.Session) bool {
	if !r.save(candidate) {
		return false
	}
	r.sessions = candidate
	return true
}

func (r *JSONFileRepository) save(sessions []models.Session) bool {
	data, err := json.Marshal(sessionsDocument{Sessions: sessions})
	if err != nil {
		r.log.Error(context.Background(), "session storage encode failed", "error", err)
		return false
	}
	if err := filex.WriteFileAtomic(r.path, data); err != nil {
		r.log.Error(context.Background(), "session storage write failed", "path", r.path, "error", err)
		return false
	}
	return true
}
