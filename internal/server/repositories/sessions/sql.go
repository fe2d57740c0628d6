package sessions

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/modhost/backend/internal/dbx"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
)

// SQLRepository stores sessions in one relational table keyed by token.
type SQLRepository struct {
	db  *dbx.DB
	log logging.Logger

	mu      sync.Mutex
	ensured bool
}

const sessionsCreateTable = `
CREATE TABLE IF NOT EXISTS sessions (
	token VARCHAR(128) NOT NULL PRIMARY KEY,
	account_id VARCHAR(36) NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL,
	expires_at BIGINT NOT NULL DEFAULT 0,
	type VARCHAR(32) NOT NULL DEFAULT 'SESSION',
	remaining_uses INT NOT NULL DEFAULT -1
)`

var sessionsMigrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions (account_id)`,
	`ALTER TABLE sessions ADD COLUMN type VARCHAR(32) NOT NULL DEFAULT 'SESSION'`,
	`ALTER TABLE sessions ADD COLUMN remaining_uses INT NOT NULL DEFAULT -1`,
}

const sessionColumns = `token, account_id, created_at, expires_at, type, remaining_uses`

// NewSQLRepository binds the repository to db and attempts schema
// initialization immediately.
func NewSQLRepository(db *dbx.DB, log logging.Logger) *SQLRepository {
	r := &SQLRepository{db: db, log: log}
	r.ensureSchema(context.Background())
	return r
}

func (r *SQLRepository) ensureSchema(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ensured {
		return true
	}
	if !r.db.Reconnect(ctx) {
		r.log.Error(ctx, "session storage could not reconnect for schema init")
		return false
	}
	if _, err := r.db.Handle().ExecContext(ctx, sessionsCreateTable); err != nil {
		r.log.Error(ctx, "session storage schema init failed", "error", err)
		return false
	}
	for _, stmt := range sessionsMigrations {
		if _, err := r.db.Handle().ExecContext(ctx, stmt); err != nil {
			r.log.Debug(ctx, "session storage schema step skipped", "error", err)
		}
	}
	r.ensured = true
	return true
}

func (r *SQLRepository) ready(ctx context.Context) bool {
	return r.ensureSchema(ctx) && r.db.Reconnect(ctx)
}

func (r *SQLRepository) FindByToken(ctx context.Context, token string) *models.Session {
	if !r.ready(ctx) {
		return nil
	}
	row := r.db.Handle().QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token)

	var s models.Session
	var kind string
	err := row.Scan(&s.Token, &s.AccountID, &s.CreatedAt, &s.ExpiresAt, &kind, &s.RemainingUses)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		r.log.Error(ctx, "session storage query failed", "error", err)
		return nil
	}
	s.Kind = models.ParseTokenKind(kind)
	return &s
}

func (r *SQLRepository) Create(ctx context.Context, session models.Session) bool {
	if !valid(session) {
		return false
	}
	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	return r.execute(ctx, query,
		session.Token, session.AccountID, session.CreatedAt, session.ExpiresAt,
		string(session.Kind), session.RemainingUses)
}

func (r *SQLRepository) Update(ctx context.Context, session models.Session) bool {
	if !valid(session) {
		return false
	}
	query := `UPDATE sessions SET account_id = $1, created_at = $2, expires_at = $3,
		type = $4, remaining_uses = $5 WHERE token = $6`
	return r.execute(ctx, query,
		session.AccountID, session.CreatedAt, session.ExpiresAt,
		string(session.Kind), session.RemainingUses, session.Token)
}

func (r *SQLRepository) Delete(ctx context.Context, token string) bool {
	return r.execute(ctx, `DELETE FROM sessions WHERE token = $1`, token)
}

func (r *SQLRepository) execute(ctx context.Context, query string, args ...any) bool {
	if !r.ready(ctx) {
		return false
	}
	res, err := r.db.Handle().ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error(ctx, "session storage update failed", "error", err)
		return false
	}
	affected, err := res.RowsAffected()
	if err != nil {
		r.log.Error(ctx, "session storage affected rows unknown", "error", err)
		return false
	}
	return affected > 0
}
