// Package storage selects and owns the active persistence backend. The
// Provider lazily constructs one repository per record type from the
// configured backend kind and rebuilds all four atomically when the kind
// changes.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/modhost/backend/internal/dbx"
	"github.com/modhost/backend/internal/filex"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/config"
	"github.com/modhost/backend/internal/server/repositories/accounts"
	"github.com/modhost/backend/internal/server/repositories/projects"
	"github.com/modhost/backend/internal/server/repositories/sessions"
	"github.com/modhost/backend/internal/server/repositories/teams"
)

// Kind names a persistence backend.
type Kind string

const (
	// KindLocal keeps everything in process memory.
	KindLocal Kind = "local"
	// KindJSON keeps one JSON document per record type under the data dir.
	KindJSON Kind = "json"
	// KindSQLite keeps everything in an embedded database file.
	KindSQLite Kind = "sqlite"
	// KindPostgres uses a networked PostgreSQL database.
	KindPostgres Kind = "postgres"
)

// ParseKind maps a configured kind string to a Kind, defaulting to
// KindLocal for blank or unknown values.
func ParseKind(raw string) Kind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(KindJSON):
		return KindJSON
	case string(KindSQLite):
		return KindSQLite
	case string(KindPostgres):
		return KindPostgres
	default:
		return KindLocal
	}
}

// Provider holds the four active repositories. Accessors and Reconfigure
// share one mutex: callers always observe a consistent backend set, never a
// mix of two kinds.
type Provider struct {
	cfg *config.Config
	log logging.Logger

	mu       sync.Mutex
	kind     Kind
	built    bool
	db       *dbx.DB
	accounts accounts.Repository
	projects projects.Repository
	teams    teams.Repository
	sessions sessions.Repository
}

// NewProvider returns a Provider that will construct the backend set on
// first use.
func NewProvider(cfg *config.Config, log logging.Logger) *Provider {
	return &Provider{cfg: cfg, log: log, kind: ParseKind(cfg.StorageKind)}
}

// Accounts returns the active account repository.
func (p *Provider) Accounts(ctx context.Context) (accounts.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureLocked(ctx); err != nil {
		return nil, err
	}
	return p.accounts, nil
}

// Projects returns the active project repository.
func (p *Provider) Projects(ctx context.Context) (projects.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureLocked(ctx); err != nil {
		return nil, err
	}
	return p.projects, nil
}

// Teams returns the active team repository.
func (p *Provider) Teams(ctx context.Context) (teams.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureLocked(ctx); err != nil {
		return nil, err
	}
	return p.teams, nil
}

// Sessions returns the active session repository.
func (p *Provider) Sessions(ctx context.Context) (sessions.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureLocked(ctx); err != nil {
		return nil, err
	}
	return p.sessions, nil
}

// Reconfigure switches the active backend kind. If it differs from the
// current one, all four repositories are torn down and rebuilt together.
func (p *Provider) Reconfigure(ctx context.Context, kind Kind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.built && kind == p.kind {
		return nil
	}
	p.kind = kind
	p.teardownLocked()
	return p.ensureLocked(ctx)
}

// Close releases backend resources.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
}

func (p *Provider) teardownLocked() {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			p.log.Warn(context.Background(), "storage handle close failed", "error", err)
		}
		p.db = nil
	}
	p.accounts, p.projects, p.teams, p.sessions = nil, nil, nil, nil
	p.built = false
}

func (p *Provider) ensureLocked(ctx context.Context) error {
	if p.built {
		return nil
	}
	if err := p.buildLocked(ctx); err != nil {
		return fmt.Errorf("build %s storage backend: %w", p.kind, err)
	}
	p.log.Info(ctx, "storage backend ready", "kind", string(p.kind))
	p.built = true
	return nil
}

func (p *Provider) buildLocked(ctx context.Context) error {
	switch p.kind {
	case KindJSON:
		return p.buildJSONLocked()
	case KindSQLite:
		return p.buildSQLLocked("sqlite", p.sqliteDSN())
	case KindPostgres:
		return p.buildSQLLocked("pgx", p.cfg.PostgresDSN())
	default:
		p.accounts = accounts.NewMemoryRepository()
		p.projects = projects.NewMemoryRepository()
		p.teams = teams.NewMemoryRepository()
		p.sessions = sessions.NewMemoryRepository()
		return nil
	}
}

func (p *Provider) buildJSONLocked() error {
	if err := filex.EnsureDir(p.cfg.DataDir); err != nil {
		return err
	}
	ar, err := accounts.NewJSONFileRepository(filepath.Join(p.cfg.DataDir, "accounts.json"), p.log)
	if err != nil {
		return err
	}
	pr, err := projects.NewJSONFileRepository(filepath.Join(p.cfg.DataDir, "projects.json"), p.log)
	if err != nil {
		return err
	}
	tr, err := teams.NewJSONFileRepository(filepath.Join(p.cfg.DataDir, "teams.json"), p.log)
	if err != nil {
		return err
	}
	sr, err := sessions.NewJSONFileRepository(filepath.Join(p.cfg.DataDir, "sessions.json"), p.log)
	if err != nil {
		return err
	}
	p.accounts, p.projects, p.teams, p.sessions = ar, pr, tr, sr
	return nil
}

func (p *Provider) buildSQLLocked(driver, dsn string) error {
	db, err := dbx.Open(driver, dsn, p.log)
	if err != nil {
		return err
	}
	p.db = db
	p.accounts = accounts.NewSQLRepository(db, p.log)
	p.projects = projects.NewSQLRepository(db, p.log)
	p.teams = teams.NewSQLRepository(db, p.log)
	p.sessions = sessions.NewSQLRepository(db, p.log)
	return nil
}

func (p *Provider) sqliteDSN() string {
	if p.cfg.SQLitePath == ":memory:" {
		return "file::memory:?cache=shared"
	}
	path := p.cfg.SQLitePath
	if path == "" {
		path = filepath.Join(p.cfg.DataDir, "storage.db")
	}
	if err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		p.log.Warn(context.Background(), "data directory not created", "error", err)
	}
	return "file:" + path
}
