package teams

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/modhost/backend/internal/dbx"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
)

// SQLRepository stores teams in one relational table keyed by id. List
// fields are stored as JSON-encoded text columns.
type SQLRepository struct {
	db  *dbx.DB
	log logging.Logger

	mu      sync.Mutex
	ensured bool
}

const teamsCreateTable = `
CREATE TABLE IF NOT EXISTS teams (
	id VARCHAR(36) NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL DEFAULT '',
	picture VARCHAR(512) NOT NULL DEFAULT '',
	owner_id VARCHAR(36) NOT NULL DEFAULT '',
	is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
	projects TEXT NOT NULL DEFAULT '[]',
	member_ids TEXT NOT NULL DEFAULT '[]',
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
)`

var teamsMigrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_teams_owner ON teams (owner_id)`,
	`ALTER TABLE teams ADD COLUMN picture VARCHAR(512) NOT NULL DEFAULT ''`,
	`ALTER TABLE teams ADD COLUMN is_hidden BOOLEAN NOT NULL DEFAULT FALSE`,
	`ALTER TABLE teams ADD COLUMN member_ids TEXT NOT NULL DEFAULT '[]'`,
}

const teamColumns = `id, name, picture, owner_id, is_hidden, projects, member_ids, created_at, updated_at`

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
		r.log.Error(ctx, "team storage could not reconnect for schema init")
		return false
	}
	if _, err := r.db.Handle().ExecContext(ctx, teamsCreateTable); err != nil {
		r.log.Error(ctx, "team storage schema init failed", "error", err)
		return false
	}
	for _, stmt := range teamsMigrations {
		if _, err := r.db.Handle().ExecContext(ctx, stmt); err != nil {
			r.log.Debug(ctx, "team storage schema step skipped", "error", err)
		}
	}
	r.ensured = true
	return true
}

func (r *SQLRepository) ready(ctx context.Context) bool {
	return r.ensureSchema(ctx) && r.db.Reconnect(ctx)
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) *models.Team {
	if !r.ready(ctx) {
		return nil
	}
	row := r.db.Handle().QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		r.log.Error(ctx, "team storage query failed", "error", err)
		return nil
	}
	return &t
}

func (r *SQLRepository) FindPage(ctx context.Context, limit, offset int) []models.Team {
	records := []models.Team{}
	if limit <= 0 || offset < 0 || !r.ready(ctx) {
		return records
	}
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Handle().QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.log.Error(ctx, "team storage page query failed", "error", err)
		return records
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			r.log.Error(ctx, "team storage row scan failed", "error", err)
			return []models.Team{}
		}
		records = append(records, t)
	}
	if err := rows.Err(); err != nil {
		r.log.Error(ctx, "team storage page iteration failed", "error", err)
	}
	return records
}

func (r *SQLRepository) Create(ctx context.Context, team models.Team) bool {
	if !valid(team) {
		return false
	}
	query := `INSERT INTO teams (` + teamColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	return r.execute(ctx, query,
		team.ID, team.Name, team.Picture, team.OwnerID, team.Hidden,
		models.EncodeStringList(team.Projects),
		models.EncodeStringList(team.MemberIDs),
		team.CreatedAt, team.UpdatedAt)
}

func (r *SQLRepository) Update(ctx context.Context, team models.Team) bool {
	if !valid(team) {
		return false
	}
	query := `UPDATE teams SET name = $1, picture = $2, owner_id = $3,
		is_hidden = $4, projects = $5, member_ids = $6, updated_at = $7
		WHERE id = $8`
	return r.execute(ctx, query,
		team.Name, team.Picture, team.OwnerID, team.Hidden,
		models.EncodeStringList(team.Projects),
		models.EncodeStringList(team.MemberIDs),
		team.UpdatedAt, team.ID)
}

func (r *SQLRepository) Delete(ctx context.Context, id string) bool {
	return r.execute(ctx, `DELETE FROM teams WHERE id = $1`, id)
}

func (r *SQLRepository) execute(ctx context.Context, query string, args ...any) bool {
	if !r.ready(ctx) {
		return false
	}
	res, err := r.db.Handle().ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error(ctx, "team storage update failed", "error", err)
		return false
	}
	affected, err := res.RowsAffected()
	if err != nil {
		r.log.Error(ctx, "team storage affected rows unknown", "error", err)
		return false
	}
	return affected > 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeam(row rowScanner) (models.Team, error) {
	var t models.Team
	var projects, memberIDs string
	err := row.Scan(&t.ID, &t.Name, &t.Picture, &t.OwnerID, &t.Hidden,
		&projects, &memberIDs, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Team{}, err
	}
	t.Projects = models.DecodeStringList(projects)
	t.MemberIDs = models.DecodeStringList(memberIDs)
	return t, nil
}
