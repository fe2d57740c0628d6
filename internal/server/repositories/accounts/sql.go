package accounts

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/modhost/backend/internal/dbx"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
)

// SQLRepository stores accounts in one relational table. Works against both
// the embedded SQLite backend and networked PostgreSQL; statements stick to
// the portable subset both support. Schema initialization is idempotent and
// runs at most once per repository instance: a mandatory CREATE TABLE
// followed by best-effort index/column migrations whose failures are the
// expected steady-state ("already exists") and are logged at debug level.
type SQLRepository struct {
	db  *dbx.DB
	log logging.Logger

	mu      sync.Mutex
	ensured bool
}

const accountsCreateTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id VARCHAR(36) NOT NULL PRIMARY KEY,
	email VARCHAR(255) NOT NULL,
	username VARCHAR(64) NOT NULL,
	profile_picture VARCHAR(512) NOT NULL DEFAULT '',
	is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
	password_hash VARCHAR(255) NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	permissions TEXT NOT NULL DEFAULT '[]',
	projects TEXT NOT NULL DEFAULT '[]',
	teams TEXT NOT NULL DEFAULT '[]',
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
)`

// accountsMigrations run after the create; each is tolerated to fail.
// Uniqueness is case-insensitive, enforced on LOWER(column).
var accountsMigrations = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts (LOWER(email))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_username ON accounts (LOWER(username))`,
	`ALTER TABLE accounts ADD COLUMN profile_picture VARCHAR(512) NOT NULL DEFAULT ''`,
	`ALTER TABLE accounts ADD COLUMN is_hidden BOOLEAN NOT NULL DEFAULT FALSE`,
	`ALTER TABLE accounts ADD COLUMN is_admin BOOLEAN NOT NULL DEFAULT FALSE`,
	`UPDATE accounts SET is_admin = TRUE WHERE permissions LIKE '%"admin"%'`,
	`ALTER TABLE accounts ADD COLUMN projects TEXT NOT NULL DEFAULT '[]'`,
	`ALTER TABLE accounts ADD COLUMN teams TEXT NOT NULL DEFAULT '[]'`,
	`UPDATE accounts SET teams = organizations WHERE teams = '[]'`,
}

const accountColumns = `id, email, username, profile_picture, is_hidden, password_hash, is_admin, permissions, projects, teams, created_at, updated_at`

// NewSQLRepository binds the repository to db and attempts schema
// initialization immediately; a failed attempt is retried by the next
// operation.
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
		r.log.Error(ctx, "account storage could not reconnect for schema init")
		return false
	}
	if _, err := r.db.Handle().ExecContext(ctx, accountsCreateTable); err != nil {
		r.log.Error(ctx, "account storage schema init failed", "error", err)
		return false
	}
	for _, stmt := range accountsMigrations {
		if _, err := r.db.Handle().ExecContext(ctx, stmt); err != nil {
			r.log.Debug(ctx, "account storage schema step skipped", "error", err)
		}
	}
	r.ensured = true
	return true
}

// ready ensures the schema and a live connection before a statement runs.
func (r *SQLRepository) ready(ctx context.Context) bool {
	return r.ensureSchema(ctx) && r.db.Reconnect(ctx)
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) *models.Account {
	return r.fetchOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *SQLRepository) FindByEmail(ctx context.Context, email string) *models.Account {
	return r.fetchOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *SQLRepository) FindByUsername(ctx context.Context, username string) *models.Account {
	return r.fetchOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE LOWER(username) = LOWER($1)`, username)
}

func (r *SQLRepository) FindPage(ctx context.Context, limit, offset int) []models.Account {
	records := []models.Account{}
	if limit <= 0 || offset < 0 || !r.ready(ctx) {
		return records
	}
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Handle().QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.log.Error(ctx, "account storage page query failed", "error", err)
		return records
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			r.log.Error(ctx, "account storage row scan failed", "error", err)
			return []models.Account{}
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		r.log.Error(ctx, "account storage page iteration failed", "error", err)
	}
	return records
}

func (r *SQLRepository) HasAdminAccount(ctx context.Context) bool {
	if !r.ready(ctx) {
		return false
	}
	var one int
	err := r.db.Handle().QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE is_admin = TRUE LIMIT 1`).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		r.log.Error(ctx, "account storage admin query failed", "error", err)
		return false
	}
	return true
}

func (r *SQLRepository) Create(ctx context.Context, account models.Account) bool {
	if !valid(account) {
		return false
	}
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	return r.execute(ctx, query,
		account.ID, account.Email, account.Username, account.ProfilePicture,
		account.Hidden, account.PasswordHash, account.Admin,
		models.EncodeStringList(account.Permissions),
		models.EncodeStringList(account.Projects),
		models.EncodeStringList(account.Teams),
		account.CreatedAt, account.UpdatedAt)
}

func (r *SQLRepository) Update(ctx context.Context, account models.Account) bool {
	if !valid(account) {
		return false
	}
	query := `UPDATE accounts SET email = $1, username = $2, profile_picture = $3,
		is_hidden = $4, password_hash = $5, is_admin = $6, permissions = $7,
		projects = $8, teams = $9, updated_at = $10 WHERE id = $11`
	return r.execute(ctx, query,
		account.Email, account.Username, account.ProfilePicture,
		account.Hidden, account.PasswordHash, account.Admin,
		models.EncodeStringList(account.Permissions),
		models.EncodeStringList(account.Projects),
		models.EncodeStringList(account.Teams),
		account.UpdatedAt, account.ID)
}

func (r *SQLRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt int64) bool {
	query := `UPDATE accounts SET password_hash = $1, updated_at = $2 WHERE id = $3`
	return r.execute(ctx, query, passwordHash, updatedAt, id)
}

func (r *SQLRepository) Delete(ctx context.Context, id string) bool {
	return r.execute(ctx, `DELETE FROM accounts WHERE id = $1`, id)
}

func (r *SQLRepository) fetchOne(ctx context.Context, query string, args ...any) *models.Account {
	if !r.ready(ctx) {
		return nil
	}
	row := r.db.Handle().QueryRowContext(ctx, query, args...)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		r.log.Error(ctx, "account storage query failed", "error", err)
		return nil
	}
	return &a
}

func (r *SQLRepository) execute(ctx context.Context, query string, args ...any) bool {
	if !r.ready(ctx) {
		return false
	}
	res, err := r.db.Handle().ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error(ctx, "account storage update failed", "error", err)
		return false
	}
	affected, err := res.RowsAffected()
	if err != nil {
		r.log.Error(ctx, "account storage affected rows unknown", "error", err)
		return false
	}
	return affected > 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (models.Account, error) {
	var a models.Account
	var permissions, projects, teams string
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.ProfilePicture, &a.Hidden,
		&a.PasswordHash, &a.Admin, &permissions, &projects, &teams,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.Account{}, err
	}
	a.Permissions = models.DecodeStringList(permissions)
	a.Projects = models.DecodeStringList(projects)
	a.Teams = models.DecodeStringList(teams)
	return a, nil
}
