package projects

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/modhost/backend/internal/dbx"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
)

// SQLRepository stores projects in one relational table keyed by slug.
// Schema initialization follows the same pattern as the other SQL
// repositories: mandatory CREATE TABLE, then best-effort migrations.
type SQLRepository struct {
	db  *dbx.DB
	log logging.Logger

	mu      sync.Mutex
	ensured bool
}

const projectsCreateTable = `
CREATE TABLE IF NOT EXISTS projects (
	slug VARCHAR(128) NOT NULL PRIMARY KEY,
	id VARCHAR(36) NOT NULL DEFAULT '',
	title VARCHAR(255) NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	category_ids TEXT NOT NULL DEFAULT '[]',
	additional_tags TEXT NOT NULL DEFAULT '[]',
	donation_urls TEXT NOT NULL DEFAULT '[]',
	gallery_urls TEXT NOT NULL DEFAULT '[]',
	game_versions TEXT NOT NULL DEFAULT '[]',
	version_ids TEXT NOT NULL DEFAULT '[]',
	body TEXT NOT NULL DEFAULT '',
	status VARCHAR(64) NOT NULL DEFAULT '',
	requested_status VARCHAR(64) NOT NULL DEFAULT '',
	issues_url VARCHAR(512) NOT NULL DEFAULT '',
	source_url VARCHAR(512) NOT NULL DEFAULT '',
	wiki_url VARCHAR(512) NOT NULL DEFAULT '',
	discord_url VARCHAR(512) NOT NULL DEFAULT '',
	project_type VARCHAR(64) NOT NULL DEFAULT '',
	downloads INT NOT NULL DEFAULT 0,
	icon_url VARCHAR(512) NOT NULL DEFAULT '',
	color_hex VARCHAR(16) NOT NULL DEFAULT '',
	owner_id VARCHAR(36) NOT NULL DEFAULT '',
	moderator_message TEXT NOT NULL DEFAULT '',
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL,
	approved_at BIGINT NOT NULL DEFAULT 0,
	queued_at BIGINT NOT NULL DEFAULT 0,
	followers INT NOT NULL DEFAULT 0,
	license VARCHAR(255) NOT NULL DEFAULT ''
)`

var projectsMigrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects (owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_status ON projects (status)`,
	`ALTER TABLE projects ADD COLUMN game_versions TEXT NOT NULL DEFAULT '[]'`,
	`ALTER TABLE projects ADD COLUMN version_ids TEXT NOT NULL DEFAULT '[]'`,
	`ALTER TABLE projects ADD COLUMN project_type VARCHAR(64) NOT NULL DEFAULT ''`,
	`ALTER TABLE projects ADD COLUMN icon_url VARCHAR(512) NOT NULL DEFAULT ''`,
	`ALTER TABLE projects ADD COLUMN color_hex VARCHAR(16) NOT NULL DEFAULT ''`,
	`ALTER TABLE projects ADD COLUMN moderator_message TEXT NOT NULL DEFAULT ''`,
	`ALTER TABLE projects ADD COLUMN approved_at BIGINT NOT NULL DEFAULT 0`,
	`ALTER TABLE projects ADD COLUMN queued_at BIGINT NOT NULL DEFAULT 0`,
	`ALTER TABLE projects ADD COLUMN followers INT NOT NULL DEFAULT 0`,
	`ALTER TABLE projects ADD COLUMN license VARCHAR(255) NOT NULL DEFAULT ''`,
}

const projectColumns = `slug, id, title, description, category_ids, additional_tags, donation_urls, gallery_urls, game_versions, version_ids, body, status, requested_status, issues_url, source_url, wiki_url, discord_url, project_type, downloads, icon_url, color_hex, owner_id, moderator_message, created_at, updated_at, approved_at, queued_at, followers, license`

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
		r.log.Error(ctx, "project storage could not reconnect for schema init")
		return false
	}
	if _, err := r.db.Handle().ExecContext(ctx, projectsCreateTable); err != nil {
		r.log.Error(ctx, "project storage schema init failed", "error", err)
		return false
	}
	for _, stmt := range projectsMigrations {
		if _, err := r.db.Handle().ExecContext(ctx, stmt); err != nil {
			r.log.Debug(ctx, "project storage schema step skipped", "error", err)
		}
	}
	r.ensured = true
	return true
}

func (r *SQLRepository) ready(ctx context.Context) bool {
	return r.ensureSchema(ctx) && r.db.Reconnect(ctx)
}

func (r *SQLRepository) FindBySlug(ctx context.Context, slug string) *models.Project {
	if !r.ready(ctx) {
		return nil
	}
	row := r.db.Handle().QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE slug = $1`, slug)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		r.log.Error(ctx, "project storage query failed", "error", err)
		return nil
	}
	return &p
}

func (r *SQLRepository) FindPage(ctx context.Context, limit, offset int) []models.Project {
	records := []models.Project{}
	if limit <= 0 || offset < 0 || !r.ready(ctx) {
		return records
	}
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at ASC, slug ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Handle().QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.log.Error(ctx, "project storage page query failed", "error", err)
		return records
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			r.log.Error(ctx, "project storage row scan failed", "error", err)
			return []models.Project{}
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		r.log.Error(ctx, "project storage page iteration failed", "error", err)
	}
	return records
}

func (r *SQLRepository) Create(ctx context.Context, project models.Project) bool {
	if !valid(project) {
		return false
	}
	query := `INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`
	return r.execute(ctx, query, projectArgs(project)...)
}

func (r *SQLRepository) Update(ctx context.Context, project models.Project) bool {
	if !valid(project) {
		return false
	}
	query := `UPDATE projects SET id = $1, title = $2, description = $3,
		category_ids = $4, additional_tags = $5, donation_urls = $6,
		gallery_urls = $7, game_versions = $8, version_ids = $9, body = $10,
		status = $11, requested_status = $12, issues_url = $13,
		source_url = $14, wiki_url = $15, discord_url = $16,
		project_type = $17, downloads = $18, icon_url = $19, color_hex = $20,
		owner_id = $21, moderator_message = $22, updated_at = $23,
		approved_at = $24, queued_at = $25, followers = $26, license = $27
		WHERE slug = $28`
	return r.execute(ctx, query,
		project.ID, project.Title, project.Description,
		models.EncodeStringList(project.CategoryIDs),
		models.EncodeStringList(project.AdditionalTags),
		models.EncodeStringList(project.DonationURLs),
		models.EncodeStringList(project.GalleryURLs),
		models.EncodeStringList(project.GameVersions),
		models.EncodeStringList(project.VersionIDs),
		project.Body, project.Status, project.RequestedStatus,
		project.IssuesURL, project.SourceURL, project.WikiURL, project.DiscordURL,
		project.ProjectType, project.Downloads, project.IconURL, project.ColorHex,
		project.OwnerID, project.ModeratorMessage, project.UpdatedAt,
		project.ApprovedAt, project.QueuedAt, project.Followers, project.License,
		project.Slug)
}

func (r *SQLRepository) Delete(ctx context.Context, slug string) bool {
	return r.execute(ctx, `DELETE FROM projects WHERE slug = $1`, slug)
}

func (r *SQLRepository) execute(ctx context.Context, query string, args ...any) bool {
	if !r.ready(ctx) {
		return false
	}
	res, err := r.db.Handle().ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error(ctx, "project storage update failed", "error", err)
		return false
	}
	affected, err := res.RowsAffected()
	if err != nil {
		r.log.Error(ctx, "project storage affected rows unknown", "error", err)
		return false
	}
	return affected > 0
}

func projectArgs(p models.Project) []any {
	return []any{
		p.Slug, p.ID, p.Title, p.Description,
		models.EncodeStringList(p.CategoryIDs),
		models.EncodeStringList(p.AdditionalTags),
		models.EncodeStringList(p.DonationURLs),
		models.EncodeStringList(p.GalleryURLs),
		models.EncodeStringList(p.GameVersions),
		models.EncodeStringList(p.VersionIDs),
		p.Body, p.Status, p.RequestedStatus,
		p.IssuesURL, p.SourceURL, p.WikiURL, p.DiscordURL,
		p.ProjectType, p.Downloads, p.IconURL, p.ColorHex,
		p.OwnerID, p.ModeratorMessage, p.CreatedAt, p.UpdatedAt,
		p.ApprovedAt, p.QueuedAt, p.Followers, p.License,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (models.Project, error) {
	var p models.Project
	var categoryIDs, additionalTags, donationURLs, galleryURLs, gameVersions, versionIDs string
	err := row.Scan(&p.Slug, &p.ID, &p.Title, &p.Description,
		&categoryIDs, &additionalTags, &donationURLs, &galleryURLs, &gameVersions, &versionIDs,
		&p.Body, &p.Status, &p.RequestedStatus,
		&p.IssuesURL, &p.SourceURL, &p.WikiURL, &p.DiscordURL,
		&p.ProjectType, &p.Downloads, &p.IconURL, &p.ColorHex,
		&p.OwnerID, &p.ModeratorMessage, &p.CreatedAt, &p.UpdatedAt,
		&p.ApprovedAt, &p.QueuedAt, &p.Followers, &p.License)
	if err != nil {
		return models.Project{}, err
	}
	p.CategoryIDs = models.DecodeStringList(categoryIDs)
	p.AdditionalTags = models.DecodeStringList(additionalTags)
	p.DonationURLs = models.DecodeStringList(donationURLs)
	p.GalleryURLs = models.DecodeStringList(galleryURLs)
	p.GameVersions = models.DecodeStringList(gameVersions)
	p.VersionIDs = models.DecodeStringList(versionIDs)
	return p, nil
}
