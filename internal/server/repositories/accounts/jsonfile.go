package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/modhost/backend/internal/filex"
	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
)

// JSONFileRepository persists all accounts in a single JSON document that is
// fully rewritten on every mutation. A single mutex serializes every
// read-modify-write sequence against the document. Older documents are
// migrated in place on load: missing fields are backfilled with defaults and
// the migrated document is re-persisted once.
type JSONFileRepository struct {
	path string
	log  logging.Logger

	mu    sync.Mutex
	users []models.Account
}

type accountsDocument struct {
	Users []models.Account `json:"users"`
}

// accountFile mirrors the on-disk shape with pointers for the fields that
// older documents may lack, so absence is distinguishable from a zero value.
type accountFile struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	Username       string   `json:"username"`
	ProfilePicture *string  `json:"profilePicture"`
	Hidden         *bool    `json:"isHidden"`
	PasswordHash   string   `json:"passwordHash"`
	Admin          *bool    `json:"isAdmin"`
	Permissions    []string `json:"permissions"`
	Projects       []string `json:"projects"`
	Teams          []string `json:"teams"`
	Organizations  []string `json:"organizations"`
	CreatedAt      int64    `json:"createdAt"`
	UpdatedAt      int64    `json:"updatedAt"`
}

// NewJSONFileRepository loads (or creates) the accounts document at path.
// An unreadable or corrupt document aborts construction.
func NewJSONFileRepository(path string, log logging.Logger) (*JSONFileRepository, error) {
	r := &JSONFileRepository{path: path, log: log}
	if err := r.loadOrCreate(); err != nil {
		return nil, fmt.Errorf("load account storage file %s: %w", path, err)
	}
	return r, nil
}

func (r *JSONFileRepository) loadOrCreate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		r.users = []models.Account{}
		if !r.save(r.users) {
			return fmt.Errorf("write initial document")
		}
		return nil
	}
	if err != nil {
		return err
	}

	var doc struct {
		Users []accountFile `json:"users"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	users := make([]models.Account, 0, len(doc.Users))
	migrated := doc.Users == nil
	for _, f := range doc.Users {
		a, changed := migrateAccount(f)
		users = append(users, a)
		migrated = migrated || changed
	}
	r.users = users

	if migrated && !r.save(r.users) {
		r.log.Warn(context.Background(), "account storage migration re-save failed", "path", r.path)
	}
	return nil
}

// migrateAccount backfills fields that older documents may lack and reports
// whether anything changed. A legacy "organizations" list becomes "teams",
// and the admin flag is derived from an "admin" permission when absent.
func migrateAccount(f accountFile) (models.Account, bool) {
	changed := false
	a := models.Account{
		ID:           f.ID,
		Email:        f.Email,
		Username:     f.Username,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}

	if f.ProfilePicture != nil {
		a.ProfilePicture = *f.ProfilePicture
	} else {
		changed = true
	}
	if f.Hidden != nil {
		a.Hidden = *f.Hidden
	} else {
		changed = true
	}
	if f.Permissions != nil {
		a.Permissions = f.Permissions
	} else {
		a.Permissions = []string{}
		changed = true
	}
	if f.Projects != nil {
		a.Projects = f.Projects
	} else {
		a.Projects = []string{}
		changed = true
	}
	switch {
	case f.Teams != nil:
		a.Teams = f.Teams
	case f.Organizations != nil:
		a.Teams = f.Organizations
		changed = true
	default:
		a.Teams = []string{}
		changed = true
	}
	if f.Admin != nil {
		a.Admin = *f.Admin
	} else {
		for _, p := range a.Permissions {
			if strings.EqualFold(p, "admin") {
				a.Admin = true
				break
			}
		}
		changed = true
	}
	return a, changed
}

func (r *JSONFileRepository) FindByID(ctx context.Context, id string) *models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(func(a models.Account) bool { return a.ID == id })
}

func (r *JSONFileRepository) FindByEmail(ctx context.Context, email string) *models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(func(a models.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (r *JSONFileRepository) FindByUsername(ctx context.Context, username string) *models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(func(a models.Account) bool { return strings.EqualFold(a.Username, username) })
}

func (r *JSONFileRepository) FindPage(ctx context.Context, limit, offset int) []models.Account {
	if limit <= 0 || offset < 0 {
		return []models.Account{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	all := cloneAll(r.users)
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt < all[j].CreatedAt
		}
		return all[i].ID < all[j].ID
	})
	return pageOf(all, limit, offset)
}

func (r *JSONFileRepository) HasAdminAccount(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.users {
		if a.Admin {
			return true
		}
	}
	return false
}

func (r *JSONFileRepository) Create(ctx context.Context, account models.Account) bool {
	if !valid(account) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.users {
		if a.ID == account.ID ||
			strings.EqualFold(a.Email, account.Email) ||
			strings.EqualFold(a.Username, account.Username) {
			return false
		}
	}
	candidate := append(cloneAll(r.users), account.Clone())
	return r.commit(candidate)
}

func (r *JSONFileRepository) Update(ctx context.Context, account models.Account) bool {
	if !valid(account) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.users {
		if a.ID == account.ID {
			candidate := cloneAll(r.users)
			candidate[i] = account.Clone()
			return r.commit(candidate)
		}
	}
	return false
}

func (r *JSONFileRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.users {
		if a.ID == id {
			candidate := cloneAll(r.users)
			candidate[i].PasswordHash = passwordHash
			candidate[i].UpdatedAt = updatedAt
			return r.commit(candidate)
		}
	}
	return false
}

func (r *JSONFileRepository) Delete(ctx context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.users {
		if a.ID == id {
			candidate := append(cloneAll(r.users[:i]), cloneAll(r.users[i+1:])...)
			return r.commit(candidate)
		}
	}
	return false
}

// commit persists the candidate document and only then replaces the
// in-memory copy, so a failed write leaves the prior state untouched.
func (r *JSONFileRepository) commit(candidate []models.Account) bool {
	if !r.save(candidate) {
		return false
	}
	r.users = candidate
	return true
}

func (r *JSONFileRepository) save(users []models.Account) bool {
	data, err := json.Marshal(accountsDocument{Users: users})
	if err != nil {
		r.log.Error(context.Background(), "account storage encode failed", "error", err)
		return false
	}
	if err := filex.WriteFileAtomic(r.path, data); err != nil {
		r.log.Error(context.Background(), "account storage write failed", "path", r.path, "error", err)
		return false
	}
	return true
}

func (r *JSONFileRepository) findLocked(match func(models.Account) bool) *models.Account {
	for _, a := range r.users {
		if match(a) {
			c := a.Clone()
			return &c
		}
	}
	return nil
}

func cloneAll(in []models.Account) []models.Account {
	out := make([]models.Account, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
