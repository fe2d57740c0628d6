package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/auth"
	"github.com/modhost/backend/internal/server/models"
	"github.com/modhost/backend/internal/server/repositories/accounts"
	"github.com/modhost/backend/internal/server/repositories/sessions"
	"github.com/modhost/backend/internal/server/repositories/teams"
	"github.com/modhost/backend/internal/server/services"

	projectrepo "github.com/modhost/backend/internal/server/repositories/projects"
)

type fixture struct {
	handler  http.Handler
	accounts accounts.Repository
	projects projectrepo.Repository
	teams    teams.Repository
	sessions *services.SessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ar := accounts.NewMemoryRepository()
	pr := projectrepo.NewMemoryRepository()
	tr := teams.NewMemoryRepository()
	sr := sessions.NewMemoryRepository()

	sessionSvc := services.NewSessionService(sr, 4*time.Hour, 30*24*time.Hour, log)
	integritySvc := services.NewIntegrityService(ar, tr, log)

	h := NewHandler(log, ar, pr, tr, sessionSvc, integritySvc)
	return &fixture{
		handler:  h.Routes(),
		accounts: ar,
		projects: pr,
		teams:    tr,
		sessions: sessionSvc,
	}
}

// seedAccount stores an account with the given plaintext password and
// returns a valid bearer token for it.
func (f *fixture) seedAccount(t *testing.T, id string, admin bool) string {
	t.Helper()
	hash, err := auth.HashPassword("password-" + id)
	require.NoError(t, err)
	require.True(t, f.accounts.Create(context.Background(), models.Account{
		ID: id, Email: id + "@example.com", Username: "user-" + id,
		PasswordHash: hash, Admin: admin,
		Permissions: []string{}, Projects: []string{}, Teams: []string{},
	}))
	session, err := f.sessions.CreateSession(context.Background(), id, false)
	require.NoError(t, err)
	return session.Token
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "a1", false)

	rec := f.do("POST", "/auth/login", "", map[string]any{
		"email": "a1@example.com", "password": "password-a1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token   string `json:"token"`
		Account struct {
			ID string `json:"id"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "a1", resp.Account.ID)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	// Wrong password and unknown identity are indistinguishable.
	rec = f.do("POST", "/auth/login", "", map[string]any{
		"email": "a1@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do("POST", "/auth/login", "", map[string]any{
		"email": "nobody@example.com", "password": "password-a1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Username login works too.
	rec = f.do("POST", "/auth/login", "", map[string]any{
		"username": "user-a1", "password": "password-a1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMeAndLogout(t *testing.T) {
	f := newFixture(t)
	token := f.seedAccount(t, "a1", false)

	rec := f.do("GET", "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"a1"`)

	assert.Equal(t, http.StatusUnauthorized, f.do("GET", "/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do("GET", "/auth/me", "bogus", nil).Code)

	assert.Equal(t, http.StatusNoContent, f.do("POST", "/auth/logout", token, nil).Code)
	// The token is dead after logout.
	assert.Equal(t, http.StatusUnauthorized, f.do("GET", "/auth/me", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do("POST", "/auth/logout", token, nil).Code)
}

func TestProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.seedAccount(t, "a1", false)
	other := f.seedAccount(t, "a2", false)

	rec := f.do("POST", "/projects", owner, map[string]any{
		"slug": "alpha-mod", "title": "Alpha",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Creation appended the slug to the owner's project list.
	assert.Equal(t, []string{"alpha-mod"}, f.accounts.FindByID(ctx, "a1").Projects)

	// Duplicate slug conflicts; anonymous create is rejected.
	assert.Equal(t, http.StatusConflict, f.do("POST", "/projects", owner, map[string]any{"slug": "alpha-mod"}).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do("POST", "/projects", "", map[string]any{"slug": "x"}).Code)

	rec = f.do("GET", "/projects/alpha-mod", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Alpha"`)

	// Only the owner may patch.
	assert.Equal(t, http.StatusForbidden, f.do("PATCH", "/projects/alpha-mod", other, map[string]any{"title": "Stolen"}).Code)
	rec = f.do("PATCH", "/projects/alpha-mod", owner, map[string]any{"title": "Alpha II", "ownerId": "a2"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := f.projects.FindBySlug(ctx, "alpha-mod")
	assert.Equal(t, "Alpha II", got.Title)
	assert.Equal(t, "a1", got.OwnerID, "ownership is immutable through patch")

	// Delete strips the reference from the owner account.
	assert.Equal(t, http.StatusForbidden, f.do("DELETE", "/projects/alpha-mod", other, nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/projects/alpha-mod", owner, nil).Code)
	assert.Nil(t, f.projects.FindBySlug(ctx, "alpha-mod"))
	assert.Equal(t, []string{}, f.accounts.FindByID(ctx, "a1").Projects)
	assert.Equal(t, http.StatusNotFound, f.do("DELETE", "/projects/alpha-mod", owner, nil).Code)
}

func TestAdminMayEditForeignProject(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAccount(t, "a1", false)
	admin := f.seedAccount(t, "root", true)

	require.Equal(t, http.StatusCreated, f.do("POST", "/projects", owner, map[string]any{"slug": "alpha-mod"}).Code)
	assert.Equal(t, http.StatusOK, f.do("PATCH", "/projects/alpha-mod", admin, map[string]any{"title": "Moderated"}).Code)
	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/projects/alpha-mod", admin, nil).Code)
}

func TestUsersEndpointHidesHiddenAccounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedAccount(t, "a1", false)

	ghost := models.Account{
		ID: "ghost", Email: "ghost@example.com", Username: "ghost",
		Hidden:      true,
		Permissions: []string{}, Projects: []string{}, Teams: []string{},
	}
	require.True(t, f.accounts.Create(ctx, ghost))

	assert.Equal(t, http.StatusNotFound, f.do("GET", "/users/ghost", "", nil).Code)

	rec := f.do("GET", "/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"a1"`)
	assert.NotContains(t, rec.Body.String(), "ghost")
	assert.NotContains(t, rec.Body.String(), "passwordHash")
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	token := f.seedAccount(t, "a1", false)
	other := f.seedAccount(t, "a2", false)

	assert.Equal(t, http.StatusForbidden,
		f.do("POST", "/users/a1/password", other, map[string]any{"password": "irrelevant1"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		f.do("POST", "/users/a1/password", token, map[string]any{"password": "short"}).Code)

	require.Equal(t, http.StatusNoContent,
		f.do("POST", "/users/a1/password", token, map[string]any{"password": "a new password"}).Code)
	updated := f.accounts.FindByID(ctx, "a1")
	assert.True(t, auth.CheckPassword(updated.PasswordHash, "a new password"))
	assert.False(t, auth.CheckPassword(updated.PasswordHash, "password-a1"))
}

func TestTeamLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.seedAccount(t, "a1", false)

	rec := f.do("POST", "/teams", owner, map[string]any{"name": "Builders"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "a1", created.OwnerID)

	// Creation appended the id to the owner's team list.
	assert.Equal(t, []string{created.ID}, f.accounts.FindByID(ctx, "a1").Teams)

	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/teams", owner, map[string]any{"name": " "}).Code)

	rec = f.do("PATCH", "/teams/"+created.ID, owner, map[string]any{"name": "Planners"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Planners", f.teams.FindByID(ctx, created.ID).Name)

	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/teams/"+created.ID, owner, nil).Code)
	assert.Nil(t, f.teams.FindByID(ctx, created.ID))
	assert.Equal(t, []string{}, f.accounts.FindByID(ctx, "a1").Teams)
}
