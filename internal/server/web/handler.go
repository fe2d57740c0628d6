// Package web exposes the HTTP surface: authentication, project, user, and
// team endpoints. Handlers stay thin: they translate requests into
// repository and service calls and the boolean/absent results back into
// status codes.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/modhost/backend/internal/logging"
	"github.com/modhost/backend/internal/server/models"
	"github.com/modhost/backend/internal/server/repositories/accounts"
	"github.com/modhost/backend/internal/server/repositories/projects"
	"github.com/modhost/backend/internal/server/repositories/teams"
	"github.com/modhost/backend/internal/server/services"
)

const defaultPageSize = 50

// Handler bundles the HTTP endpoints with their collaborators.
type Handler struct {
	log       logging.Logger
	accounts  accounts.Repository
	projects  projects.Repository
	teams     teams.Repository
	sessions  *services.SessionService
	integrity *services.IntegrityService
}

// NewHandler wires the endpoints to their repositories and services.
func NewHandler(
	log logging.Logger,
	accounts accounts.Repository,
	projects projects.Repository,
	teams teams.Repository,
	sessions *services.SessionService,
	integrity *services.IntegrityService,
) *Handler {
	return &Handler{
		log:       log,
		accounts:  accounts,
		projects:  projects,
		teams:     teams,
		sessions:  sessions,
		integrity: integrity,
	}
}

// Routes returns the route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/logout", h.logout)
	mux.HandleFunc("GET /auth/me", h.me)

	mux.HandleFunc("GET /projects", h.listProjects)
	mux.HandleFunc("POST /projects", h.createProject)
	mux.HandleFunc("GET /projects/{slug}", h.getProject)
	mux.HandleFunc("PATCH /projects/{slug}", h.updateProject)
	mux.HandleFunc("DELETE /projects/{slug}", h.deleteProject)

	mux.HandleFunc("GET /users", h.listUsers)
	mux.HandleFunc("GET /users/{id}", h.getUser)
	mux.HandleFunc("POST /users/{id}/password", h.changePassword)

	mux.HandleFunc("GET /teams", h.listTeams)
	mux.HandleFunc("POST /teams", h.createTeam)
	mux.HandleFunc("GET /teams/{id}", h.getTeam)
	mux.HandleFunc("PATCH /teams/{id}", h.updateTeam)
	mux.HandleFunc("DELETE /teams/{id}", h.deleteTeam)

	return mux
}

// bearerToken extracts the credential from the Authorization header or the
// x-api-key fallback.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("x-api-key"))
}

// caller resolves the request's token to an account. A nil result means the
// response has already been written.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) *models.Account {
	token := bearerToken(r)
	if token == "" {
		h.writeError(w, http.StatusUnauthorized, "missing token")
		return nil
	}
	accountID, err := h.sessions.FindAccountID(r.Context(), token)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "invalid token")
		return nil
	}
	account := h.accounts.FindByID(r.Context(), accountID)
	if account == nil {
		h.writeError(w, http.StatusUnauthorized, "unknown account")
		return nil
	}
	return account
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error(context.Background(), "response encode failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// pagination reads limit/offset query parameters with defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			offset = n
		}
	}
	return limit, offset
}
