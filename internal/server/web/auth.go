package web

import (
	"net/http"
	"strings"

	"github.com/modhost/backend/internal/server/auth"
	"github.com/modhost/backend/internal/server/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expiresAt"`
	Account   accountView `json:"account"`
}

// accountView is the client-facing shape of an account. The password hash
// never leaves the server.
type accountView struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	Username       string   `json:"username"`
	ProfilePicture string   `json:"profilePicture"`
	Hidden         bool     `json:"isHidden"`
	Admin          bool     `json:"isAdmin"`
	Permissions    []string `json:"permissions"`
	Projects       []string `json:"projects"`
	Teams          []string `json:"teams"`
	CreatedAt      int64    `json:"createdAt"`
	UpdatedAt      int64    `json:"updatedAt"`
}

func viewOf(a models.Account) accountView {
	return accountView{
		ID:             a.ID,
		Email:          a.Email,
		Username:       a.Username,
		ProfilePicture: a.ProfilePicture,
		Hidden:         a.Hidden,
		Admin:          a.Admin,
		Permissions:    a.Permissions,
		Projects:       a.Projects,
		Teams:          a.Teams,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	var account *models.Account
	switch {
	case strings.TrimSpace(req.Email) != "":
		account = h.accounts.FindByEmail(r.Context(), req.Email)
	case strings.TrimSpace(req.Username) != "":
		account = h.accounts.FindByUsername(r.Context(), req.Username)
	default:
		h.writeError(w, http.StatusBadRequest, "email or username required")
		return
	}

	// Same response for unknown identity and wrong password.
	if account == nil || !auth.CheckPassword(account.PasswordHash, req.Password) {
		h.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), account.ID, req.Remember)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.writeJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Account:   viewOf(*account),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		h.writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	if !h.sessions.DeleteSession(r.Context(), token) {
		h.writeError(w, http.StatusNotFound, "unknown token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	account := h.caller(w, r)
	if account == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(*account))
}
