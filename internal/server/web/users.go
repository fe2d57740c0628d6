package web

import (
	"net/http"

	"github.com/modhost/backend/internal/common"
	"github.com/modhost/backend/internal/server/auth"
)

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	account := h.accounts.FindByID(r.Context(), r.PathValue("id"))
	if account == nil || account.Hidden {
		h.writeError(w, http.StatusNotFound, "user not found")
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(*account))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	views := []accountView{}
	for _, account := range h.accounts.FindPage(r.Context(), limit, offset) {
		if account.Hidden {
			continue
		}
		views = append(views, viewOf(account))
	}
	h.writeJSON(w, http.StatusOK, views)
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	caller := h.caller(w, r)
	if caller == nil {
		return
	}

	targetID := r.PathValue("id")
	if caller.ID != targetID && !caller.HasPermission("user.edit") {
		h.writeError(w, http.StatusForbidden, "cannot change another user's password")
		return
	}
	if h.accounts.FindByID(r.Context(), targetID) == nil {
		h.writeError(w, http.StatusNotFound, "user not found")
		return
	}

	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Password) < 8 {
		h.writeError(w, http.StatusBadRequest, "password too short")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "password not updated")
		return
	}
	if !h.accounts.UpdatePasswordHash(r.Context(), targetID, hash, common.NowMillis()) {
		h.writeError(w, http.StatusInternalServerError, "password not updated")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
