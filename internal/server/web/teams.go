package web

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/modhost/backend/internal/common"
	"github.com/modhost/backend/internal/server/models"
)

func (h *Handler) getTeam(w http.ResponseWriter, r *http.Request) {
	team := h.teams.FindByID(r.Context(), r.PathValue("id"))
	if team == nil {
		h.writeError(w, http.StatusNotFound, "team not found")
		return
	}
	h.writeJSON(w, http.StatusOK, team)
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	h.writeJSON(w, http.StatusOK, h.teams.FindPage(r.Context(), limit, offset))
}

func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request) {
	account := h.caller(w, r)
	if account == nil {
		return
	}

	var team models.Team
	if !h.decode(w, r, &team) {
		return
	}
	if strings.TrimSpace(team.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "name required")
		return
	}

	now := common.NowMillis()
	team.ID = uuid.NewString()
	team.OwnerID = account.ID
	team.CreatedAt = now
	team.UpdatedAt = now
	team = team.Clone()

	if !h.teams.Create(r.Context(), team) {
		h.writeError(w, http.StatusInternalServerError, "team not created")
		return
	}
	h.integrity.AddTeamToOwner(r.Context(), account.ID, team.ID)

	h.writeJSON(w, http.StatusCreated, team)
}

func (h *Handler) updateTeam(w http.ResponseWriter, r *http.Request) {
	account := h.caller(w, r)
	if account == nil {
		return
	}

	existing := h.teams.FindByID(r.Context(), r.PathValue("id"))
	if existing == nil {
		h.writeError(w, http.StatusNotFound, "team not found")
		return
	}
	if existing.OwnerID != account.ID && !account.HasPermission("team.edit") {
		h.writeError(w, http.StatusForbidden, "not the team owner")
		return
	}

	updated := *existing
	if !h.decode(w, r, &updated) {
		return
	}
	updated.ID = existing.ID
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = common.NowMillis()
	updated = updated.Clone()

	if !h.teams.Update(r.Context(), updated) {
		h.writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteTeam(w http.ResponseWriter, r *http.Request) {
	account := h.caller(w, r)
	if account == nil {
		return
	}

	existing := h.teams.FindByID(r.Context(), r.PathValue("id"))
	if existing == nil {
		h.writeError(w, http.StatusNotFound, "team not found")
		return
	}
	if existing.OwnerID != account.ID && !account.HasPermission("team.delete") {
		h.writeError(w, http.StatusForbidden, "not the team owner")
		return
	}

	if !h.teams.Delete(r.Context(), existing.ID) {
		h.writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	h.integrity.RemoveTeamReferences(r.Context(), existing.ID)

	w.WriteHeader(http.StatusNoContent)
}
