package web

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/modhost/backend/internal/common"
	"github.com/modhost/backend/internal/server/models"
)

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	project := h.projects.FindBySlug(r.Context(), r.PathValue("slug"))
	if project == nil {
		h.writeError(w, http.StatusNotFound, "project not found")
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	h.writeJSON(w, http.StatusOK, h.projects.FindPage(r.Context(), limit, offset))
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	account := h.caller(w, r)
	if account == nil {
		return
	}

	var project models.Project
	if !h.decode(w, r, &project) {
		return
	}
	if strings.TrimSpace(project.Slug) == "" {
		h.writeError(w, http.StatusBadRequest, "slug required")
		return
	}

	now := common.NowMillis()
	project.ID = uuid.NewString()
	project.OwnerID = account.ID
	project.CreatedAt = now
	project.UpdatedAt = now
	project = project.Clone() // normalizes nil lists

	if !h.projects.Create(r.Context(), project) {
		h.writeError(w, http.StatusConflict, "slug already taken")
		return
	}
	h.integrity.AddProjectToOwner(r.Context(), account.ID, project.Slug)

	h.writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	account := h.caller(w, r)
	if account == nil {
		return
	}

	existing := h.projects.FindBySlug(r.Context(), r.PathValue("slug"))
	if existing == nil {
		h.writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if existing.OwnerID != account.ID && !account.HasPermission("project.edit") {
		h.writeError(w, http.StatusForbidden, "not the project owner")
		return
	}

	updated := *existing
	if !h.decode(w, r, &updated) {
		return
	}
	// Identity and ownership are immutable through this endpoint.
	updated.Slug = existing.Slug
	updated.ID = existing.ID
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = common.NowMillis()
	updated = updated.Clone()

	if !h.projects.Update(r.Context(), updated) {
		h.writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	account := h.caller(w, r)
	if account == nil {
		return
	}

	existing := h.projects.FindBySlug(r.Context(), r.PathValue("slug"))
	if existing == nil {
		h.writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if existing.OwnerID != account.ID && !account.HasPermission("project.delete") {
		h.writeError(w, http.StatusForbidden, "not the project owner")
		return
	}

	if !h.projects.Delete(r.Context(), existing.Slug) {
		h.writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	h.integrity.RemoveProjectReferences(r.Context(), existing.Slug, existing.ID)

	w.WriteHeader(http.StatusNoContent)
}
