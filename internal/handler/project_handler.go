package handler

import (
	"net/http"

	"Mansoor88-6/pulse-tracker/internal/models"
	"Mansoor88-6/pulse-tracker/internal/service"

	"go.uber.org/zap"
)

type ProjectHandler struct {
	service *service.ProjectService
	logger  *zap.Logger
}

func NewProjectHandler(service *service.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		logger:  logger,
	}
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProjectRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, h.logger, "Failed to decode request", err)
		return
	}

	project, err := h.service.Create(r.Context(), identity(r).UserID, req)
	if err != nil {
		WriteError(w, h.logger, "Failed to create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.ProjectStatus(r.URL.Query().Get("status"))
	projects, err := h.service.List(r.Context(), identity(r).UserID, status)
	if err != nil {
		WriteError(w, h.logger, "Failed to list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Get(r.Context(), identity(r).UserID, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, "Failed to get project", err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProjectRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, h.logger, "Failed to decode request", err)
		return
	}

	project, err := h.service.Update(r.Context(), identity(r), r.PathValue("id"), req)
	if err != nil {
		WriteError(w, h.logger, "Failed to update project", err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

type statusRequest struct {
	Status models.ProjectStatus `json:"status"`
}

func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, h.logger, "Failed to decode request", err)
		return
	}

	project, err := h.service.UpdateStatus(r.Context(), identity(r).UserID, r.PathValue("id"), req.Status)
	if err != nil {
		WriteError(w, h.logger, "Failed to update project status", err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Archive(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Archive(r.Context(), identity(r).UserID, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, "Failed to archive project", err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Restore(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Restore(r.Context(), identity(r).UserID, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, "Failed to restore project", err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), identity(r).UserID, r.PathValue("id")); err != nil {
		WriteError(w, h.logger, "Failed to delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), identity(r).UserID, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, "Failed to get project stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Recompute rebuilds project totals. ?scope=all widens it to every user.
func (h *ProjectHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	allUsers := r.URL.Query().Get("scope") == "all"
	changed, err := h.service.RecomputeTotals(r.Context(), identity(r), allUsers)
	if err != nil {
		WriteError(w, h.logger, "Failed to recompute project totals", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"changed": changed})
}
