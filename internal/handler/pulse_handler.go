package handler

import (
	"net/http"
	"time"

	"Mansoor88-6/pulse-tracker/internal/models"
	"Mansoor88-6/pulse-tracker/internal/service"

	"go.uber.org/zap"
)

type PulseHandler struct {
	service *service.PulseService
	loc     *time.Location
	logger  *zap.Logger
}

func NewPulseHandler(service *service.PulseService, loc *time.Location, logger *zap.Logger) *PulseHandler {
	return &PulseHandler{
		service: service,
		loc:     loc,
		logger:  logger,
	}
}

func (h *PulseHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartPulseRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, h.logger, "Failed to decode request", err)
		return
	}

	pulse, err := h.service.Start(r.Context(), identity(r).UserID, req)
	if err != nil {
		WriteError(w, h.logger, "Failed to start pulse", err)
		return
	}
	writeJSON(w, http.StatusCreated, pulse)
}

// Current returns the caller's running or paused pulse; the body is null
// when there is none.
func (h *PulseHandler) Current(w http.ResponseWriter, r *http.Request) {
	pulse, err := h.service.GetActive(r.Context(), identity(r).UserID)
	if err != nil {
		WriteError(w, h.logger, "Failed to get current pulse", err)
		return
	}
	writeJSON(w, http.StatusOK, pulse)
}

func (h *PulseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.PulseFilter{
		ProjectID: q.Get("project_id"),
		Status:    models.PulseStatus(q.Get("status")),
	}

	var err error
	if filter.StartDate, err = queryDate(r, "start_date", h.loc, false); err != nil {
		WriteError(w, h.logger, "Invalid query", err)
		return
	}
	if filter.EndDate, err = queryDate(r, "end_date", h.loc, true); err != nil {
		WriteError(w, h.logger, "Invalid query", err)
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		WriteError(w, h.logger, "Invalid query", err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, h.logger, "Invalid query", err)
		return
	}

	result, err := h.service.List(r.Context(), identity(r).UserID, filter, page, limit)
	if err != nil {
		WriteError(w, h.logger, "Failed to list pulses", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PulseHandler) Get(w http.ResponseWriter, r *http.Request) {
	pulse, err := h.service.Get(r.Context(), identity(r).UserID, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, "Failed to get pulse", err)
		return
	}
	writeJSON(w, http.StatusOK, pulse)
}

func (h *PulseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePulseRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, h.logger, "Failed to decode request", err)
		return
	}

	pulse, err := h.service.Update(r.Context(), identity(r).UserID, r.PathValue("id"), req)
	if err != nil {
		WriteError(w, h.logger, "Failed to update pulse", err)
		return
	}
	writeJSON(w, http.StatusOK, pulse)
}

func (h *PulseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), identity(r).UserID, r.PathValue("id")); err != nil {
		WriteError(w, h.logger, "Failed to delete pulse", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PulseHandler) Pause(w http.ResponseWriter, r *http.Request) {
	pulse, err := h.service.Pause(r.Context(), identity(r).UserID, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, "Failed to pause pulse", err)
		return
	}
	writeJSON(w, http.StatusOK, pulse)
}

func (h *PulseHandler) Resume(w http.ResponseWriter, r *http.Request) {
	pulse, err := h.service.Resume(r.Context(), identity(r).UserID, r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, "Failed to resume pulse", err)
		return
	}
	writeJSON(w, http.StatusOK, pulse)
}

func (h *PulseHandler) Stop(w http.ResponseWriter, r *http.Request) {
	var req models.StopPulseRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, h.logger, "Failed to decode request", err)
		return
	}

	pulse, err := h.service.Stop(r.Context(), identity(r).UserID, r.PathValue("id"), req)
	if err != nil {
		WriteError(w, h.logger, "Failed to stop pulse", err)
		return
	}
	writeJSON(w, http.StatusOK, pulse)
}

func (h *PulseHandler) AddBreak(w http.ResponseWriter, r *http.Request) {
	var req models.AddBreakRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, h.logger, "Failed to decode request", err)
		return
	}

	pulse, err := h.service.AddBreak(r.Context(), identity(r).UserID, r.PathValue("id"), req)
	if err != nil {
		WriteError(w, h.logger, "Failed to add break", err)
		return
	}
	writeJSON(w, http.StatusOK, pulse)
}
