package handler

import (
	"net/http"
	"strconv"

	"Mansoor88-6/pulse-tracker/internal/analytics"
	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/timeutil"

	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	service *analytics.Service
	logger  *zap.Logger
}

func NewAnalyticsHandler(service *analytics.Service, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger,
	}
}

// Summary serves GET /analytics?period=&start_date=&end_date=&project_id=&compare=.
// Date-only bounds are inclusive calendar days in the analytics timezone.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	period, err := timeutil.ParsePeriod(q.Get("period"))
	if err != nil {
		WriteError(w, h.logger, "Invalid query", err)
		return
	}
	query := analytics.Query{Period: period, ProjectID: q.Get("project_id")}

	loc := h.service.Location()
	if query.Start, err = queryDate(r, "start_date", loc, false); err != nil {
		WriteError(w, h.logger, "Invalid query", err)
		return
	}
	if query.End, err = queryDate(r, "end_date", loc, true); err != nil {
		WriteError(w, h.logger, "Invalid query", err)
		return
	}
	if raw := q.Get("compare"); raw != "" {
		if query.Compare, err = strconv.ParseBool(raw); err != nil {
			WriteError(w, h.logger, "Invalid query", apperrors.Validation("invalid compare parameter %q", raw))
			return
		}
	}

	summary, err := h.service.Summarize(r.Context(), identity(r).UserID, query)
	if err != nil {
		WriteError(w, h.logger, "Failed to summarise analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
