package router

import (
	"net/http"
	"strings"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/auth"
	"Mansoor88-6/pulse-tracker/internal/handler"

	"go.uber.org/zap"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type Handlers struct {
	Pulses    *handler.PulseHandler
	Projects  *handler.ProjectHandler
	Analytics *handler.AnalyticsHandler
}

func New(h Handlers, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	api := http.NewServeMux()

	// Pulse endpoints
	api.HandleFunc("POST /api/v1/pulses/start", h.Pulses.Start)
	api.HandleFunc("GET /api/v1/pulses/current", h.Pulses.Current)
	api.HandleFunc("GET /api/v1/pulses", h.Pulses.List)
	api.HandleFunc("GET /api/v1/pulses/{id}", h.Pulses.Get)
	api.HandleFunc("PATCH /api/v1/pulses/{id}", h.Pulses.Update)
	api.HandleFunc("DELETE /api/v1/pulses/{id}", h.Pulses.Delete)
	api.HandleFunc("POST /api/v1/pulses/{id}/pause", h.Pulses.Pause)
	api.HandleFunc("POST /api/v1/pulses/{id}/resume", h.Pulses.Resume)
	api.HandleFunc("POST /api/v1/pulses/{id}/stop", h.Pulses.Stop)
	api.HandleFunc("POST /api/v1/pulses/{id}/breaks", h.Pulses.AddBreak)

	// Analytics endpoints
	api.HandleFunc("GET /api/v1/analytics", h.Analytics.Summary)

	// Project endpoints
	api.HandleFunc("POST /api/v1/projects", h.Projects.Create)
	api.HandleFunc("GET /api/v1/projects", h.Projects.List)
	api.HandleFunc("GET /api/v1/projects/{id}", h.Projects.Get)
	api.HandleFunc("PUT /api/v1/projects/{id}", h.Projects.Update)
	api.HandleFunc("DELETE /api/v1/projects/{id}", h.Projects.Delete)
	api.HandleFunc("PATCH /api/v1/projects/{id}/status", h.Projects.UpdateStatus)
	api.HandleFunc("PATCH /api/v1/projects/{id}/archive", h.Projects.Archive)
	api.HandleFunc("PATCH /api/v1/projects/{id}/restore", h.Projects.Restore)
	api.HandleFunc("GET /api/v1/projects/{id}/stats", h.Projects.Stats)

	// Admin endpoints
	api.HandleFunc("POST /api/v1/admin/projects/recompute", h.Projects.Recompute)

	mux.Handle("/api/v1/", withIdentity(api, logger))

	return withLogging(mux, logger)
}

// withIdentity trusts the identity headers set by the upstream auth layer.
func withIdentity(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			handler.WriteError(w, logger, "Missing identity", apperrors.Forbidden("missing %s header", HeaderUserID))
			return
		}
		role, err := auth.ParseRole(r.Header.Get(HeaderUserRole))
		if err != nil {
			handler.WriteError(w, logger, "Invalid role", err)
			return
		}

		ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware
func withLogging(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(started)),
		)
	})
}
