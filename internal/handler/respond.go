package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
	"Mansoor88-6/pulse-tracker/internal/auth"

	"go.uber.org/zap"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError renders err as the JSON error body. Storage and internal
// failures are logged and their detail is not sent to the client.
func WriteError(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	kind := apperrors.KindOf(err)
	status := StatusFor(kind)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err))
		message = "internal error"
	} else {
		logger.Debug(msg, zap.Error(err), zap.String("kind", string(kind)))
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Validation("invalid request body: %v", err)
	}
	return nil
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation("invalid %s parameter %q", key, raw)
	}
	return n, nil
}

// queryDate parses YYYY-MM-DD in loc or an RFC 3339 instant. A date-only
// value with endOfDay set points at the start of the following day.
func queryDate(r *http.Request, key string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil, apperrors.Validation("invalid %s parameter %q (want YYYY-MM-DD or RFC 3339)", key, raw)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}
