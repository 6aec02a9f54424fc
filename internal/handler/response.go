package handler

// Response helpers shared by every handler. One JSON shape for errors:
//
//	{"error": "conflict", "message": "URL already exists."}
//
// and one place where domain error categories become HTTP status codes, so
// the service layer never has to know about HTTP.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/bookmarks/internal/apperror"
)

// ErrorResponse is the standard error body for all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable category (e.g. "not_found")
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers, then status, then body — once the body starts, headers are fixed.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone already; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error onto a status code and the standard body.
//
// errors.Is walks the wrapped chain, so a service error like
// fmt.Errorf("creating bookmark: %w", apperror.Conflict(...)) still maps to
// 409. Anything that isn't an AppError is an unexpected failure and becomes
// a generic 500 — raw error text never reaches the client, it may contain
// SQL or file paths.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrCapacity):
			// The short-code keyspace is (near) full. Not the caller's
			// fault and not permanent — 503 signals "try again later".
			status = http.StatusServiceUnavailable
			errorType = "capacity_exhausted"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Something went wrong. We are working on it.",
	})
}
