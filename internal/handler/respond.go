package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/larder/internal/shopping"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// writeServiceError maps service sentinels onto status codes. Store failures
// are logged and hidden behind a generic message. Caller cancellation is not
// a failure and is only logged at debug level.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, shopping.ErrNotAuthenticated):
		writeErr(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, shopping.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not found")
	case errors.Is(err, shopping.ErrInvalidInput):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Debug(op, "error", err)
		writeErr(w, http.StatusServiceUnavailable, "request cancelled")
	case errors.Is(err, shopping.ErrStoreUnavailable):
		logger.Error(op, "error", err)
		writeErr(w, http.StatusServiceUnavailable, "storage unavailable, try again")
	default:
		logger.Error(op, "error", err)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}
