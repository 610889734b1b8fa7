package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/larder/internal/shopping"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		logged  bool
		message string
	}{
		{"not authenticated", shopping.ErrNotAuthenticated, http.StatusUnauthorized, false, "authentication required"},
		{"not found", fmt.Errorf("promote: %w", shopping.ErrNotFound), http.StatusNotFound, false, "not found"},
		{"invalid", fmt.Errorf("%w: name is required", shopping.ErrInvalidInput), http.StatusBadRequest, false, "name is required"},
		{"store", fmt.Errorf("list: %w: %w", shopping.ErrStoreUnavailable, fmt.Errorf("database is locked")), http.StatusServiceUnavailable, true, "storage unavailable"},
		{"cancelled", fmt.Errorf("load scan events: %w", context.Canceled), http.StatusServiceUnavailable, false, "request cancelled"},
		{"deadline", fmt.Errorf("list: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, false, "request cancelled"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, true, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			rec := httptest.NewRecorder()

			writeServiceError(rec, logger, "op", tt.err)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !strings.Contains(body["error"], tt.message) {
				t.Errorf("error = %q, want it to contain %q", body["error"], tt.message)
			}
			if strings.Contains(body["error"], "database is locked") {
				t.Error("store details leaked to the client")
			}
			if got := logs.Len() > 0; got != tt.logged {
				t.Errorf("logged = %v, want %v", got, tt.logged)
			}
		})
	}
}
