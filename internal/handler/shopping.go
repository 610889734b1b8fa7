package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/predict"
	"github.com/dukerupert/larder/internal/shopping"
)

const defaultHistoryDays = 30

type ShoppingHandler struct {
	shopping *shopping.Service
	logger   *slog.Logger
}

func NewShoppingHandler(svc *shopping.Service, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{shopping: svc, logger: logger}
}

// entryResponse flattens the suggestion flag for clients that do not want to
// inspect the nested payload.
type entryResponse struct {
	model.ShoppingListEntry
	IsSuggested bool `json:"is_suggested"`
}

func toEntryResponse(e model.ShoppingListEntry) entryResponse {
	return entryResponse{ShoppingListEntry: e, IsSuggested: e.IsSuggested()}
}

func toEntryResponses(entries []model.ShoppingListEntry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

type addEntryRequest struct {
	Name     string `json:"name"`
	Identity string `json:"identity"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

// List reconciles predictions into the list before returning it.
func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.shopping.Reconcile(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

func (h *ShoppingHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	entry, err := h.shopping.AddDefinite(r.Context(), auth.UserID(r.Context()), req.Name, req.Identity, req.Category, req.Quantity)
	if err != nil {
		writeServiceError(w, h.logger, "add entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(*entry))
}

func (h *ShoppingHandler) Promote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	entry, err := h.shopping.Promote(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, "promote entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(*entry))
}

func (h *ShoppingHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	entry, err := h.shopping.MarkPurchased(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, "mark purchased", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(*entry))
}

func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.shopping.Remove(r.Context(), auth.UserID(r.Context()), id); err != nil {
		writeServiceError(w, h.logger, "remove entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History returns purchases from the last ?days= days (default 30).
func (h *ShoppingHandler) History(w http.ResponseWriter, r *http.Request) {
	days := defaultHistoryDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeErr(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	entries, err := h.shopping.History(r.Context(), auth.UserID(r.Context()), time.Duration(days)*24*time.Hour)
	if err != nil {
		writeServiceError(w, h.logger, "purchase history", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponses(entries))
}

type predictionResponse struct {
	predict.Record
	DaysUntilRestock float64 `json:"days_until_restock"`
	SuggestRestock   bool    `json:"suggest_restock"`
}

func (h *ShoppingHandler) Predictions(w http.ResponseWriter, r *http.Request) {
	records, err := h.shopping.Predictions(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "predictions", err)
		return
	}

	policy := h.shopping.Policy()
	out := make([]predictionResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, predictionResponse{
			Record:           rec,
			DaysUntilRestock: predict.DaysUntilRestock(rec),
			SuggestRestock:   policy.ShouldSuggestRestock(rec),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
