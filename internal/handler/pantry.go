package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/pantry"
)

type PantryHandler struct {
	pantry *pantry.Service
	logger *slog.Logger
}

func NewPantryHandler(svc *pantry.Service, logger *slog.Logger) *PantryHandler {
	return &PantryHandler{pantry: svc, logger: logger}
}

func (h *PantryHandler) ScanIn(w http.ResponseWriter, r *http.Request) {
	var req pantry.ScanInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item, err := h.pantry.ScanIn(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, h.logger, "scan in", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *PantryHandler) ScanOut(w http.ResponseWriter, r *http.Request) {
	var req pantry.ScanOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := h.pantry.ScanOut(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, h.logger, "scan out", err)
		return
	}

	resp := scanOutResponse{Item: res.Item}
	if res.Entry != nil {
		e := toEntryResponse(*res.Entry)
		resp.Entry = &e
	}
	writeJSON(w, http.StatusOK, resp)
}

type scanOutResponse struct {
	Item  *model.InventoryItem `json:"item"`
	Entry *entryResponse       `json:"entry,omitempty"`
}

func (h *PantryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := pantry.Filter{
		Search:   strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
	}

	items, err := h.pantry.Inventory(r.Context(), auth.UserID(r.Context()), filter)
	if err != nil {
		writeServiceError(w, h.logger, "list inventory", err)
		return
	}
	if items == nil {
		items = []model.InventoryItem{}
	}

	categories, err := h.pantry.Categories(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "list categories", err)
		return
	}
	if categories == nil {
		categories = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"categories": categories,
	})
}

func (h *PantryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	var edit pantry.ItemEdit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item, err := h.pantry.UpdateItem(r.Context(), auth.UserID(r.Context()), id, edit)
	if err != nil {
		writeServiceError(w, h.logger, "update item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *PantryHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.pantry.StockStatus(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "stock status", err)
		return
	}
	if statuses == nil {
		statuses = []pantry.StockStatus{}
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (h *PantryHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.pantry.Locations(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "list locations", err)
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	writeJSON(w, http.StatusOK, locations)
}

func (h *PantryHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	loc, err := h.pantry.AddLocation(r.Context(), auth.UserID(r.Context()), req.Name)
	if err != nil {
		writeServiceError(w, h.logger, "add location", err)
		return
	}
	writeJSON(w, http.StatusCreated, loc)
}
