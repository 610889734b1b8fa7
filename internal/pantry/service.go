// Package pantry records items scanned in and out of a user's inventory and
// grades what is running low.
package pantry

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/predict"
	"github.com/dukerupert/larder/internal/shopping"
	"github.com/dukerupert/larder/internal/store"
)

type Service struct {
	inventory        *store.InventoryStore
	events           *store.ScanEventStore
	locations        *store.LocationStore
	notifier         shopping.Notifier
	defaultThreshold int
	logger           *slog.Logger
	now              func() time.Time
}

func NewService(inventory *store.InventoryStore, events *store.ScanEventStore, locations *store.LocationStore, notifier shopping.Notifier, defaultThreshold int, logger *slog.Logger) *Service {
	return &Service{
		inventory:        inventory,
		events:           events,
		locations:        locations,
		notifier:         notifier,
		defaultThreshold: defaultThreshold,
		logger:           logger,
		now:              time.Now,
	}
}

// SetClock replaces the wall clock used to timestamp scans.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type ScanInRequest struct {
	Identity          string `json:"identity"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	Location          string `json:"location"`
	Quantity          int    `json:"quantity"`
	Unit              string `json:"unit"`
	LowStockThreshold *int   `json:"low_stock_threshold"`
}

// ScanIn adds a holding and appends its scan_in event atomically.
func (s *Service) ScanIn(ctx context.Context, userID int64, req ScanInRequest) (*model.InventoryItem, error) {
	if userID <= 0 {
		return nil, shopping.ErrNotAuthenticated
	}
	req.Identity = strings.TrimSpace(req.Identity)
	req.Name = strings.TrimSpace(req.Name)
	if req.Identity == "" {
		return nil, invalidf("identity is required")
	}
	if req.Name == "" {
		return nil, invalidf("name is required")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return nil, invalidf("quantity must be positive")
	}

	item := model.InventoryItem{
		UserID:            userID,
		Identity:          req.Identity,
		Name:              req.Name,
		Category:          strings.TrimSpace(req.Category),
		Location:          strings.TrimSpace(req.Location),
		Quantity:          req.Quantity,
		Unit:              strings.TrimSpace(req.Unit),
		LowStockThreshold: s.defaultThreshold,
		ScanInAt:          s.now(),
	}
	if item.Category == "" {
		item.Category = grocery.Categorize(item.Name)
	}
	if item.Unit == "" {
		item.Unit = "count"
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, invalidf("low stock threshold must not be negative")
		}
		item.LowStockThreshold = *req.LowStockThreshold
	}

	got, err := s.inventory.ScanIn(ctx, item)
	if err != nil {
		return nil, storeErr("scan in", err)
	}
	s.logger.Debug("scanned in", "user_id", userID, "identity", got.Identity, "item_id", got.ID)
	return got, nil
}

type ScanOutRequest struct {
	ItemID    int64  `json:"item_id"`
	Identity  string `json:"identity"`
	AddToList bool   `json:"add_to_list"`
}

type ScanOutResult struct {
	Item  *model.InventoryItem     `json:"item"`
	Entry *model.ShoppingListEntry `json:"entry,omitempty"`
}

// ScanOut removes one holding, addressed by id or by identity (oldest first),
// and optionally puts the item back on the shopping list. The removal, its
// event and the list merge commit together or not at all.
func (s *Service) ScanOut(ctx context.Context, userID int64, req ScanOutRequest) (*ScanOutResult, error) {
	if userID <= 0 {
		return nil, shopping.ErrNotAuthenticated
	}

	itemID := req.ItemID
	if itemID == 0 {
		identity := strings.TrimSpace(req.Identity)
		if identity == "" {
			return nil, invalidf("item_id or identity is required")
		}
		item, err := s.inventory.OldestActiveByIdentity(ctx, userID, identity)
		if err != nil {
			return nil, storeErr("find item", err)
		}
		if item == nil {
			return nil, shopping.ErrNotFound
		}
		itemID = item.ID
	}

	item, entry, err := s.inventory.ScanOut(ctx, userID, itemID, s.now(), req.AddToList)
	if err != nil {
		return nil, storeErr("scan out", err)
	}
	if item == nil {
		return nil, shopping.ErrNotFound
	}
	if entry != nil && s.notifier != nil {
		s.notifier.ListChanged(userID, "updated", entry.ID)
	}
	s.logger.Debug("scanned out", "user_id", userID, "identity", item.Identity, "item_id", item.ID, "add_to_list", req.AddToList)
	return &ScanOutResult{Item: item, Entry: entry}, nil
}

type Filter = store.InventoryFilter

func (s *Service) Inventory(ctx context.Context, userID int64, f Filter) ([]model.InventoryItem, error) {
	if userID <= 0 {
		return nil, shopping.ErrNotAuthenticated
	}
	items, err := s.inventory.ListActive(ctx, userID, f)
	if err != nil {
		return nil, storeErr("list inventory", err)
	}
	return items, nil
}

func (s *Service) Categories(ctx context.Context, userID int64) ([]string, error) {
	if userID <= 0 {
		return nil, shopping.ErrNotAuthenticated
	}
	categories, err := s.inventory.Categories(ctx, userID)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return categories, nil
}

type ItemEdit struct {
	Name              string `json:"name"`
	Category          string `json:"category"`
	Location          string `json:"location"`
	Quantity          int    `json:"quantity"`
	Unit              string `json:"unit"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// UpdateItem edits an active holding. Scanned-out items are read-only.
func (s *Service) UpdateItem(ctx context.Context, userID, id int64, edit ItemEdit) (*model.InventoryItem, error) {
	if userID <= 0 {
		return nil, shopping.ErrNotAuthenticated
	}
	edit.Name = strings.TrimSpace(edit.Name)
	if edit.Name == "" {
		return nil, invalidf("name is required")
	}
	if edit.Quantity < 0 || edit.LowStockThreshold < 0 {
		return nil, invalidf("quantity and threshold must not be negative")
	}
	if edit.Unit == "" {
		edit.Unit = "count"
	}

	got, err := s.inventory.Update(ctx, model.InventoryItem{
		ID:                id,
		UserID:            userID,
		Name:              edit.Name,
		Category:          strings.TrimSpace(edit.Category),
		Location:          strings.TrimSpace(edit.Location),
		Quantity:          edit.Quantity,
		Unit:              edit.Unit,
		LowStockThreshold: edit.LowStockThreshold,
	})
	if err != nil {
		return nil, storeErr("update item", err)
	}
	if got == nil {
		return nil, shopping.ErrNotFound
	}
	return got, nil
}

// StockStatus summarizes holdings of one identity.
type StockStatus struct {
	Identity          string           `json:"identity"`
	Name              string           `json:"name"`
	Category          string           `json:"category"`
	Unit              string           `json:"unit"`
	Quantity          int              `json:"quantity"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	ConsumptionRate   *float64         `json:"consumption_rate,omitempty"`
	DaysUntilEmpty    *float64         `json:"days_until_empty,omitempty"`
	Priority          predict.Priority `json:"priority"`
}

// StockStatus grades every identity in stock and returns the ones that need
// attention, most urgent first.
func (s *Service) StockStatus(ctx context.Context, userID int64) ([]StockStatus, error) {
	if userID <= 0 {
		return nil, shopping.ErrNotAuthenticated
	}
	items, err := s.inventory.ListActive(ctx, userID, Filter{})
	if err != nil {
		return nil, storeErr("list inventory", err)
	}
	events, err := s.events.List(ctx, userID, "")
	if err != nil {
		return nil, storeErr("load scan events", err)
	}

	byIdentity := make(map[string]*StockStatus)
	var order []string
	for _, item := range items {
		st, ok := byIdentity[item.Identity]
		if !ok {
			st = &StockStatus{
				Identity:          item.Identity,
				Name:              item.Name,
				Category:          item.Category,
				Unit:              item.Unit,
				LowStockThreshold: item.LowStockThreshold,
			}
			byIdentity[item.Identity] = st
			order = append(order, item.Identity)
		}
		st.Quantity += item.Quantity
	}

	var statuses []StockStatus
	for _, identity := range order {
		st := byIdentity[identity]
		if rate, ok := predict.ConsumptionRate(events, identity); ok {
			days := predict.DaysUntilEmpty(st.Quantity, rate)
			st.ConsumptionRate = &rate
			st.DaysUntilEmpty = &days
		}
		st.Priority = predict.ClassifyStock(st.Quantity, st.LowStockThreshold, st.DaysUntilEmpty)
		if st.Priority == predict.PriorityLow && st.Quantity > st.LowStockThreshold {
			continue
		}
		statuses = append(statuses, *st)
	}

	sort.SliceStable(statuses, func(i, j int) bool {
		a, b := statuses[i], statuses[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return daysOrNever(a.DaysUntilEmpty) < daysOrNever(b.DaysUntilEmpty)
	})
	return statuses, nil
}

func daysOrNever(d *float64) float64 {
	if d == nil {
		return predict.NoRestockDays
	}
	return *d
}

func (s *Service) Locations(ctx context.Context, userID int64) ([]model.Location, error) {
	if userID <= 0 {
		return nil, shopping.ErrNotAuthenticated
	}
	locations, err := s.locations.List(ctx, userID)
	if err != nil {
		return nil, storeErr("list locations", err)
	}
	return locations, nil
}

func (s *Service) AddLocation(ctx context.Context, userID int64, name string) (*model.Location, error) {
	if userID <= 0 {
		return nil, shopping.ErrNotAuthenticated
	}
	if strings.TrimSpace(name) == "" {
		return nil, invalidf("location name is required")
	}
	loc, err := s.locations.Create(ctx, userID, name)
	if err != nil {
		return nil, storeErr("add location", err)
	}
	return loc, nil
}
