// Package shopping keeps a user's shopping list in step with restock
// predictions while preserving everything the user added or confirmed.
package shopping

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/predict"
)

// EventSource reads the scan history of a user in time order.
type EventSource interface {
	List(ctx context.Context, userID int64, identity string) ([]model.ScanEvent, error)
}

// ListStore persists shopping list entries. UpsertDefinite and
// InsertSuggestion must each be atomic.
type ListStore interface {
	UpsertDefinite(ctx context.Context, e model.ShoppingListEntry) (*model.ShoppingListEntry, error)
	InsertSuggestion(ctx context.Context, e model.ShoppingListEntry) (*model.ShoppingListEntry, bool, error)
	Promote(ctx context.Context, userID, id int64) (*model.ShoppingListEntry, error)
	MarkPurchased(ctx context.Context, userID, id int64, at time.Time) (*model.ShoppingListEntry, error)
	Delete(ctx context.Context, userID, id int64) (bool, error)
	ListUnpurchased(ctx context.Context, userID int64) ([]model.ShoppingListEntry, error)
	ListPurchased(ctx context.Context, userID int64, since time.Time) ([]model.ShoppingListEntry, error)
}

// Notifier is told about every committed change to a user's list.
type Notifier interface {
	ListChanged(userID int64, action string, entryID int64)
}

type Service struct {
	events   EventSource
	list     ListStore
	policy   predict.Policy
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	inflight singleflight.Group
}

func NewService(events EventSource, list ListStore, policy predict.Policy, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		events:   events,
		list:     list,
		policy:   policy,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the wall clock used for predictions and ordering.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Policy() predict.Policy {
	return s.policy
}

// Predictions estimates every item the user has enough history for.
func (s *Service) Predictions(ctx context.Context, userID int64) ([]predict.Record, error) {
	if userID <= 0 {
		return nil, ErrNotAuthenticated
	}
	return s.predictions(ctx, userID, s.now())
}

func (s *Service) predictions(ctx context.Context, userID int64, now time.Time) ([]predict.Record, error) {
	events, err := s.events.List(ctx, userID, "")
	if err != nil {
		return nil, storeErr("load scan events", err)
	}
	return s.policy.EstimateAll(events, now), nil
}

// Reconcile adds a suggestion for every item due for restock that has no
// open entry yet, then returns the ordered list. Existing entries are never
// changed, so repeated passes are stable. Concurrent passes for the same user
// share one run. The shared run is detached from any single caller's
// cancellation; each caller stops waiting when its own ctx is done.
func (s *Service) Reconcile(ctx context.Context, userID int64) ([]model.ShoppingListEntry, error) {
	if userID <= 0 {
		return nil, ErrNotAuthenticated
	}
	detached := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(strconv.FormatInt(userID, 10), func() (any, error) {
		return s.reconcile(detached, userID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	shared := res.Val.([]model.ShoppingListEntry)
	entries := make([]model.ShoppingListEntry, len(shared))
	copy(entries, shared)
	return entries, nil
}

func (s *Service) reconcile(ctx context.Context, userID int64) ([]model.ShoppingListEntry, error) {
	now := s.now()
	records, err := s.predictions(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	added := 0
	for _, r := range records {
		if !s.policy.ShouldSuggestRestock(r) {
			continue
		}
		suggestion, err := model.NewSuggestion(r.Confidence, r.AverageIntervalDays, r.LastScanOutAt)
		if err != nil {
			s.logger.Warn("skip prediction", "identity", r.Identity, "error", err)
			continue
		}
		category := r.Category
		if category == "" {
			category = grocery.Categorize(r.ItemName)
		}
		entry, err := model.NewSuggestedEntry(userID, r.ItemName, r.Identity, category, suggestion)
		if err != nil {
			s.logger.Warn("skip prediction", "identity", r.Identity, "error", err)
			continue
		}

		entry.CreatedAt = now
		got, inserted, err := s.list.InsertSuggestion(ctx, entry)
		if err != nil {
			return nil, storeErr("insert suggestion", err)
		}
		if inserted {
			added++
			s.notify(userID, "suggested", got.ID)
		}
	}

	if added > 0 {
		s.logger.Info("reconciled shopping list", "user_id", userID, "predictions", len(records), "suggested", added)
	}
	return s.List(ctx, userID)
}

// AddDefinite merges qty of the named item into the open entry with the same
// name, confirming it, or creates a new definite entry.
func (s *Service) AddDefinite(ctx context.Context, userID int64, name, identity, category string, qty int) (*model.ShoppingListEntry, error) {
	if userID <= 0 {
		return nil, ErrNotAuthenticated
	}
	entry, err := model.NewDefiniteEntry(userID, name, identity, category, qty)
	if err != nil {
		return nil, invalid(err)
	}
	if entry.Category == "" {
		entry.Category = grocery.Categorize(entry.ItemName)
	}
	entry.CreatedAt = s.now()

	got, err := s.list.UpsertDefinite(ctx, entry)
	if err != nil {
		return nil, storeErr("upsert entry", err)
	}
	s.notify(userID, "updated", got.ID)
	return got, nil
}

// Promote turns a suggestion into a definite entry. Promoting a definite
// entry is a no-op.
func (s *Service) Promote(ctx context.Context, userID, entryID int64) (*model.ShoppingListEntry, error) {
	if userID <= 0 {
		return nil, ErrNotAuthenticated
	}
	got, err := s.list.Promote(ctx, userID, entryID)
	if err != nil {
		return nil, storeErr("promote entry", err)
	}
	if got == nil {
		return nil, ErrNotFound
	}
	s.notify(userID, "promoted", got.ID)
	return got, nil
}

// MarkPurchased closes the entry. Purchased entries drop out of the list and
// of matching, so the next cycle of the same item starts a fresh entry.
func (s *Service) MarkPurchased(ctx context.Context, userID, entryID int64) (*model.ShoppingListEntry, error) {
	if userID <= 0 {
		return nil, ErrNotAuthenticated
	}
	got, err := s.list.MarkPurchased(ctx, userID, entryID, s.now())
	if err != nil {
		return nil, storeErr("mark purchased", err)
	}
	if got == nil {
		return nil, ErrNotFound
	}
	s.notify(userID, "purchased", got.ID)
	return got, nil
}

// Remove deletes an open entry, dismissing a suggestion or dropping a
// definite item.
func (s *Service) Remove(ctx context.Context, userID, entryID int64) error {
	if userID <= 0 {
		return ErrNotAuthenticated
	}
	ok, err := s.list.Delete(ctx, userID, entryID)
	if err != nil {
		return storeErr("delete entry", err)
	}
	if !ok {
		return ErrNotFound
	}
	s.notify(userID, "removed", entryID)
	return nil
}

// List returns the open entries in display order.
func (s *Service) List(ctx context.Context, userID int64) ([]model.ShoppingListEntry, error) {
	if userID <= 0 {
		return nil, ErrNotAuthenticated
	}
	entries, err := s.list.ListUnpurchased(ctx, userID)
	if err != nil {
		return nil, storeErr("list entries", err)
	}
	Order(entries, s.now())
	return entries, nil
}

// History returns entries purchased within the last window.
func (s *Service) History(ctx context.Context, userID int64, window time.Duration) ([]model.ShoppingListEntry, error) {
	if userID <= 0 {
		return nil, ErrNotAuthenticated
	}
	entries, err := s.list.ListPurchased(ctx, userID, s.now().Add(-window))
	if err != nil {
		return nil, storeErr("list purchased", err)
	}
	return entries, nil
}

func (s *Service) notify(userID int64, action string, entryID int64) {
	if s.notifier != nil {
		s.notifier.ListChanged(userID, action, entryID)
	}
}

// Order sorts definite entries first in insertion order, then suggestions
// that are due soonest, breaking ties by the shorter purchase interval.
func Order(entries []model.ShoppingListEntry, now time.Time) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsSuggested() != b.IsSuggested() {
			return !a.IsSuggested()
		}
		if a.IsSuggested() {
			da, db := a.Suggestion.DaysUntilRestock(now), b.Suggestion.DaysUntilRestock(now)
			if da != db {
				return da < db
			}
			if a.Suggestion.AverageIntervalDays != b.Suggestion.AverageIntervalDays {
				return a.Suggestion.AverageIntervalDays < b.Suggestion.AverageIntervalDays
			}
		}
		return a.ID < b.ID
	})
}
