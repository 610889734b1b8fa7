package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

func definite(t *testing.T, userID int64, name string, qty int) model.ShoppingListEntry {
	t.Helper()
	e, err := model.NewDefiniteEntry(userID, name, "", "", qty)
	if err != nil {
		t.Fatalf("new definite entry: %v", err)
	}
	return e
}

func suggestion(t *testing.T, userID int64, name, identity string) model.ShoppingListEntry {
	t.Helper()
	s, err := model.NewSuggestion(0.4, 12, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("new suggestion: %v", err)
	}
	e, err := model.NewSuggestedEntry(userID, name, identity, "Dairy", s)
	if err != nil {
		t.Fatalf("new suggested entry: %v", err)
	}
	return e
}

func TestUpsertDefiniteMerges(t *testing.T) {
	db := openTestDB(t)
	ls := NewShoppingListStore(db)
	userID := createTestUser(t, db)
	ctx := context.Background()

	first, err := ls.UpsertDefinite(ctx, definite(t, userID, "Milk", 1))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := ls.UpsertDefinite(ctx, definite(t, userID, "  milk ", 2))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected merge into entry %d, got new entry %d", first.ID, second.ID)
	}
	if second.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", second.Quantity)
	}
	if second.ItemName != "Milk" {
		t.Errorf("item name = %q, want the first spelling %q", second.ItemName, "Milk")
	}

	entries, err := ls.ListUnpurchased(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestUpsertDefiniteConfirmsSuggestion(t *testing.T) {
	db := openTestDB(t)
	ls := NewShoppingListStore(db)
	userID := createTestUser(t, db)
	ctx := context.Background()

	sug, inserted, err := ls.InsertSuggestion(ctx, suggestion(t, userID, "Eggs", "0001"))
	if err != nil {
		t.Fatalf("insert suggestion: %v", err)
	}
	if !inserted || !sug.IsSuggested() {
		t.Fatalf("expected a new suggested entry, got inserted=%v %+v", inserted, sug)
	}

	got, err := ls.UpsertDefinite(ctx, definite(t, userID, "Eggs", 2))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got.ID != sug.ID {
		t.Fatalf("expected merge into suggestion %d, got %d", sug.ID, got.ID)
	}
	if got.IsSuggested() {
		t.Error("expected merged entry to be definite")
	}
	if got.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", got.Quantity)
	}
	if got.ItemIdentity != "0001" {
		t.Errorf("identity = %q, want it kept from the suggestion", got.ItemIdentity)
	}
}

func TestUpsertDefiniteConcurrent(t *testing.T) {
	db := openFileDB(t)
	ls := NewShoppingListStore(db)
	userID := createTestUser(t, db)
	ctx := context.Background()

	const workers = 10
	bread := definite(t, userID, "Bread", 1)
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ls.UpsertDefinite(ctx, bread); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent upsert: %v", err)
	}

	entries, err := ls.ListUnpurchased(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Quantity != workers {
		t.Errorf("quantity = %d, want %d", entries[0].Quantity, workers)
	}
}

func TestInsertSuggestionSkipsExisting(t *testing.T) {
	db := openTestDB(t)
	ls := NewShoppingListStore(db)
	userID := createTestUser(t, db)
	ctx := context.Background()

	manual, err := ls.UpsertDefinite(ctx, definite(t, userID, "Large Eggs", 1))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Same name, different identity.
	got, inserted, err := ls.InsertSuggestion(ctx, suggestion(t, userID, "large eggs", "0001"))
	if err != nil {
		t.Fatalf("insert suggestion: %v", err)
	}
	if inserted {
		t.Fatal("expected no insert when a name match is open")
	}
	if got.ID != manual.ID || got.IsSuggested() || got.Quantity != 1 {
		t.Errorf("existing entry changed: %+v", got)
	}

	// Same identity, different name.
	first, inserted, err := ls.InsertSuggestion(ctx, suggestion(t, userID, "Milk", "0002"))
	if err != nil || !inserted {
		t.Fatalf("insert suggestion: inserted=%v err=%v", inserted, err)
	}
	again, inserted, err := ls.InsertSuggestion(ctx, suggestion(t, userID, "Whole Milk", "0002"))
	if err != nil {
		t.Fatalf("insert suggestion: %v", err)
	}
	if inserted || again.ID != first.ID {
		t.Errorf("expected identity match %d, got inserted=%v id=%d", first.ID, inserted, again.ID)
	}
}

func TestInsertSuggestionRequiresMetadata(t *testing.T) {
	db := openTestDB(t)
	ls := NewShoppingListStore(db)
	userID := createTestUser(t, db)

	if _, _, err := ls.InsertSuggestion(context.Background(), definite(t, userID, "Milk", 1)); err == nil {
		t.Fatal("expected error for entry without prediction metadata")
	}
}

func TestPromote(t *testing.T) {
	db := openTestDB(t)
	ls := NewShoppingListStore(db)
	userID := createTestUser(t, db)
	ctx := context.Background()

	sug, _, err := ls.InsertSuggestion(ctx, suggestion(t, userID, "Eggs", "0001"))
	if err != nil {
		t.Fatalf("insert suggestion: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := ls.Promote(ctx, userID, sug.ID)
		if err != nil {
			t.Fatalf("promote #%d: %v", i+1, err)
		}
		if got == nil || got.IsSuggested() {
			t.Fatalf("promote #%d: expected definite entry, got %+v", i+1, got)
		}
		if got.Quantity != 1 {
			t.Errorf("promote #%d: quantity = %d, want 1", i+1, got.Quantity)
		}
	}

	got, err := ls.Promote(ctx, userID, 9999)
	if err != nil {
		t.Fatalf("promote missing: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown entry")
	}
}

func TestPromoteOtherUser(t *testing.T) {
	db := openTestDB(t)
	ls := NewShoppingListStore(db)
	alice := createTestUser(t, db)
	bob := createTestUser(t, db)
	ctx := context.Background()

	sug, _, err := ls.InsertSuggestion(ctx, suggestion(t, alice, "Eggs", "0001"))
	if err != nil {
		t.Fatalf("insert suggestion: %v", err)
	}

	got, err := ls.Promote(ctx, bob, sug.ID)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if got != nil {
		t.Fatal("expected another user's entry to be invisible")
	}

	still, err := ls.GetByID(ctx, alice, sug.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !still.IsSuggested() {
		t.Error("another user's promote changed the entry")
	}
}

func TestMarkPurchasedStartsFreshCycle(t *testing.T) {
	db := openTestDB(t)
	ls := NewShoppingListStore(db)
	userID := createTestUser(t, db)
	ctx := context.Background()

	milk, err := ls.UpsertDefinite(ctx, definite(t, userID, "Milk", 2))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	bought, err := ls.MarkPurchased(ctx, userID, milk.ID, time.Time{})
	if err != nil {
		t.Fatalf("mark purchased: %v", err)
	}
	if !bought.Purchased || bought.PurchasedAt == nil {
		t.Fatalf("expected purchased entry, got %+v", bought)
	}

	again, err := ls.MarkPurchased(ctx, userID, milk.ID, time.Time{})
	if err != nil {
		t.Fatalf("mark purchased again: %v", err)
	}
	if !again.PurchasedAt.Equal(*bought.PurchasedAt) {
		t.Error("second mark changed purchased_at")
	}

	open, err := ls.ListUnpurchased(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open entries, got %d", len(open))
	}

	next, err := ls.UpsertDefinite(ctx, definite(t, userID, "Milk", 1))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if next.ID == milk.ID || next.Quantity != 1 {
		t.Errorf("expected a fresh entry with quantity 1, got id=%d qty=%d", next.ID, next.Quantity)
	}

	history, err := ls.ListPurchased(ctx, userID, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list purchased: %v", err)
	}
	if len(history) != 1 || history[0].ID != milk.ID {
		t.Errorf("expected purchase history with entry %d, got %+v", milk.ID, history)
	}
}

func TestEntryTimesComeFromCaller(t *testing.T) {
	db := openTestDB(t)
	ls := NewShoppingListStore(db)
	userID := createTestUser(t, db)
	ctx := context.Background()

	added := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	bought := added.Add(48 * time.Hour)

	e := definite(t, userID, "Milk", 1)
	e.CreatedAt = added
	milk, err := ls.UpsertDefinite(ctx, e)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !milk.CreatedAt.Equal(added) {
		t.Errorf("created_at = %v, want %v", milk.CreatedAt, added)
	}

	sug := suggestion(t, userID, "Eggs", "0001")
	sug.CreatedAt = added
	eggs, _, err := ls.InsertSuggestion(ctx, sug)
	if err != nil {
		t.Fatalf("insert suggestion: %v", err)
	}
	if !eggs.CreatedAt.Equal(added) {
		t.Errorf("suggestion created_at = %v, want %v", eggs.CreatedAt, added)
	}

	got, err := ls.MarkPurchased(ctx, userID, milk.ID, bought)
	if err != nil {
		t.Fatalf("mark purchased: %v", err)
	}
	if got.PurchasedAt == nil || !got.PurchasedAt.Equal(bought) {
		t.Errorf("purchased_at = %v, want %v", got.PurchasedAt, bought)
	}

	history, err := ls.ListPurchased(ctx, userID, bought.Add(-time.Hour))
	if err != nil {
		t.Fatalf("list purchased: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 purchase after %v, got %d", bought.Add(-time.Hour), len(history))
	}
	history, err = ls.ListPurchased(ctx, userID, bought.Add(time.Hour))
	if err != nil {
		t.Fatalf("list purchased: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected no purchases after %v, got %d", bought.Add(time.Hour), len(history))
	}
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)
	ls := NewShoppingListStore(db)
	userID := createTestUser(t, db)
	ctx := context.Background()

	e, err := ls.UpsertDefinite(ctx, definite(t, userID, "Milk", 1))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	ok, err := ls.Delete(ctx, userID, e.ID)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	ok, err = ls.Delete(ctx, userID, e.ID)
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if ok {
		t.Error("expected second delete to report nothing removed")
	}
}
