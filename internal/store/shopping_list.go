package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

type ShoppingListStore struct {
	db *sql.DB
}

func NewShoppingListStore(db *sql.DB) *ShoppingListStore {
	return &ShoppingListStore{db: db}
}

func scanEntry(scanner rowScanner) (*model.ShoppingListEntry, error) {
	var e model.ShoppingListEntry
	var suggested, purchased int
	var confidence, interval sql.NullFloat64
	var lastOut, purchasedAt sql.NullTime

	err := scanner.Scan(
		&e.ID, &e.UserID, &e.ItemName, &e.ItemIdentity, &e.Category, &e.Quantity,
		&suggested, &confidence, &interval, &lastOut, &purchased, &purchasedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if suggested != 0 {
		e.Suggestion = &model.Suggestion{
			Confidence:          confidence.Float64,
			AverageIntervalDays: interval.Float64,
			LastScanOutAt:       lastOut.Time,
		}
	}
	e.Purchased = purchased != 0
	if purchasedAt.Valid {
		e.PurchasedAt = &purchasedAt.Time
	}
	return &e, nil
}

const entryCols = `id, user_id, item_name, item_identity, category, quantity, is_suggested, prediction_confidence, average_interval_days, last_scan_out_at, purchased, purchased_at, created_at`

func getEntry(ctx context.Context, q querier, userID, id int64) (*model.ShoppingListEntry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryCols+` FROM shopping_list_entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping list entry: %w", err)
	}
	return e, nil
}

func (s *ShoppingListStore) GetByID(ctx context.Context, userID, id int64) (*model.ShoppingListEntry, error) {
	return getEntry(ctx, s.db, userID, id)
}

// stamp returns t in UTC, or the current time when the caller left it zero.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// upsertDefinite adds e to the open entry with the same name, or inserts it.
// The merge always confirms the entry and drops prediction metadata. It is a
// single statement so concurrent callers cannot fork duplicate rows.
func upsertDefinite(ctx context.Context, q querier, e model.ShoppingListEntry) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO shopping_list_entries (user_id, item_name, name_key, item_identity, category, quantity, is_suggested, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT (user_id, name_key) WHERE purchased = 0 DO UPDATE SET
		     quantity = quantity + excluded.quantity,
		     is_suggested = 0,
		     prediction_confidence = NULL,
		     average_interval_days = NULL,
		     last_scan_out_at = NULL,
		     item_identity = CASE WHEN item_identity = '' THEN excluded.item_identity ELSE item_identity END,
		     category = CASE WHEN category = '' THEN excluded.category ELSE category END
		 RETURNING id`,
		e.UserID, e.ItemName, model.NameKey(e.ItemName), e.ItemIdentity, e.Category, e.Quantity, stamp(e.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert shopping list entry: %w", err)
	}
	return id, nil
}

// UpsertDefinite merges a definite entry into the user's open list.
func (s *ShoppingListStore) UpsertDefinite(ctx context.Context, e model.ShoppingListEntry) (*model.ShoppingListEntry, error) {
	id, err := upsertDefinite(ctx, s.db, e)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, e.UserID, id)
}

// InsertSuggestion adds a suggested entry unless an open entry already
// matches its identity or name. The bool reports whether a row was inserted;
// otherwise the matching entry is returned untouched.
func (s *ShoppingListStore) InsertSuggestion(ctx context.Context, e model.ShoppingListEntry) (*model.ShoppingListEntry, bool, error) {
	if e.Suggestion == nil {
		return nil, false, fmt.Errorf("insert suggestion: %w: missing prediction metadata", model.ErrInvalidEntry)
	}
	key := model.NameKey(e.ItemName)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := findOpenMatch(ctx, tx, e.UserID, e.ItemIdentity, key)
	if err != nil {
		return nil, false, err
	}
	if existing != 0 {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit: %w", err)
		}
		got, err := s.GetByID(ctx, e.UserID, existing)
		return got, false, err
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO shopping_list_entries
		     (user_id, item_name, name_key, item_identity, category, quantity, is_suggested,
		      prediction_confidence, average_interval_days, last_scan_out_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
		 ON CONFLICT (user_id, name_key) WHERE purchased = 0 DO NOTHING
		 RETURNING id`,
		e.UserID, e.ItemName, key, e.ItemIdentity, e.Category, e.Quantity,
		e.Suggestion.Confidence, e.Suggestion.AverageIntervalDays, e.Suggestion.LastScanOutAt.UTC(), stamp(e.CreatedAt),
	).Scan(&id)
	inserted := true
	if err == sql.ErrNoRows {
		// Lost a race with another writer for the same name.
		inserted = false
		id, err = findOpenMatch(ctx, tx, e.UserID, "", key)
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert suggestion: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit: %w", err)
	}

	got, err := s.GetByID(ctx, e.UserID, id)
	return got, inserted, err
}

func findOpenMatch(ctx context.Context, q querier, userID int64, identity, nameKey string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM shopping_list_entries
		 WHERE user_id = ? AND purchased = 0 AND ((? <> '' AND item_identity = ?) OR name_key = ?)
		 ORDER BY id ASC LIMIT 1`,
		userID, identity, identity, nameKey,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find open entry: %w", err)
	}
	return id, nil
}

// Promote confirms an open entry. Returns nil when no open entry has that id.
func (s *ShoppingListStore) Promote(ctx context.Context, userID, id int64) (*model.ShoppingListEntry, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE shopping_list_entries
		 SET is_suggested = 0, prediction_confidence = NULL, average_interval_days = NULL, last_scan_out_at = NULL
		 WHERE id = ? AND user_id = ? AND purchased = 0`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("promote entry: %w", err)
	}
	e, err := s.GetByID(ctx, userID, id)
	if err != nil || e == nil || e.Purchased {
		return nil, err
	}
	return e, nil
}

// MarkPurchased closes an entry at the given time. Marking an already
// purchased entry returns it unchanged.
func (s *ShoppingListStore) MarkPurchased(ctx context.Context, userID, id int64, at time.Time) (*model.ShoppingListEntry, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE shopping_list_entries SET purchased = 1, purchased_at = ? WHERE id = ? AND user_id = ? AND purchased = 0`,
		stamp(at), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark purchased: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

// Delete removes an open entry and reports whether one was removed.
func (s *ShoppingListStore) Delete(ctx context.Context, userID, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM shopping_list_entries WHERE id = ? AND user_id = ? AND purchased = 0`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *ShoppingListStore) ListUnpurchased(ctx context.Context, userID int64) ([]model.ShoppingListEntry, error) {
	return s.list(ctx,
		`SELECT `+entryCols+` FROM shopping_list_entries WHERE user_id = ? AND purchased = 0 ORDER BY id ASC`,
		userID,
	)
}

// ListPurchased returns entries purchased at or after since, newest first.
func (s *ShoppingListStore) ListPurchased(ctx context.Context, userID int64, since time.Time) ([]model.ShoppingListEntry, error) {
	return s.list(ctx,
		`SELECT `+entryCols+` FROM shopping_list_entries
		 WHERE user_id = ? AND purchased = 1 AND purchased_at >= ?
		 ORDER BY purchased_at DESC, id DESC`,
		userID, since.UTC(),
	)
}

func (s *ShoppingListStore) list(ctx context.Context, query string, args ...any) ([]model.ShoppingListEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shopping list: %w", err)
	}
	defer rows.Close()

	var entries []model.ShoppingListEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
