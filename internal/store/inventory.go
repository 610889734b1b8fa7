package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

type InventoryStore struct {
	db *sql.DB
}

func NewInventoryStore(db *sql.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

type InventoryFilter struct {
	Search   string
	Category string
}

func scanInventoryItem(scanner rowScanner) (*model.InventoryItem, error) {
	var item model.InventoryItem
	var scanOutAt sql.NullTime

	err := scanner.Scan(
		&item.ID, &item.UserID, &item.Identity, &item.Name, &item.Category, &item.Location,
		&item.Quantity, &item.Unit, &item.LowStockThreshold, &item.ScanInAt, &scanOutAt,
	)
	if err != nil {
		return nil, err
	}
	if scanOutAt.Valid {
		item.ScanOutAt = &scanOutAt.Time
	}
	return &item, nil
}

const inventoryCols = `id, user_id, identity, name, category, location, quantity, unit, low_stock_threshold, scan_in_at, scan_out_at`

func getInventoryItem(ctx context.Context, q querier, userID, id int64) (*model.InventoryItem, error) {
	row := q.QueryRowContext(ctx, `SELECT `+inventoryCols+` FROM inventory_items WHERE id = ? AND user_id = ?`, id, userID)
	item, err := scanInventoryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return item, nil
}

func (s *InventoryStore) GetByID(ctx context.Context, userID, id int64) (*model.InventoryItem, error) {
	return getInventoryItem(ctx, s.db, userID, id)
}

// OldestActiveByIdentity returns the earliest scanned-in active row for the
// identity, or nil when none is in stock.
func (s *InventoryStore) OldestActiveByIdentity(ctx context.Context, userID int64, identity string) (*model.InventoryItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+inventoryCols+` FROM inventory_items
		 WHERE user_id = ? AND identity = ? AND scan_out_at IS NULL
		 ORDER BY scan_in_at ASC, id ASC LIMIT 1`,
		userID, identity,
	)
	item, err := scanInventoryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory item by identity: %w", err)
	}
	return item, nil
}

// ScanIn records a new holding and its scan_in event in one transaction.
func (s *InventoryStore) ScanIn(ctx context.Context, item model.InventoryItem) (*model.InventoryItem, error) {
	if item.Quantity <= 0 {
		return nil, fmt.Errorf("scan in: quantity must be positive")
	}
	if item.ScanInAt.IsZero() {
		item.ScanInAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_items (user_id, identity, name, category, location, quantity, unit, low_stock_threshold, scan_in_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.UserID, item.Identity, item.Name, item.Category, item.Location,
		item.Quantity, item.Unit, item.LowStockThreshold, item.ScanInAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert inventory item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	_, err = appendEvent(ctx, tx, model.ScanEvent{
		UserID:       item.UserID,
		ItemIdentity: item.Identity,
		ItemName:     item.Name,
		Category:     item.Category,
		Location:     item.Location,
		Action:       model.ScanIn,
		Quantity:     item.Quantity,
		CreatedAt:    item.ScanInAt,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit scan in: %w", err)
	}
	return s.GetByID(ctx, item.UserID, id)
}

// ScanOut soft-removes an active item, records its scan_out event and, when
// addToList is set, merges one unit into the shopping list. All three writes
// commit together. Returns nil when no active item has that id.
func (s *InventoryStore) ScanOut(ctx context.Context, userID, id int64, at time.Time, addToList bool) (*model.InventoryItem, *model.ShoppingListEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getInventoryItem(ctx, tx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if item == nil || !item.Active() {
		return nil, nil, nil
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE inventory_items SET scan_out_at = ? WHERE id = ? AND user_id = ? AND scan_out_at IS NULL`,
		at.UTC(), id, userID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update inventory item: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil, nil
	}

	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	_, err = appendEvent(ctx, tx, model.ScanEvent{
		UserID:       userID,
		ItemIdentity: item.Identity,
		ItemName:     item.Name,
		Category:     item.Category,
		Location:     item.Location,
		Action:       model.ScanOut,
		Quantity:     quantity,
		CreatedAt:    at,
	})
	if err != nil {
		return nil, nil, err
	}

	var entry *model.ShoppingListEntry
	if addToList {
		e, err := model.NewDefiniteEntry(userID, item.Name, item.Identity, item.Category, 1)
		if err != nil {
			return nil, nil, err
		}
		e.CreatedAt = at
		entryID, err := upsertDefinite(ctx, tx, e)
		if err != nil {
			return nil, nil, err
		}
		if entry, err = getEntry(ctx, tx, userID, entryID); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit scan out: %w", err)
	}

	item, err = s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	return item, entry, nil
}

func (s *InventoryStore) ListActive(ctx context.Context, userID int64, f InventoryFilter) ([]model.InventoryItem, error) {
	query := `SELECT ` + inventoryCols + ` FROM inventory_items WHERE user_id = ? AND scan_out_at IS NULL`
	args := []any{userID}
	if search := strings.TrimSpace(f.Search); search != "" {
		query += ` AND (LOWER(name) LIKE ? OR identity LIKE ?)`
		like := "%" + strings.ToLower(search) + "%"
		args = append(args, like, "%"+search+"%")
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY scan_in_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Update edits an active item. Returns nil when no active item has that id.
func (s *InventoryStore) Update(ctx context.Context, item model.InventoryItem) (*model.InventoryItem, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE inventory_items
		 SET name = ?, category = ?, location = ?, quantity = ?, unit = ?, low_stock_threshold = ?
		 WHERE id = ? AND user_id = ? AND scan_out_at IS NULL`,
		item.Name, item.Category, item.Location, item.Quantity, item.Unit, item.LowStockThreshold,
		item.ID, item.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update inventory item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, item.UserID, item.ID)
}

func (s *InventoryStore) Categories(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM inventory_items
		 WHERE user_id = ? AND scan_out_at IS NULL AND category <> ''
		 ORDER BY category ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
