package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

// ScanEventStore is the append-only scan history.
type ScanEventStore struct {
	db *sql.DB
}

func NewScanEventStore(db *sql.DB) *ScanEventStore {
	return &ScanEventStore{db: db}
}

func scanEvent(scanner rowScanner) (*model.ScanEvent, error) {
	var e model.ScanEvent
	var action string
	err := scanner.Scan(
		&e.ID, &e.UserID, &e.ItemIdentity, &e.ItemName, &e.Category,
		&e.Location, &action, &e.Quantity, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Action = model.ScanAction(action)
	return &e, nil
}

const scanEventCols = `id, user_id, item_identity, item_name, category, location, action, quantity, created_at`

func appendEvent(ctx context.Context, q querier, e model.ScanEvent) (int64, error) {
	if !e.Action.Valid() {
		return 0, fmt.Errorf("append event: invalid action %q", e.Action)
	}
	if e.Quantity <= 0 {
		return 0, fmt.Errorf("append event: quantity must be positive")
	}
	if strings.TrimSpace(e.ItemIdentity) == "" {
		return 0, fmt.Errorf("append event: item identity is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO scan_events (user_id, item_identity, item_name, category, location, action, quantity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.ItemIdentity, e.ItemName, e.Category, e.Location, string(e.Action), e.Quantity, e.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert scan event: %w", err)
	}
	return result.LastInsertId()
}

func (s *ScanEventStore) Append(ctx context.Context, e model.ScanEvent) (*model.ScanEvent, error) {
	id, err := appendEvent(ctx, s.db, e)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+scanEventCols+` FROM scan_events WHERE id = ?`, id)
	got, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("get scan event: %w", err)
	}
	return got, nil
}

// List returns the user's events in time order. An empty identity returns
// events for every item.
func (s *ScanEventStore) List(ctx context.Context, userID int64, identity string) ([]model.ScanEvent, error) {
	query := `SELECT ` + scanEventCols + ` FROM scan_events WHERE user_id = ?`
	args := []any{userID}
	if identity != "" {
		query += ` AND item_identity = ?`
		args = append(args, identity)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scan events: %w", err)
	}
	defer rows.Close()

	var events []model.ScanEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
