package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/larder/internal/model"
)

type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

const locationCols = `id, user_id, name, created_at`

func (s *LocationStore) List(ctx context.Context, userID int64) ([]model.Location, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+locationCols+` FROM locations WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// Create adds a location; adding an existing name returns the stored row.
func (s *LocationStore) Create(ctx context.Context, userID int64, name string) (*model.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("create location: name is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO locations (user_id, name) VALUES (?, ?) ON CONFLICT (user_id, name) DO NOTHING`,
		userID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert location: %w", err)
	}

	var l model.Location
	err = s.db.QueryRowContext(ctx,
		`SELECT `+locationCols+` FROM locations WHERE user_id = ? AND name = ?`, userID, name,
	).Scan(&l.ID, &l.UserID, &l.Name, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &l, nil
}
