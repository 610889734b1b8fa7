package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/dukerupert/larder/internal/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// openFileDB opens a file-backed database so several connections can race.
func openFileDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "larder.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var userSeq int

func createTestUser(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	userSeq++
	u, err := NewUserStore(db).Create(context.Background(), fmt.Sprintf("user%d@example.com", userSeq), "Test", "password123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}
