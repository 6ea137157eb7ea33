package db

import (
	"context"
	"path/filepath"
	"testing"
)

// NewTestDB creates a fresh migrated SQLite database in a temporary directory.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite3")
	db, err := Open(context.Background(), SQLite, path)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
