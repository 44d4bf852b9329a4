package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB returns a fresh in-memory database with the schema applied.
// It is closed when the test ends.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()
	return openTest(t, ":memory:")
}

// NewTestFileDB is NewTestDB backed by a file in the test's temp dir, for
// tests that need WAL mode or more than one connection.
func NewTestFileDB(t testing.TB) *sql.DB {
	t.Helper()
	return openTest(t, filepath.Join(t.TempDir(), "test.sqlite3"))
}

func openTest(t testing.TB, path string) *sql.DB {
	t.Helper()

	database, err := Open(path)
	if err != nil {
		t.Fatalf("opening test database %s: %v", path, err)
	}
	t.Cleanup(func() { database.Close() })

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("creating test database schema: %v", err)
	}
	return database
}
