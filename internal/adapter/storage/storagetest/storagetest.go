// Package storagetest opens throwaway sqlite databases for tests.
package storagetest

import (
	"context"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	"path/filepath"
	"strings"
	"testing"
)

// Open creates a migrated database in a temporary directory.
// The test is skipped when the sqlite driver was built without cgo.
func Open(t *testing.T) *storage.DB {
	t.Helper()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "test.db")

	db, err := storage.Open(ctx, storage.SQLite, dsn)
	if err != nil {
		if strings.Contains(err.Error(), "requires cgo") {
			t.Skipf("skip DB tests: %v", err)
		}
		t.Fatalf("can't establish db connection: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	return db
}
