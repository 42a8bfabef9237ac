// Package testutil provides shared test helpers for setting up data
// directories and audit databases.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/mindadmin/internal/audit"
	"github.com/starford/mindadmin/internal/storage"
	"github.com/starford/mindadmin/internal/store"
)

// TestStore creates a temporary data directory with a Store over it.
func TestStore(t *testing.T) (string, *store.Store) {
	t.Helper()
	dataDir := t.TempDir()
	files, err := storage.NewFS(dataDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return dataDir, store.New(files, slog.Default())
}

// TestAudit creates a temporary SQLite audit log that is automatically cleaned up.
func TestAudit(t *testing.T) *audit.Log {
	t.Helper()
	dbFile, err := os.CreateTemp("", "mindadmin-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	log, err := audit.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}
