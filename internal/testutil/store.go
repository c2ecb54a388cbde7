package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/roster/internal/record"
	"github.com/roach88/roster/internal/store"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewCSVStore opens a store backed by a fresh CSV file in t.TempDir().
// The store is closed when the test ends.
func NewCSVStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stu.csv")
	s, err := store.Open(store.BackendCSV, path, record.DefaultColumns(),
		store.WithLogger(DiscardLogger()),
		store.WithOpIDGenerator(NewSequenceGenerator("op")),
	)
	if err != nil {
		t.Fatalf("open csv store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}
