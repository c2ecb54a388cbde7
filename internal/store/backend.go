package store

import (
	"context"
	"fmt"

	"github.com/roach88/roster/internal/record"
)

// Backend kinds accepted by OpenBackend.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Backends lists the accepted backend kinds.
var Backends = []string{BackendCSV, BackendSQLite, BackendMemory}

// Backend persists the complete record set. Load returns records in stored
// order; Save replaces everything at once or not at all.
type Backend interface {
	Load(ctx context.Context) ([]record.Record, error)
	Save(ctx context.Context, records []record.Record) error
	Columns() record.Columns
	Location() string
	Close() error
}

// OpenBackend opens (creating if needed) a backend of the given kind.
func OpenBackend(kind, path string, cols record.Columns) (Backend, error) {
	if err := cols.Validate(); err != nil {
		return nil, &ValidationError{Field: "columns", Reason: err.Error()}
	}
	switch kind {
	case BackendCSV, "":
		return OpenCSV(path, cols)
	case BackendSQLite:
		return OpenSQLite(path, cols)
	case BackendMemory:
		return NewMemory(cols), nil
	default:
		return nil, fmt.Errorf("unknown backend %q: must be one of %v", kind, Backends)
	}
}
