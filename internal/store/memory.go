package store

import (
	"context"
	"sync"

	"github.com/roach88/roster/internal/record"
)

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	cols    record.Columns
	records []record.Record
	closed  bool

	// FailSave, when set, is returned by Save instead of storing.
	// Lets tests simulate an unwritable store.
	FailSave error
}

// NewMemory returns an empty in-memory backend.
func NewMemory(cols record.Columns) *MemoryBackend {
	return &MemoryBackend{cols: cols, records: []record.Record{}}
}

// Load returns a copy of the stored records.
func (m *MemoryBackend) Load(ctx context.Context) ([]record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return nil, ioErr("load", m.Location(), err)
	}
	return append([]record.Record{}, m.records...), nil
}

// Save replaces the stored records with a copy of records.
func (m *MemoryBackend) Save(ctx context.Context, records []record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return ioErr("save", m.Location(), err)
	}
	if m.FailSave != nil {
		return ioErr("save", m.Location(), m.FailSave)
	}
	m.records = append([]record.Record{}, records...)
	return nil
}

// Columns returns the header the backend was created with.
func (m *MemoryBackend) Columns() record.Columns { return m.cols }

// Location returns ":memory:".
func (m *MemoryBackend) Location() string { return ":memory:" }

// Close marks the backend closed; later calls fail with ErrClosed.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryBackend) check(ctx context.Context) error {
	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}
