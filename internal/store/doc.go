// Package store provides durable, unique-keyed storage for student records.
//
// A Store wraps a Backend and implements every operation as
// read-entire-store, mutate in memory, write-entire-store:
//   - Add: append a new record (ID must be non-empty and unused)
//   - Get: look up one record; absence is a result, not an error
//   - List: all records, returned as a new slice sorted by ID
//   - Update: change only the provided fields of the first match
//   - Delete: remove every record with a matching ID
//   - Upsert: Add when absent, Update otherwise
//
// # Invariants
//
// Identifier uniqueness: no two records share an ID after trimming.
//
// Header stability: the column header is fixed when the backing store is
// created. Opening an existing store with a different header fails with
// ErrHeaderMismatch.
//
// Whole-store consistency: Save replaces the full record set atomically. The
// CSV backend writes a temp file and renames it over the target; the SQLite
// backend replaces all rows inside one transaction.
//
// # Concurrency
//
// A Store serialises its own callers with a mutex. Nothing coordinates
// separate processes sharing one backing file: concurrent writers from
// different processes lose updates (last writer wins).
//
// # Backends
//
//   - csv: delimited text with a header row (the default)
//   - sqlite: embedded SQLite database via mattn/go-sqlite3
//   - memory: process-local, for tests
package store
