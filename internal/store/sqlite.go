package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/roster/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (records + store_meta)
const currentSchemaVersion = 1

// metaColumnsKey is the store_meta row holding the header fixed at creation.
const metaColumnsKey = "columns"

// SQLiteBackend stores records in an embedded SQLite database.
type SQLiteBackend struct {
	db   *sql.DB
	path string
	cols record.Columns
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically, then pins (or
// checks) the column header.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string, cols record.Columns) (*SQLiteBackend, error) {
	if path == "" {
		return nil, &ValidationError{Field: "path", Reason: "store path is required"}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, ioErr("open", path, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, ioErr("open", path, fmt.Errorf("failed to open database: %w", err))
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, ioErr("open", path, fmt.Errorf("failed to connect to database: %w", err))
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, ioErr("open", path, fmt.Errorf("failed to apply pragmas: %w", err))
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, ioErr("open", path, fmt.Errorf("failed to apply schema: %w", err))
	}

	if err := pinColumns(db, cols); err != nil {
		db.Close()
		return nil, ioErr("open", path, err)
	}

	return &SQLiteBackend{db: db, path: path, cols: cols}, nil
}

// Load returns all records in insertion order.
func (b *SQLiteBackend) Load(ctx context.Context) ([]record.Record, error) {
	if b.db == nil {
		return nil, ioErr("load", b.path, ErrClosed)
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT id, name, field1, field2
		FROM records
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, ioErr("load", b.path, fmt.Errorf("query records: %w", err))
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		var (
			rec    record.Record
			f1, f2 sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &f1, &f2); err != nil {
			return nil, ioErr("load", b.path, fmt.Errorf("scan record: %w", err))
		}
		rec.Field1 = fromNull(f1)
		rec.Field2 = fromNull(f2)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr("load", b.path, fmt.Errorf("iterate records: %w", err))
	}

	return records, nil
}

// Save replaces the whole record set inside one transaction.
func (b *SQLiteBackend) Save(ctx context.Context, records []record.Record) error {
	if b.db == nil {
		return ioErr("save", b.path, ErrClosed)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return ioErr("save", b.path, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return ioErr("save", b.path, fmt.Errorf("clear records: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (position, id, name, field1, field2)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return ioErr("save", b.path, fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, i, rec.ID, rec.Name, toNull(rec.Field1), toNull(rec.Field2)); err != nil {
			return ioErr("save", b.path, fmt.Errorf("insert %q: %w", rec.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return ioErr("save", b.path, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Columns returns the header pinned in the database.
func (b *SQLiteBackend) Columns() record.Columns { return b.cols }

// Location returns the database path.
func (b *SQLiteBackend) Location() string { return b.path }

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Load/Save.
func (b *SQLiteBackend) DB() *sql.DB {
	return b.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations stamps user_version on new databases and refuses databases
// written by a newer schema. Future schema changes add a step here keyed on
// the stored version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if version == currentSchemaVersion {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// pinColumns records the header on first open and verifies it afterwards.
func pinColumns(db *sql.DB, cols record.Columns) error {
	var stored string
	err := db.QueryRow(`SELECT value FROM store_meta WHERE key = ?`, metaColumnsKey).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.Exec(`INSERT INTO store_meta (key, value) VALUES (?, ?)`, metaColumnsKey, cols.String()); err != nil {
			return fmt.Errorf("store header: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read header: %w", err)
	}

	if stored != cols.String() {
		return fmt.Errorf("%w: database has %q, want %q", ErrHeaderMismatch, stored, cols.String())
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (b *SQLiteBackend) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := b.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

func toNull(s record.Score) sql.NullFloat64 {
	return sql.NullFloat64{Float64: s.Value, Valid: s.Valid}
}

func fromNull(n sql.NullFloat64) record.Score {
	if !n.Valid {
		return record.None()
	}
	return record.Some(n.Float64)
}
