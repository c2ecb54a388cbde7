package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/roach88/roster/internal/record"
)

// CSVBackend stores records as delimited text with a header row.
type CSVBackend struct {
	path   string
	cols   record.Columns
	closed atomic.Bool
}

// OpenCSV opens the CSV file at path, creating it (and its parent
// directories) with a header row if it does not exist. An existing file must
// carry exactly the requested header.
func OpenCSV(path string, cols record.Columns) (*CSVBackend, error) {
	if path == "" {
		return nil, &ValidationError{Field: "path", Reason: "store path is required"}
	}
	b := &CSVBackend{path: path, cols: cols}

	header, err := b.readHeader()
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, io.EOF):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, ioErr("open", path, err)
		}
		if err := b.writeAtomic(nil); err != nil {
			return nil, ioErr("open", path, err)
		}
		return b, nil
	case err != nil:
		return nil, ioErr("open", path, err)
	}

	if !cols.Matches(header) {
		return nil, ioErr("open", path, fmt.Errorf("%w: file has %v, want %v", ErrHeaderMismatch, header, cols.Header()))
	}
	return b, nil
}

// Load reads every data row in file order.
func (b *CSVBackend) Load(ctx context.Context) ([]record.Record, error) {
	if err := b.check(ctx); err != nil {
		return nil, ioErr("load", b.path, err)
	}

	f, err := os.Open(b.path)
	if err != nil {
		return nil, ioErr("load", b.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, ioErr("load", b.path, err)
	}

	records := []record.Record{}
	if len(rows) == 0 {
		return records, nil
	}
	if !b.cols.Matches(rows[0]) {
		return nil, ioErr("load", b.path, ErrHeaderMismatch)
	}
	for i, row := range rows[1:] {
		rec, err := record.FromRow(row)
		if err != nil {
			return nil, ioErr("load", b.path, fmt.Errorf("line %d: %w", i+2, err))
		}
		records = append(records, rec)
	}
	return records, nil
}

// Save replaces the file contents with header plus records.
func (b *CSVBackend) Save(ctx context.Context, records []record.Record) error {
	if err := b.check(ctx); err != nil {
		return ioErr("save", b.path, err)
	}
	if err := b.writeAtomic(records); err != nil {
		return ioErr("save", b.path, err)
	}
	return nil
}

// Columns returns the header this backend was opened with.
func (b *CSVBackend) Columns() record.Columns { return b.cols }

// Location returns the file path.
func (b *CSVBackend) Location() string { return b.path }

// Close marks the backend closed. The file is not held open between calls.
func (b *CSVBackend) Close() error {
	b.closed.Store(true)
	return nil
}

func (b *CSVBackend) check(ctx context.Context) error {
	if b.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

func (b *CSVBackend) readHeader() ([]string, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	return r.Read()
}

// writeAtomic writes header and rows to a temp file in the target directory
// and renames it over the target, so readers never see a partial file.
func (b *CSVBackend) writeAtomic(records []record.Record) error {
	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(b.cols.Header()); err != nil {
		return fail(err)
	}
	for _, rec := range records {
		if err := w.Write(rec.Row()); err != nil {
			return fail(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
