// Package export writes the roster to spreadsheet files and reads rows back
// for import.
//
// Two formats are supported, chosen by file extension:
//   - .xlsx: one "Students" sheet, header row then one row per record
//   - .csv: the same layout as the CSV backend
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/roster/internal/record"
)

// Format is a spreadsheet file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// SheetName is the worksheet written to .xlsx files.
const SheetName = "Students"

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported file type %q: use .xlsx or .csv", filepath.Ext(path))
	}
}

// WriteFile writes records to path in the format implied by its extension.
// The file is written beside path and renamed into place, so a failed export
// leaves any previous file untouched.
func WriteFile(path string, cols record.Columns, records []record.Record) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if err := Write(tmp, format, cols, records); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(fmt.Errorf("chmod %s: %w", tmpName, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Write encodes records to w.
func Write(w io.Writer, format Format, cols record.Columns, records []record.Record) error {
	switch format {
	case FormatXLSX:
		return writeXLSX(w, cols, records)
	case FormatCSV:
		return writeCSV(w, cols, records)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func writeXLSX(w io.Writer, cols record.Columns, records []record.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("xlsx: %w", err)
	}

	header := cols.Header()
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	for i, rec := range records {
		row := i + 2
		values := []any{rec.ID, rec.Name, scoreCell(rec.Field1), scoreCell(rec.Field2)}
		for col, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("xlsx: %w", err)
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("xlsx row %d: %w", row, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func scoreCell(s record.Score) any {
	if !s.Valid {
		return nil
	}
	return s.Value
}

func writeCSV(w io.Writer, cols record.Columns, records []record.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols.Header()); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec.Row()); err != nil {
			return fmt.Errorf("csv row %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
