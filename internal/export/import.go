package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/roster/internal/form"
	"github.com/roach88/roster/internal/record"
	"github.com/roach88/roster/internal/store"
)

// ErrBadHeader is returned when an import file's header does not match the
// store's columns.
var ErrBadHeader = errors.New("header does not match store columns")

// Row is one data row read from an import file. Line is 1-based and counts
// the header.
type Row struct {
	Line  int
	Input form.Input
}

// RowError records why a row was not imported.
type RowError struct {
	Line int
	ID   string
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d (%s): %s", e.Line, e.ID, form.Message(e.Err))
}

// Report summarises an import.
type Report struct {
	Created  int        `json:"created"`
	Updated  int        `json:"updated"`
	Failures []RowError `json:"-"`
}

// ReadFile reads rows from path in the format implied by its extension.
func ReadFile(path string, cols record.Columns) ([]Row, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, format, cols)
}

// Read decodes rows from r. The first row must be the store header.
func Read(r io.Reader, format Format, cols record.Columns) ([]Row, error) {
	var (
		table [][]string
		err   error
	)
	switch format {
	case FormatXLSX:
		table, err = readXLSX(r)
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		table, err = cr.ReadAll()
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrBadHeader)
	}

	header := make([]string, len(table[0]))
	for i, h := range table[0] {
		header[i] = strings.TrimSpace(h)
	}
	if !cols.Matches(header) {
		return nil, fmt.Errorf("%w: got %v, want %v", ErrBadHeader, header, cols.Header())
	}

	rows := make([]Row, 0, len(table)-1)
	for i, cells := range table[1:] {
		if isBlank(cells) {
			continue
		}
		cells = pad(cells, 4)
		rows = append(rows, Row{
			Line:  i + 2,
			Input: form.Input{ID: cells[0], Name: cells[1], Field1: cells[2], Field2: cells[3]},
		})
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx open: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx: no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("xlsx read %s: %w", sheets[0], err)
	}
	return rows, nil
}

// Import upserts every row through ctrl. Invalid rows are collected in the
// report; an I/O failure stops the import and is returned.
func Import(ctx context.Context, ctrl *form.Controller, rows []Row) (Report, error) {
	var rep Report
	for _, row := range rows {
		in := row.Input
		id := record.NormalizeID(in.ID)
		if strings.TrimSpace(in.Name) == "" {
			rep.Failures = append(rep.Failures, RowError{
				Line: row.Line, ID: id,
				Err: &store.ValidationError{Field: "name", Reason: "cannot be empty"},
			})
			continue
		}

		created, err := ctrl.Upsert(ctx, in.ID, form.Patch{Name: &in.Name, Field1: &in.Field1, Field2: &in.Field2})
		switch form.Classify(err) {
		case form.OutcomeOK:
			if created {
				rep.Created++
			} else {
				rep.Updated++
			}
		case form.OutcomeIO, form.OutcomeError:
			return rep, fmt.Errorf("line %d: %w", row.Line, err)
		default:
			rep.Failures = append(rep.Failures, RowError{Line: row.Line, ID: id, Err: err})
		}
	}
	return rep, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func pad(cells []string, n int) []string {
	for len(cells) < n {
		cells = append(cells, "")
	}
	return cells
}
