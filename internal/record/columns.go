package record

import (
	"fmt"
	"strings"
)

// Default score column names.
const (
	DefaultField1 = "math"
	DefaultField2 = "english"
)

// Columns names the persisted header. ID and name are fixed; the two score
// columns are chosen when a store is created.
type Columns struct {
	Field1 string
	Field2 string
}

// DefaultColumns returns the header used when none is configured.
func DefaultColumns() Columns {
	return Columns{Field1: DefaultField1, Field2: DefaultField2}
}

// NewColumns builds Columns from the two score column names.
func NewColumns(names []string) (Columns, error) {
	if len(names) != 2 {
		return Columns{}, fmt.Errorf("need exactly 2 score columns, got %d", len(names))
	}
	c := Columns{Field1: strings.TrimSpace(names[0]), Field2: strings.TrimSpace(names[1])}
	if err := c.Validate(); err != nil {
		return Columns{}, err
	}
	return c, nil
}

// Validate checks that the header is usable.
func (c Columns) Validate() error {
	if c.Field1 == "" || c.Field2 == "" {
		return fmt.Errorf("score column names must be non-empty")
	}
	h := c.Header()
	seen := make(map[string]bool, len(h))
	for _, name := range h {
		if seen[name] {
			return fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
	}
	return nil
}

// Header returns the full header row.
func (c Columns) Header() []string {
	return []string{"id", "name", c.Field1, c.Field2}
}

// Matches reports whether header equals c's header exactly.
func (c Columns) Matches(header []string) bool {
	want := c.Header()
	if len(header) != len(want) {
		return false
	}
	for i := range want {
		if header[i] != want[i] {
			return false
		}
	}
	return true
}

// String returns the header joined with commas.
func (c Columns) String() string {
	return strings.Join(c.Header(), ",")
}
