package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Record is one student's stored data.
type Record struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Field1 Score  `json:"field1"`
	Field2 Score  `json:"field2"`
}

// Score is an optional numeric field. The zero value is absent.
type Score struct {
	Value float64
	Valid bool
}

// legacyAbsent is what older files hold for a missing score.
const legacyAbsent = "None"

// ErrNotNumeric is returned by ParseScore for non-numeric text.
var ErrNotNumeric = errors.New("not a number")

// Some returns a present score.
func Some(v float64) Score {
	return Score{Value: v, Valid: true}
}

// None returns an absent score.
func None() Score {
	return Score{}
}

// ParseScore converts text to a Score. Empty text is absent.
func ParseScore(s string) (Score, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == legacyAbsent {
		return None(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return None(), fmt.Errorf("%q: %w", s, ErrNotNumeric)
	}
	return Some(v), nil
}

// String returns the persisted form: shortest decimal, or "" when absent.
func (s Score) String() string {
	if !s.Valid {
		return ""
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// MarshalJSON encodes an absent score as null.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON accepts null or a number.
func (s *Score) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = None()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Some(v)
	return nil
}

// NormalizeID trims surrounding whitespace and applies NFC normalisation so
// that visually identical IDs compare equal.
func NormalizeID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}

// Normalize returns r with its ID normalised and its name trimmed.
func (r Record) Normalize() Record {
	r.ID = NormalizeID(r.ID)
	r.Name = strings.TrimSpace(r.Name)
	return r
}

// Row encodes r as a persisted row in column order.
func (r Record) Row() []string {
	return []string{r.ID, r.Name, r.Field1.String(), r.Field2.String()}
}

// FromRow decodes a persisted row. The row must have exactly four values.
func FromRow(row []string) (Record, error) {
	if len(row) != 4 {
		return Record{}, fmt.Errorf("row has %d values, want 4", len(row))
	}
	f1, err := ParseScore(row[2])
	if err != nil {
		return Record{}, fmt.Errorf("field1: %w", err)
	}
	f2, err := ParseScore(row[3])
	if err != nil {
		return Record{}, fmt.Errorf("field2: %w", err)
	}
	return Record{ID: row[0], Name: row[1], Field1: f1, Field2: f2}, nil
}
