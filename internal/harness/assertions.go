package harness

import (
	"fmt"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s failed: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against the final record set and
// returns one message per failure.
func EvaluateAssertions(final []map[string]string, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(final, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(final []map[string]string, a Assertion) error {
	switch a.Type {
	case AssertRecordCount:
		if len(final) != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d records", a.Count), Actual: fmt.Sprintf("%d", len(final))}
		}
	case AssertRecordEquals:
		rec := findRecord(final, a.ID)
		if rec == nil {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("record %q", a.ID), Actual: "no such record"}
		}
		if diff := subsetDiff(rec, a.Expect); diff != "" {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("record %q to match", a.ID), Actual: diff}
		}
	case AssertRecordAbsent:
		if findRecord(final, a.ID) != nil {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("no record %q", a.ID), Actual: "record present"}
		}
	case AssertListOrder:
		ids := make([]string, 0, len(final))
		for _, rec := range final {
			ids = append(ids, rec["id"])
		}
		if !equalStrings(ids, a.IDs) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%v", a.IDs), Actual: fmt.Sprintf("%v", ids)}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func findRecord(final []map[string]string, id string) map[string]string {
	for _, rec := range final {
		if rec["id"] == id {
			return rec
		}
	}
	return nil
}

// subsetDiff reports the keys of want whose values differ in got, or "" when
// got contains want.
func subsetDiff(got, want map[string]string) string {
	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var diffs []string
	for _, k := range keys {
		g, ok := got[k]
		switch {
		case !ok:
			diffs = append(diffs, fmt.Sprintf("%s missing", k))
		case g != want[k]:
			diffs = append(diffs, fmt.Sprintf("%s=%q, want %q", k, g, want[k]))
		}
	}
	return strings.Join(diffs, "; ")
}
