package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/roach88/roster/internal/record"
)

// recordView renders one record with the store's column names.
type recordView struct {
	cols record.Columns
	rec  record.Record
}

func (v recordView) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":          v.rec.ID,
		"name":        v.rec.Name,
		v.cols.Field1: v.rec.Field1,
		v.cols.Field2: v.rec.Field2,
	})
}

func (v recordView) String() string {
	return recordTable{cols: v.cols, records: []record.Record{v.rec}}.String()
}

// recordTable renders records as an aligned table in text mode and as a JSON
// array otherwise.
type recordTable struct {
	cols    record.Columns
	records []record.Record
}

func (t recordTable) MarshalJSON() ([]byte, error) {
	views := make([]recordView, len(t.records))
	for i, rec := range t.records {
		views[i] = recordView{cols: t.cols, rec: rec}
	}
	return json.Marshal(views)
}

func (t recordTable) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.cols.Header(), "\t"))
	for _, rec := range t.records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.ID, rec.Name, scoreText(rec.Field1), scoreText(rec.Field2))
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func scoreText(s record.Score) string {
	if !s.Valid {
		return "-"
	}
	return s.String()
}

// message is a plain confirmation; in JSON mode it is {"message": ...}
// plus any extra fields.
type message struct {
	Text   string
	Fields map[string]any
}

func (m message) MarshalJSON() ([]byte, error) {
	out := map[string]any{"message": m.Text}
	for k, v := range m.Fields {
		out[k] = v
	}
	return json.Marshal(out)
}

func (m message) String() string { return m.Text }
