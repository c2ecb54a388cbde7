package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/roster/internal/form"
	"github.com/roach88/roster/internal/record"
	"github.com/roach88/roster/internal/store"
	"github.com/roach88/roster/internal/testutil"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step    int               `json:"step"`
	Op      string            `json:"op"`
	ID      string            `json:"id,omitempty"`
	OpID    string            `json:"op_id"`
	Outcome string            `json:"outcome"`
	Message string            `json:"message,omitempty"`
	Record  map[string]string `json:"record,omitempty"`
	IDs     []string          `json:"ids,omitempty"`
	Created *bool             `json:"created,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	Errors []string `json:"errors,omitempty"`

	// Final is the record set after the last step, sorted by ID.
	Final []map[string]string `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  []map[string]string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Harness executes scenario steps against one store.
type Harness struct {
	ctrl   *form.Controller
	cols   record.Columns
	opIDs  *testutil.SequenceGenerator
	logger *slog.Logger
}

// Run executes a scenario in a fresh in-memory store and returns the result.
// A non-nil error means the scenario could not be run at all (bad columns,
// a failing setup step); expectation failures are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	cols := record.DefaultColumns()
	if len(scenario.Columns) > 0 {
		c, err := record.NewColumns(scenario.Columns)
		if err != nil {
			return nil, fmt.Errorf("invalid columns: %w", err)
		}
		cols = c
	}

	logger := testutil.DiscardLogger()
	st := store.New(store.NewMemory(cols), store.WithLogger(logger))
	defer st.Close()

	h := &Harness{
		ctrl:   form.NewController(st),
		cols:   cols,
		opIDs:  testutil.NewSequenceGenerator("op"),
		logger: logger,
	}

	ctx := context.Background()
	for i, step := range scenario.Setup {
		ev := h.execute(ctx, i, step)
		if ev.Outcome != string(form.OutcomeOK) {
			return nil, fmt.Errorf("setup step %d (%s %q): %s: %s", i, step.Op, step.Args.ID, ev.Outcome, ev.Message)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev := h.execute(ctx, i, step)
		result.Trace = append(result.Trace, ev)
		if step.Expect != nil {
			for _, msg := range checkExpect(ev, step.Expect) {
				result.AddError(fmt.Sprintf("step %d (%s): %s", i, step.Op, msg))
			}
		}
		h.logger.Info("step completed", "step", i, "op", step.Op, "op_id", ev.OpID, "outcome", ev.Outcome)
	}

	records, err := h.ctrl.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list final state: %w", err)
	}
	for _, rec := range records {
		result.Final = append(result.Final, recordMap(cols, rec))
	}

	for _, msg := range EvaluateAssertions(result.Final, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one step through the controller and records what happened.
func (h *Harness) execute(ctx context.Context, index int, step Step) TraceEvent {
	opID := h.opIDs.Generate()
	ctx = store.WithOpID(ctx, opID)

	ev := TraceEvent{Step: index, Op: step.Op, ID: step.Args.ID, OpID: opID}
	a := step.Args

	var (
		found = true
		err   error
	)
	switch step.Op {
	case OpAdd:
		_, err = h.ctrl.Enroll(ctx, form.Input{
			ID:     a.ID,
			Name:   deref(a.Name),
			Field1: deref(a.Field1),
			Field2: deref(a.Field2),
		})
	case OpGet:
		var rec record.Record
		rec, found, err = h.ctrl.Query(ctx, a.ID)
		if err == nil && found {
			ev.Record = recordMap(h.cols, rec)
		}
	case OpList:
		var records []record.Record
		records, err = h.ctrl.List(ctx)
		ev.IDs = make([]string, 0, len(records))
		for _, rec := range records {
			ev.IDs = append(ev.IDs, rec.ID)
		}
	case OpUpdate:
		found, err = h.ctrl.Update(ctx, a.ID, a.patch())
	case OpDelete:
		found, err = h.ctrl.Delete(ctx, a.ID)
	case OpUpsert:
		var created bool
		created, err = h.ctrl.Upsert(ctx, a.ID, a.patch())
		if err == nil {
			ev.Created = &created
		}
	default:
		err = fmt.Errorf("unknown op %q", step.Op)
	}

	switch {
	case err != nil:
		ev.Outcome = string(form.Classify(err))
		ev.Message = form.Message(err)
	case !found:
		ev.Outcome = string(form.OutcomeNotFound)
	default:
		ev.Outcome = string(form.OutcomeOK)
	}
	return ev
}

func (a Args) patch() form.Patch {
	return form.Patch{Name: a.Name, Field1: a.Field1, Field2: a.Field2}
}

func checkExpect(ev TraceEvent, want *Expect) []string {
	var errs []string
	if ev.Outcome != want.Outcome {
		msg := fmt.Sprintf("expected outcome %s, got %s", want.Outcome, ev.Outcome)
		if ev.Message != "" {
			msg += " (" + ev.Message + ")"
		}
		errs = append(errs, msg)
	}
	if want.Record != nil {
		if ev.Record == nil {
			errs = append(errs, "expected a record, got none")
		} else if diff := subsetDiff(ev.Record, want.Record); diff != "" {
			errs = append(errs, "record mismatch: "+diff)
		}
	}
	if want.IDs != nil && !equalStrings(ev.IDs, want.IDs) {
		errs = append(errs, fmt.Sprintf("expected ids %v, got %v", want.IDs, ev.IDs))
	}
	if want.Created != nil {
		switch {
		case ev.Created == nil:
			errs = append(errs, "expected created flag, got none")
		case *ev.Created != *want.Created:
			errs = append(errs, fmt.Sprintf("expected created=%t, got %t", *want.Created, *ev.Created))
		}
	}
	return errs
}

// recordMap renders rec keyed by column name. Absent scores are "".
func recordMap(cols record.Columns, rec record.Record) map[string]string {
	return map[string]string{
		"id":        rec.ID,
		"name":      rec.Name,
		cols.Field1: rec.Field1.String(),
		cols.Field2: rec.Field2.String(),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
