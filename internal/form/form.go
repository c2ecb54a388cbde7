// Package form turns raw text input into store calls and store failures into
// messages fit for an operator.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/roster/internal/record"
	"github.com/roach88/roster/internal/store"
)

// Input holds the raw text of an enrollment form.
type Input struct {
	ID     string
	Name   string
	Field1 string
	Field2 string
}

// Patch holds raw text for an update. Nil means "not provided"; an empty
// string clears a score.
type Patch struct {
	Name   *string
	Field1 *string
	Field2 *string
}

// IsEmpty reports whether p changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Field1 == nil && p.Field2 == nil
}

// Controller validates form input and invokes the store.
type Controller struct {
	store *store.Store
	cols  record.Columns
}

// NewController creates a controller over s.
func NewController(s *store.Store) *Controller {
	return &Controller{store: s, cols: s.Columns()}
}

// Enroll adds a new record. ID and name are required.
func (c *Controller) Enroll(ctx context.Context, in Input) (record.Record, error) {
	rec := record.Record{ID: record.NormalizeID(in.ID), Name: strings.TrimSpace(in.Name)}
	if rec.ID == "" {
		return record.Record{}, &store.ValidationError{Field: "id", Reason: "cannot be empty"}
	}
	if rec.Name == "" {
		return record.Record{}, &store.ValidationError{Field: "name", Reason: "cannot be empty"}
	}

	var err error
	if rec.Field1, err = c.parseScore(c.cols.Field1, in.Field1); err != nil {
		return record.Record{}, err
	}
	if rec.Field2, err = c.parseScore(c.cols.Field2, in.Field2); err != nil {
		return record.Record{}, err
	}

	if err := c.store.Add(ctx, rec); err != nil {
		return record.Record{}, err
	}
	return rec, nil
}

// Query looks up one record.
func (c *Controller) Query(ctx context.Context, id string) (record.Record, bool, error) {
	return c.store.Get(ctx, id)
}

// List returns every record sorted by ID.
func (c *Controller) List(ctx context.Context) ([]record.Record, error) {
	return c.store.List(ctx)
}

// Update changes the provided fields of an existing record.
func (c *Controller) Update(ctx context.Context, id string, p Patch) (bool, error) {
	sp, err := c.storePatch(p)
	if err != nil {
		return false, err
	}
	return c.store.Update(ctx, id, sp)
}

// Delete removes a record.
func (c *Controller) Delete(ctx context.Context, id string) (bool, error) {
	return c.store.Delete(ctx, id)
}

// Upsert creates the record when absent, otherwise updates it.
func (c *Controller) Upsert(ctx context.Context, id string, p Patch) (bool, error) {
	sp, err := c.storePatch(p)
	if err != nil {
		return false, err
	}
	return c.store.Upsert(ctx, id, sp)
}

func (c *Controller) storePatch(p Patch) (store.Patch, error) {
	var sp store.Patch
	if p.Name != nil {
		sp = sp.WithName(*p.Name)
	}
	if p.Field1 != nil {
		s, err := c.parseScore(c.cols.Field1, *p.Field1)
		if err != nil {
			return store.Patch{}, err
		}
		sp = sp.WithField1(s)
	}
	if p.Field2 != nil {
		s, err := c.parseScore(c.cols.Field2, *p.Field2)
		if err != nil {
			return store.Patch{}, err
		}
		sp = sp.WithField2(s)
	}
	return sp, nil
}

func (c *Controller) parseScore(column, text string) (record.Score, error) {
	s, err := record.ParseScore(text)
	if err != nil {
		return record.None(), &store.ValidationError{Field: column, Reason: fmt.Sprintf("%q is not a number", strings.TrimSpace(text))}
	}
	return s, nil
}

// Outcome classifies the result of a form action.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeValidation Outcome = "validation_error"
	OutcomeDuplicate  Outcome = "duplicate_key"
	OutcomeIO         Outcome = "io_error"
	OutcomeError      Outcome = "error"
)

// Classify maps an error returned by a Controller method to an Outcome.
// A nil error is OutcomeOK; callers decide when a false result means
// OutcomeNotFound.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case store.IsValidation(err):
		return OutcomeValidation
	case store.IsDuplicateKey(err):
		return OutcomeDuplicate
	case store.IsIO(err):
		return OutcomeIO
	default:
		return OutcomeError
	}
}

// Message describes err for an operator. It names the violated constraint
// and never includes low-level I/O detail.
func Message(err error) string {
	var (
		verr *store.ValidationError
		derr *store.DuplicateKeyError
		ioe  *store.IOError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return fmt.Sprintf("invalid %s: %s", verr.Field, verr.Reason)
	case errors.As(err, &derr):
		return fmt.Sprintf("student id %s already exists", derr.ID)
	case errors.As(err, &ioe):
		switch {
		case errors.Is(ioe, store.ErrHeaderMismatch):
			return fmt.Sprintf("storage unavailable: %s was created with different columns", ioe.Path)
		case errors.Is(ioe, context.Canceled), errors.Is(ioe, context.DeadlineExceeded):
			return "operation canceled"
		}
		return fmt.Sprintf("storage unavailable: could not %s records at %s", ioVerb(ioe.Op), ioe.Path)
	default:
		return "operation failed"
	}
}

func ioVerb(op string) string {
	switch op {
	case "load":
		return "read"
	case "save":
		return "save"
	default:
		return op
	}
}
