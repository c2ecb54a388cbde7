package store

import (
	"errors"
	"fmt"
)

var (
	// ErrHeaderMismatch means an existing store was created with a different
	// column header than the one requested.
	ErrHeaderMismatch = errors.New("header mismatch")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("store closed")
)

// ValidationError reports an invalid field value. Recoverable: the caller
// should report it and let the user correct the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateKeyError reports an Add whose ID is already present.
type DuplicateKeyError struct {
	ID string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("record id %q already exists", e.ID)
}

// IOError reports that the backing storage could not be read or written.
// The in-memory state of the store is unaffected; callers may retry.
type IOError struct {
	Op   string // "open", "load", "save", "close"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsDuplicateKey reports whether err is (or wraps) a DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	var d *DuplicateKeyError
	return errors.As(err, &d)
}

// IsIO reports whether err is (or wraps) an IOError.
func IsIO(err error) bool {
	var e *IOError
	return errors.As(err, &e)
}

func ioErr(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
