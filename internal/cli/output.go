package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/form"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected request (validation, duplicate id, not found, auth, failed scenarios)
	ExitCommandError = 2 // Command error (storage unavailable, bad config, bad usage)
)

// Error codes reported in CLIError.Code.
const (
	CodeGeneric      = "E001"
	CodeValidation   = "E101"
	CodeDuplicate    = "E102"
	CodeNotFound     = "E103"
	CodeUnauthorized = "E104"
	CodeStorage      = "E201"
	CodeConfig       = "E202"
	CodeTestFailed   = "E_TEST_FAILED"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the error has already been written to the
	// command's output.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// IsReported reports whether err was already written to output.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
	TraceID   string // Operation ID echoed as trace_id in JSON output
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string      `json:"status"`             // "ok" or "error"
	Data    interface{} `json:"data,omitempty"`     // success payload
	Error   *CLIError   `json:"error,omitempty"`    // error details
	TraceID string      `json:"trace_id,omitempty"` // operation ID
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E101", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:  "ok",
			Data:    data,
			TraceID: f.TraceID,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
			TraceID: f.TraceID,
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// reportErr writes an error response and returns the matching reported
// ExitError.
func (o *RootOptions) reportErr(f *OutputFormatter, code string, exit int, message string, err error) error {
	if werr := f.Error(code, message, nil); werr != nil {
		return WrapExitError(ExitCommandError, "write output", werr)
	}
	return &ExitError{Code: exit, Message: message, Err: err, Reported: true}
}

// fail classifies err from a store or auth call, reports it and returns the
// ExitError to hand back to cobra.
func (o *RootOptions) fail(f *OutputFormatter, err error) error {
	code, exit := classifyError(err)
	msg := form.Message(err)
	if errors.Is(err, auth.ErrUnauthorized) {
		msg = "unauthorized: " + err.Error()
	}
	return o.reportErr(f, code, exit, msg, err)
}

// notFound reports a missing student id.
func (o *RootOptions) notFound(f *OutputFormatter, id string) error {
	return o.reportErr(f, CodeNotFound, ExitFailure, fmt.Sprintf("student id %s not found", id), nil)
}

// classifyError maps an error to its error code and exit code.
func classifyError(err error) (string, int) {
	if errors.Is(err, auth.ErrUnauthorized) {
		return CodeUnauthorized, ExitFailure
	}
	switch form.Classify(err) {
	case form.OutcomeValidation:
		return CodeValidation, ExitFailure
	case form.OutcomeDuplicate:
		return CodeDuplicate, ExitFailure
	case form.OutcomeIO:
		return CodeStorage, ExitCommandError
	default:
		return CodeGeneric, ExitFailure
	}
}
