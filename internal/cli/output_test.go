package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/auth"
	"github.com/roach88/roster/internal/record"
	"github.com/roach88/roster/internal/store"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "json",
		Writer:  buf,
		TraceID: "op-7",
	}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, "op-7", resp.TraceID)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "json",
		Writer:  buf,
		TraceID: "op-1",
	}

	err := formatter.Error(CodeDuplicate, "student id S1 already exists", nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E102", resp.Error.Code)
	assert.Equal(t, "student id S1 already exists", resp.Error.Message)
	assert.Equal(t, "op-1", resp.TraceID)
}

func TestOutputFormatter_JSONOmitsEmptyTraceID(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success("x"))
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		TraceID: "op-1",
	}

	require.NoError(t, formatter.Success("added S1"))
	assert.Equal(t, "added S1\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error(CodeNotFound, "student id S9 not found", map[string]string{"id": "S9"})
	require.NoError(t, err)
	assert.Equal(t, "Error [E103]: student id S9 not found\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error(CodeStorage, "storage unavailable", map[string]string{"path": "stu.csv"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E201]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("opening %s", "stu.csv")

			assert.Empty(t, buf.String())
			if tt.wantLog {
				assert.Equal(t, "opening stu.csv\n", errBuf.String())
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"validation", &store.ValidationError{Field: "id", Reason: "cannot be empty"}, CodeValidation, ExitFailure},
		{"duplicate", fmt.Errorf("add: %w", &store.DuplicateKeyError{ID: "S1"}), CodeDuplicate, ExitFailure},
		{"io", &store.IOError{Op: "save", Path: "stu.csv", Err: errors.New("disk full")}, CodeStorage, ExitCommandError},
		{"unauthorized", auth.ErrUnauthorized, CodeUnauthorized, ExitFailure},
		{"other", errors.New("boom"), CodeGeneric, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exit := classifyError(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantExit, exit)
		})
	}
}

func TestExitError(t *testing.T) {
	err := WrapExitError(ExitCommandError, "open store", errors.New("permission denied"))
	assert.Equal(t, "open store: permission denied", err.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsReported(err))

	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestRecordView_JSON(t *testing.T) {
	cols := record.DefaultColumns()
	data, err := json.Marshal(recordTable{cols: cols, records: []record.Record{
		{ID: "S1", Name: "Ann", Field1: record.Some(90)},
	}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"S1","name":"Ann","math":90,"english":null}]`, string(data))
}

func TestFail_WritesMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	opts := &RootOptions{Format: "text"}
	f := &OutputFormatter{Format: "text", Writer: buf}

	err := opts.fail(f, &store.IOError{Op: "load", Path: "stu.csv", Err: context.Canceled})
	assert.True(t, IsReported(err))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "Error [E201]: operation canceled\n", buf.String())
}
