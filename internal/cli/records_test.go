package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func decode(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestAddAndGet_JSON(t *testing.T) {
	p := tempStore(t)

	out, err := runCLI(t, "--store", p, "--format", "json", "add", " S1 ", " Alice ", "--field1", "95")
	require.NoError(t, err)
	resp := decode(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "op-1", resp.TraceID)
	assert.Equal(t, map[string]any{"id": "S1", "name": "Alice", "math": 95.0, "english": nil}, resp.Data)

	out, err = runCLI(t, "--store", p, "--format", "json", "get", "S1")
	require.NoError(t, err)
	resp = decode(t, out)
	assert.Equal(t, map[string]any{"id": "S1", "name": "Alice", "math": 95.0, "english": nil}, resp.Data)

	assert.Equal(t, "id,name,math,english\nS1,Alice,95,\n", readFile(t, p))
}

func TestList_Text(t *testing.T) {
	p := tempStore(t)
	_, err := runCLI(t, "--store", p, "add", "S2", "Bob")
	require.NoError(t, err)
	_, err = runCLI(t, "--store", p, "add", "S1", "Alice", "--field1", "95")
	require.NoError(t, err)

	out, err := runCLI(t, "--store", p, "list")
	require.NoError(t, err)
	assert.Equal(t, "id  name   math  english\nS1  Alice  95    -\nS2  Bob    -     -\n", out)
}

func TestList_EmptyJSON(t *testing.T) {
	out, err := runCLI(t, "--store", tempStore(t), "--format", "json", "list")
	require.NoError(t, err)
	resp := decode(t, out)
	assert.Equal(t, []any{}, resp.Data)
}

func TestAdd_Duplicate(t *testing.T) {
	p := tempStore(t)
	_, err := runCLI(t, "--store", p, "add", "S1", "Alice")
	require.NoError(t, err)

	out, err := runCLI(t, "--store", p, "add", "S1", "Other")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [E102]: student id S1 already exists\n", out)
	assert.Equal(t, "id,name,math,english\nS1,Alice,,\n", readFile(t, p))
}

func TestAdd_Validation(t *testing.T) {
	p := tempStore(t)

	out, err := runCLI(t, "--store", p, "--format", "json", "add", "S1", "Alice", "--field2", "lots")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decode(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidation, resp.Error.Code)
	assert.Equal(t, `invalid english: "lots" is not a number`, resp.Error.Message)
	assert.Equal(t, "op-1", resp.TraceID)
}

func TestGet_NotFound(t *testing.T) {
	out, err := runCLI(t, "--store", tempStore(t), "get", "S9")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error [E103]: student id S9 not found\n", out)
}

func TestUpdate(t *testing.T) {
	p := tempStore(t)
	_, err := runCLI(t, "--store", p, "add", "S1", "Alice", "--field1", "95", "--field2", "88")
	require.NoError(t, err)

	out, err := runCLI(t, "--store", p, "update", "S1", "--field1", "", "--name", "Alice Jones")
	require.NoError(t, err)
	assert.Equal(t, "updated S1\n", out)
	assert.Equal(t, "id,name,math,english\nS1,Alice Jones,,88\n", readFile(t, p))

	_, err = runCLI(t, "--store", p, "update", "S9", "--name", "X")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err = runCLI(t, "--store", p, "update", "S1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "nothing to update")
}

func TestDelete(t *testing.T) {
	p := tempStore(t)
	_, err := runCLI(t, "--store", p, "add", "S1", "Alice")
	require.NoError(t, err)

	out, err := runCLI(t, "--store", p, "delete", " S1 ")
	require.NoError(t, err)
	assert.Equal(t, "deleted S1\n", out)
	assert.Equal(t, "id,name,math,english\n", readFile(t, p))

	out, err = runCLI(t, "--store", p, "delete", "S1")
	require.Error(t, err)
	assert.Contains(t, out, "E103")
}

func TestUpsert_JSON(t *testing.T) {
	p := tempStore(t)

	out, err := runCLI(t, "--store", p, "--format", "json", "upsert", "S1", "--name", "Ann", "--field1", "50")
	require.NoError(t, err)
	resp := decode(t, out)
	assert.Equal(t, map[string]any{"message": "created S1", "id": "S1", "created": true}, resp.Data)

	out, err = runCLI(t, "--store", p, "--format", "json", "upsert", "S1", "--field2", "60")
	require.NoError(t, err)
	resp = decode(t, out)
	assert.Equal(t, map[string]any{"message": "updated S1", "id": "S1", "created": false}, resp.Data)

	assert.Equal(t, "id,name,math,english\nS1,Ann,50,60\n", readFile(t, p))
}

func TestStorageErrorExitCode(t *testing.T) {
	p := tempStore(t)
	writeFile(t, p, "id,name,physics,english\n")

	out, err := runCLI(t, "--store", p, "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E201]: storage unavailable")
}

func TestSQLiteBackend(t *testing.T) {
	p := filepath.Join(t.TempDir(), "roster.db")

	_, err := runCLI(t, "--backend", "sqlite", "--store", p, "add", "S2", "Bob", "--field2", "71.5")
	require.NoError(t, err)
	_, err = runCLI(t, "--backend", "sqlite", "--store", p, "add", "S1", "Ann")
	require.NoError(t, err)

	out, err := runCLI(t, "--backend", "sqlite", "--store", p, "--format", "json", "list")
	require.NoError(t, err)
	resp := decode(t, out)
	assert.Equal(t, []any{
		map[string]any{"id": "S1", "name": "Ann", "math": nil, "english": nil},
		map[string]any{"id": "S2", "name": "Bob", "math": nil, "english": 71.5},
	}, resp.Data)
}

func TestAuthGatesMutations(t *testing.T) {
	p := tempStore(t)
	t.Setenv("ROSTER_ADMIN_PASSWORD", "secret")

	out, err := runCLI(t, "--store", p, "add", "S1", "Ann")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E104]: unauthorized")

	_, err = runCLI(t, "--store", p, "--user", "admin", "--password", "wrong", "add", "S1", "Ann")
	require.Error(t, err)

	_, err = runCLI(t, "--store", p, "--user", "admin", "--password", "secret", "add", "S1", "Ann")
	require.NoError(t, err)

	// Reads are not gated.
	_, err = runCLI(t, "--store", p, "get", "S1")
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	out, err := runCLI(t, "login")
	require.NoError(t, err)
	assert.Contains(t, out, "no admin password configured")

	t.Setenv("ROSTER_ADMIN_USERNAME", "registrar")
	t.Setenv("ROSTER_ADMIN_PASSWORD", "secret")

	out, err = runCLI(t, "--user", "registrar", "--password", "secret", "login")
	require.NoError(t, err)
	assert.Equal(t, "login succeeded\n", out)

	out, err = runCLI(t, "--user", "admin", "--password", "secret", "login")
	require.Error(t, err)
	assert.Contains(t, out, "E104")
}

func TestExportImport(t *testing.T) {
	src := tempStore(t)
	_, err := runCLI(t, "--store", src, "add", "S2", "Bob", "--field1", "70")
	require.NoError(t, err)
	_, err = runCLI(t, "--store", src, "add", "S1", "Ann", "--field1", "95", "--field2", "88")
	require.NoError(t, err)

	xlsx := filepath.Join(t.TempDir(), "roster.xlsx")
	out, err := runCLI(t, "--store", src, "export", xlsx)
	require.NoError(t, err)
	assert.Equal(t, "exported 2 records to "+xlsx+"\n", out)

	dst := tempStore(t)
	_, err = runCLI(t, "--store", dst, "add", "S1", "Old")
	require.NoError(t, err)

	out, err = runCLI(t, "--store", dst, "import", xlsx)
	require.NoError(t, err)
	assert.Equal(t, "imported: 1 created, 1 updated, 0 failed\n", out)
	assert.Equal(t, "id,name,math,english\nS1,Ann,95,88\nS2,Bob,70,\n", readFile(t, dst))
}

func TestImport_RejectedRows(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.csv")
	writeFile(t, in, "id,name,math,english\nS1,Ann,90,\nS2,Bob,lots,\n")

	out, err := runCLI(t, "--store", tempStore(t), "import", in)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Equal(t, "imported: 1 created, 0 updated, 1 failed\n  line 3 (S2): invalid math: \"lots\" is not a number\n", out)
}

func TestExport_UnsupportedExtension(t *testing.T) {
	out, err := runCLI(t, "--store", tempStore(t), "export", filepath.Join(t.TempDir(), "roster.pdf"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "unsupported file type")
}

func TestExecute_ExitCodes(t *testing.T) {
	p := tempStore(t)
	assert.Equal(t, ExitSuccess, Execute(context.Background(), []string{"--store", p, "add", "S1", "Ann"}))
	assert.Equal(t, ExitFailure, Execute(context.Background(), []string{"--store", p, "get", "S9"}))
	assert.Equal(t, ExitCommandError, Execute(context.Background(), []string{"--store", p, "get"}))
}

func TestImport_VerboseReportsRowCount(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.csv")
	writeFile(t, in, "id,name,math,english\nS1,Ann,90,\nS2,Bob,,\n")

	out, err := runCLI(t, "-v", "--store", tempStore(t), "import", in)
	require.NoError(t, err)
	assert.Equal(t, "read 2 rows from "+in+"\nimported: 2 created, 0 updated, 0 failed\n", out)
}
