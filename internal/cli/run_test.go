package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resttest/internal/departments"
	"github.com/roach88/resttest/internal/store"
)

const exampleFixtures = "../../examples/departments/fixtures.yaml"

func executeRun(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRunCommand(&RootOptions{Format: format, NoColor: true})
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_ExamplesInProcess(t *testing.T) {
	for _, isolation := range []string{IsolationSQL, IsolationGorm} {
		t.Run(isolation, func(t *testing.T) {
			out, err := executeRun(t, "text", exampleSuites, "--fixtures", exampleFixtures, "--isolation", isolation)
			require.NoError(t, err, out)

			assert.Contains(t, out, "✓ departments-read (GET /api/departments/{id})")
			assert.Contains(t, out, "✓ existing department (200 OK)")
			assert.Contains(t, out, "Test Summary: 14 passed, 0 failed, 14 total")
			assert.NotContains(t, out, "✗")
		})
	}
}

func TestRun_ExampleDirectory(t *testing.T) {
	out, err := executeRun(t, "text", "../../examples/departments", "--fixtures", exampleFixtures)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Test Summary: 14 passed, 0 failed, 14 total")
	assert.NotContains(t, out, "fixtures")
}

func TestRun_FileDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "departments.db")

	out, err := executeRun(t, "text", filepath.Join(exampleSuites, "create.yaml"), "--db", db, "--fixtures", exampleFixtures)
	require.NoError(t, err, out)

	// Everything ran inside a transaction that was rolled back.
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.Departments().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRun_JSONOutput(t *testing.T) {
	out, err := executeRun(t, "json", filepath.Join(exampleSuites, "read.yaml"), "--fixtures", exampleFixtures)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 3, resp.Data.Passed)
	require.Len(t, resp.Data.Suites, 1)
	assert.Equal(t, "departments-read", resp.Data.Suites[0].Name)
	assert.Equal(t, 404, resp.Data.Suites[0].Scenarios[1].Status)
}

const failingSuite = `
name: read-wrong-status
method: GET
path: /api/departments/{id}
scenarios:
  - description: expects the wrong status
    path_parameters: {id: 00000000-0000-7000-8000-000000000001}
    expected_response_status: 201
  - description: passes
    path_parameters: {id: 00000000-0000-7000-8000-000000000001}
    expected_response_status: 200
`

func TestRun_FailingScenario(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "wrong.yaml"), failingSuite)

	out, err := executeRun(t, "text", path, "--fixtures", exampleFixtures)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ read-wrong-status")
	assert.Contains(t, out, "✗ expects the wrong status (200 OK)")
	assert.Contains(t, out, "✓ passes (200 OK)")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestRun_FailingScenarioJSON(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "wrong.yaml"), failingSuite)

	out, err := executeRun(t, "json", path, "--fixtures", exampleFixtures)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, "1 of 2 scenarios failed", resp.Error.Message)
}

func TestRun_InvalidSuiteCountsAsFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.yaml"), "method: GET\n")
	writeFile(t, filepath.Join(dir, "read.yaml"), failingSuite)

	out, err := executeRun(t, "text", dir, "--fixtures", exampleFixtures, "--filter", "broken")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "path is required")
}

func TestRun_Golden(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "read.yaml"), `
name: read-one
method: GET
path: /api/departments/{id}
scenarios:
  - path_parameters: {id: 00000000-0000-7000-8000-000000000001}
    expected_response_status: 200
`)
	golden := filepath.Join(dir, "golden", "read-one.golden")

	_, err := executeRun(t, "text", path, "--fixtures", exampleFixtures, "--update")
	require.NoError(t, err)
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title":"department-1"`)

	out, err := executeRun(t, "text", path, "--fixtures", exampleFixtures)
	require.NoError(t, err, out)

	require.NoError(t, os.WriteFile(golden, []byte("{}"), 0644))
	out, err = executeRun(t, "text", path, "--fixtures", exampleFixtures)
	require.Error(t, err)
	assert.Contains(t, out, "transcript does not match")
}

func TestRun_BaseURL(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	deps, err := departments.LoadFixtures(exampleFixtures)
	require.NoError(t, err)
	require.NoError(t, departments.Seed(ctx, st.DB(), deps))

	srv := httptest.NewServer(departments.NewHandler(st.DB(), nil, nil).Router())
	defer srv.Close()

	out, err := executeRun(t, "text", filepath.Join(exampleSuites, "read.yaml"), filepath.Join(exampleSuites, "list.yaml"), "--base-url", srv.URL)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Test Summary: 6 passed, 0 failed, 6 total")
}

func TestRun_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing suites", []string{"/nonexistent/suites"}},
		{"missing fixtures", []string{exampleSuites, "--fixtures", "/nonexistent/fixtures.yaml"}},
		{"unknown isolation", []string{exampleSuites, "--isolation", "nested"}},
		{"bad database path", []string{exampleSuites, "--db", "/nonexistent/dir/test.db"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeRun(t, "text", tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestRun_RequiresArgs(t *testing.T) {
	_, err := executeRun(t, "text")
	require.Error(t, err)
}
