package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resttest/pkg/resttest"
)

const schemaCUE = `
#Item: {
	id:    int
	title: string
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Full(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "items.cue", schemaCUE)
	path := writeFile(t, dir, "items.yaml", `
description: item endpoints
method: get
path: /items/{id}
schemas: items.cue
scenarios:
  - description: found
    path_parameters: {id: 1}
    query_parameters: {fields: [id, title]}
    request_headers: {Accept: application/json}
    expected_response_status: 200
    expected_response_body_type: "#Item"
    expected_response_body: {id: 1, title: one}
  - path_parameters: {id: 2}
    query_parameters: {}
    expected_response_status: 204
    expected_response_body_raw: ""
  - path_parameters: {id: 3}
    expected_response_body: null
`)

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "items", f.Name)
	assert.Equal(t, "GET", f.Method)
	assert.Equal(t, filepath.Join(dir, "items.cue"), f.Schemas)
	assert.Equal(t, path, f.Source)
	require.Len(t, f.Scenarios, 3)

	scenarios, err := f.Resolve()
	require.NoError(t, err)
	require.Len(t, scenarios, 3)

	first := scenarios[0]
	assert.Equal(t, "found", first.Description)
	assert.Equal(t, map[string]any{"id": 1}, first.PathParameters)
	assert.Equal(t, 200, first.ExpectedResponseStatus)
	require.NotNil(t, first.ExpectedResponseBodyType)
	assert.Equal(t, "#Item", first.ExpectedResponseBodyType.Name())
	want, err := first.ExpectedResponseBody.Value()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(1), "title": "one"}, want)

	req, err := resttest.BuildRequest(f.Method, f.Path, first)
	require.NoError(t, err)
	assert.Equal(t, "/items/1?fields=id&fields=title", req.URL())
	assert.Equal(t, "application/json", req.Header["Accept"])

	second := scenarios[1]
	assert.NotNil(t, second.QueryParameters)
	assert.Empty(t, second.QueryParameters)
	assert.True(t, second.ExpectedResponseBody.IsRaw())
	assert.Empty(t, second.ExpectedResponseBody.Raw())

	third := scenarios[2]
	assert.Nil(t, third.QueryParameters)
	assert.True(t, third.ExpectedResponseBody.IsSet())
	null, err := third.ExpectedResponseBody.Value()
	require.NoError(t, err)
	assert.Nil(t, null)
}

func TestParse_StringBodyIsJSONString(t *testing.T) {
	f, err := Parse([]byte(`
method: GET
path: /ping
scenarios:
  - expected_response_body: pong
`), "")
	require.NoError(t, err)

	scenarios, err := f.Resolve()
	require.NoError(t, err)

	v, err := scenarios[0].ExpectedResponseBody.Value()
	require.NoError(t, err)
	assert.Equal(t, "pong", v)
	assert.NoError(t, resttest.Verify(&resttest.Response{StatusCode: 200, Body: []byte(`"pong"`)}, scenarios[0]))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "method: GET\npath: /x\nscenarios:\n  - expected_status: 200\n",
			want: "field expected_status not found",
		},
		{
			name: "missing method",
			yaml: "path: /x\nscenarios:\n  - expected_response_status: 200\n",
			want: "method is required",
		},
		{
			name: "bad method",
			yaml: "method: FETCH\npath: /x\nscenarios:\n  - expected_response_status: 200\n",
			want: `unsupported method "FETCH"`,
		},
		{
			name: "missing path",
			yaml: "method: GET\nscenarios:\n  - expected_response_status: 200\n",
			want: "path is required",
		},
		{
			name: "relative path",
			yaml: "method: GET\npath: items\nscenarios:\n  - expected_response_status: 200\n",
			want: "path must start with '/'",
		},
		{
			name: "no scenarios",
			yaml: "method: GET\npath: /x\nscenarios: []\n",
			want: "scenarios list is required",
		},
		{
			name: "no expectation",
			yaml: "method: GET\npath: /x\nscenarios:\n  - description: nothing\n",
			want: "scenarios[0]: at least one expected_response_* field is required",
		},
		{
			name: "bad status",
			yaml: "method: GET\npath: /x\nscenarios:\n  - expected_response_status: 42\n",
			want: "expected_response_status 42 is not an HTTP status",
		},
		{
			name: "both bodies",
			yaml: "method: GET\npath: /x\nscenarios:\n  - expected_response_body: {}\n    expected_response_body_raw: \"\"\n",
			want: "mutually exclusive",
		},
		{
			name: "body type without schemas",
			yaml: "method: GET\npath: /x\nscenarios:\n  - expected_response_body_type: \"#Item\"\n",
			want: "requires a schemas file",
		},
		{
			name: "missing schemas file",
			yaml: "method: GET\npath: /x\nschemas: nope.cue\nscenarios:\n  - expected_response_status: 200\n",
			want: "schemas file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScenarios_UnknownBodyType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "items.cue", schemaCUE)
	path := writeFile(t, dir, "items.yaml", `
method: GET
path: /items
schemas: items.cue
scenarios:
  - expected_response_body_type: "#Missing"
`)

	f, err := Load(path)
	require.NoError(t, err)

	_, err = f.Resolve()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios[0]: schema #Missing not found")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read suite file")
}

func TestLoad_ExplicitName(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.yaml", "name: custom\nmethod: DELETE\npath: /x\nscenarios:\n  - expected_response_status: 204\n")
	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", f.Name)
}
