// Package suite loads scenario suites from YAML files.
//
// A suite file names one endpoint and the scenarios to run against it:
//
//	name: departments-read
//	method: GET
//	path: /api/departments/{id}
//	schemas: departments.cue
//	scenarios:
//	  - description: existing department
//	    path_parameters: {id: 00000000-0000-7000-8000-000000000001}
//	    expected_response_status: 200
//	    expected_response_body_type: "#DepartmentOut"
//	  - description: unknown department
//	    path_parameters: {id: 6f1d2c3b-4a59-4e6f-8a7b-9c0d1e2f3a4b}
//	    expected_response_status: 404
//
// Unknown keys are rejected so that typos fail loudly.
package suite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/resttest/pkg/resttest"
	"github.com/roach88/resttest/pkg/schema"
)

// File is a parsed suite file.
type File struct {
	// Name identifies the suite in output. Defaults to the file name.
	Name string `yaml:"name"`

	// Description explains what the suite covers.
	Description string `yaml:"description,omitempty"`

	// Method and Path select the endpoint. Path may hold {name}
	// placeholders filled from each scenario's path_parameters.
	Method string `yaml:"method"`
	Path   string `yaml:"path"`

	// Schemas is a CUE file whose definitions scenarios name in
	// expected_response_body_type. Relative paths are resolved against the
	// suite file's directory.
	Schemas string `yaml:"schemas,omitempty"`

	Scenarios []Scenario `yaml:"scenarios"`

	// Source is the path the file was loaded from.
	Source string `yaml:"-"`
}

// Scenario is the YAML form of resttest.Scenario.
type Scenario struct {
	Description     string            `yaml:"description,omitempty"`
	PathParameters  map[string]any    `yaml:"path_parameters,omitempty"`
	QueryParameters map[string]any    `yaml:"query_parameters,omitempty"`
	RequestBody     any               `yaml:"request_body,omitempty"`
	RequestHeaders  map[string]string `yaml:"request_headers,omitempty"`

	ExpectedResponseStatus   int    `yaml:"expected_response_status,omitempty"`
	ExpectedResponseBodyType string `yaml:"expected_response_body_type,omitempty"`

	// ExpectedResponseBody is compared as JSON. A node is kept so that an
	// explicit null can be told apart from an absent key.
	ExpectedResponseBody yaml.Node `yaml:"expected_response_body,omitempty"`

	// ExpectedResponseBodyRaw is compared byte for byte.
	ExpectedResponseBodyRaw *string `yaml:"expected_response_body_raw,omitempty"`
}

func (s *Scenario) hasBody() bool {
	return s.ExpectedResponseBody.Kind != 0
}

var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// Load reads, parses and validates a suite file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	f, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Source = path
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

// Parse parses and validates suite YAML. A relative schemas path is
// resolved against baseDir.
func Parse(data []byte, baseDir string) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	f.Method = strings.ToUpper(f.Method)
	if f.Schemas != "" && !filepath.IsAbs(f.Schemas) && baseDir != "" {
		f.Schemas = filepath.Join(baseDir, f.Schemas)
	}

	if err := validate(&f); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &f, nil
}

func validate(f *File) error {
	if f.Method == "" {
		return fmt.Errorf("method is required")
	}
	if !methods[f.Method] {
		return fmt.Errorf("unsupported method %q", f.Method)
	}
	if f.Path == "" {
		return fmt.Errorf("path is required")
	}
	if !strings.HasPrefix(f.Path, "/") {
		return fmt.Errorf("path must start with '/': %q", f.Path)
	}
	if len(f.Scenarios) == 0 {
		return fmt.Errorf("scenarios list is required and must be non-empty")
	}
	if f.Schemas != "" {
		if _, err := os.Stat(f.Schemas); err != nil {
			return fmt.Errorf("schemas file not found: %s", f.Schemas)
		}
	}

	for i := range f.Scenarios {
		if err := validateScenario(f, i); err != nil {
			return err
		}
	}
	return nil
}

func validateScenario(f *File, i int) error {
	s := &f.Scenarios[i]

	if s.ExpectedResponseStatus == 0 && s.ExpectedResponseBodyType == "" && !s.hasBody() && s.ExpectedResponseBodyRaw == nil {
		return fmt.Errorf("scenarios[%d]: at least one expected_response_* field is required", i)
	}
	if s.ExpectedResponseStatus != 0 && (s.ExpectedResponseStatus < 100 || s.ExpectedResponseStatus > 599) {
		return fmt.Errorf("scenarios[%d]: expected_response_status %d is not an HTTP status", i, s.ExpectedResponseStatus)
	}
	if s.hasBody() && s.ExpectedResponseBodyRaw != nil {
		return fmt.Errorf("scenarios[%d]: expected_response_body and expected_response_body_raw are mutually exclusive", i)
	}
	if s.ExpectedResponseBodyType != "" && f.Schemas == "" {
		return fmt.Errorf("scenarios[%d]: expected_response_body_type requires a schemas file", i)
	}
	return nil
}

// Resolve converts the suite's scenarios, resolving body types against
// the schemas file.
func (f *File) Resolve() ([]resttest.Scenario, error) {
	var schemas *schema.Schemas
	if f.Schemas != "" {
		var err error
		if schemas, err = schema.Load(f.Schemas); err != nil {
			return nil, err
		}
	}

	out := make([]resttest.Scenario, len(f.Scenarios))
	for i := range f.Scenarios {
		s, err := f.Scenarios[i].convert(schemas)
		if err != nil {
			return nil, fmt.Errorf("scenarios[%d]: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

func (s *Scenario) convert(schemas *schema.Schemas) (resttest.Scenario, error) {
	out := resttest.Scenario{
		Description:            s.Description,
		PathParameters:         s.PathParameters,
		QueryParameters:        s.QueryParameters,
		RequestBody:            s.RequestBody,
		RequestHeaders:         s.RequestHeaders,
		ExpectedResponseStatus: s.ExpectedResponseStatus,
	}

	if s.ExpectedResponseBodyType != "" {
		if schemas == nil {
			return resttest.Scenario{}, fmt.Errorf("expected_response_body_type requires a schemas file")
		}
		t, err := schemas.Type(s.ExpectedResponseBodyType)
		if err != nil {
			return resttest.Scenario{}, err
		}
		out.ExpectedResponseBodyType = t
	}

	switch {
	case s.hasBody():
		var v any
		if err := s.ExpectedResponseBody.Decode(&v); err != nil {
			return resttest.Scenario{}, fmt.Errorf("expected_response_body: %w", err)
		}
		// Re-encode so that a YAML string is expected as a JSON string
		// rather than parsed as JSON text.
		data, err := json.Marshal(v)
		if err != nil {
			return resttest.Scenario{}, fmt.Errorf("expected_response_body: %w", err)
		}
		out.ExpectedResponseBody = resttest.JSONBody(json.RawMessage(data))
	case s.ExpectedResponseBodyRaw != nil:
		out.ExpectedResponseBody = resttest.RawBody([]byte(*s.ExpectedResponseBodyRaw))
	}

	return out, nil
}
