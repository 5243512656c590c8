package resttest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/resttest/internal/canonjson"
)

// Scenario describes one request and the expectations its response must meet.
//
// A Scenario is a value: the runner never modifies it. Every field is
// optional, although a scenario that sets no expectation only proves that the
// request could be sent.
type Scenario struct {
	// Description labels the scenario in sub-test names and failure messages.
	Description string

	// PathParameters fill the {name} placeholders of the path template.
	// Values are formatted with fmt.Sprint.
	PathParameters map[string]any

	// QueryParameters are encoded into the query string. Slice and array
	// values become repeated parameters. A nil map attaches no query string.
	QueryParameters map[string]any

	// RequestBody is serialized to JSON. Nil sends no body.
	RequestBody any

	// RequestHeaders are handed to the sender unmodified.
	RequestHeaders map[string]string

	// ExpectedResponseStatus must equal the response status code. Zero skips
	// the check.
	ExpectedResponseStatus int

	// ExpectedResponseBodyType validates the structure of the raw response
	// body. Nil skips the check.
	ExpectedResponseBodyType BodyType

	// ExpectedResponseBody is compared with the response body. The zero value
	// skips the check.
	ExpectedResponseBody Body

	// Assertions run after the built-in checks pass. When set they replace the
	// runner's default assertions.
	Assertions AssertionFunc
}

// AssertionFunc performs extra checks on a response. Failures are reported
// through t; require-style helpers may be used since t supports FailNow.
type AssertionFunc func(t TestingT, resp *Response, s Scenario)

// BodyType validates a raw response body against a schema or type.
type BodyType interface {
	// Name identifies the type in failure messages.
	Name() string
	// Validate returns an error describing why body does not conform.
	Validate(body []byte) error
}

type bodyTypeFunc struct {
	name string
	fn   func([]byte) error
}

func (b bodyTypeFunc) Name() string               { return b.name }
func (b bodyTypeFunc) Validate(body []byte) error { return b.fn(body) }

// BodyTypeFunc adapts a plain validation function into a BodyType.
func BodyTypeFunc(name string, fn func(body []byte) error) BodyType {
	return bodyTypeFunc{name: name, fn: fn}
}

// TestingT is the part of *testing.T the runner reports through.
// *testing.T and *Recorder both satisfy it.
type TestingT interface {
	Helper()
	Errorf(format string, args ...any)
	FailNow()
}

type bodyKind int

const (
	bodyUnset bodyKind = iota
	bodyRaw
	bodyJSON
)

// Body is the expected response body: unset, exact bytes, or a JSON value.
type Body struct {
	kind  bodyKind
	raw   []byte
	value any
}

// RawBody expects the response body to equal b byte for byte. A nil or empty
// b expects an empty body.
func RawBody(b []byte) Body {
	return Body{kind: bodyRaw, raw: append([]byte{}, b...)}
}

// JSONBody expects the response body to be JSON structurally equal to v.
// Key order and whitespace are ignored. A string, []byte or json.RawMessage
// is taken as JSON text; any other value is encoded with encoding/json first.
func JSONBody(v any) Body {
	return Body{kind: bodyJSON, value: v}
}

// IsSet reports whether a body expectation was given.
func (b Body) IsSet() bool {
	return b.kind != bodyUnset
}

// IsRaw reports whether the expectation is an exact byte comparison.
func (b Body) IsRaw() bool {
	return b.kind == bodyRaw
}

// Raw returns the expected bytes of a RawBody.
func (b Body) Raw() []byte {
	return b.raw
}

// Value returns the generic JSON form of a JSONBody expectation.
func (b Body) Value() (any, error) {
	if b.kind != bodyJSON {
		return nil, fmt.Errorf("body expectation is not JSON")
	}
	switch v := b.value.(type) {
	case string:
		return canonjson.Decode([]byte(v))
	case []byte:
		return canonjson.Decode(v)
	case json.RawMessage:
		return canonjson.Decode(v)
	default:
		return canonjson.Normalize(v)
	}
}

func (b Body) String() string {
	switch b.kind {
	case bodyRaw:
		return fmt.Sprintf("%q", b.raw)
	case bodyJSON:
		switch v := b.value.(type) {
		case string:
			return v
		case []byte:
			return string(v)
		case json.RawMessage:
			return string(v)
		}
		return canonjson.MustString(b.value)
	default:
		return "<unset>"
	}
}

// Label names the scenario's sub-test: the description when set, otherwise
// its position in the sequence.
func (s Scenario) Label(index int) string {
	if s.Description != "" {
		return s.Description
	}
	return fmt.Sprintf("scenario_%d", index)
}

// String lists every field that is set, one per line.
func (s Scenario) String() string {
	lines := []string{"Scenario:"}
	add := func(key string, value any) {
		lines = append(lines, fmt.Sprintf("\t%s=%v", key, value))
	}
	if s.Description != "" {
		add("description", s.Description)
	}
	if s.PathParameters != nil {
		add("path_parameters", s.PathParameters)
	}
	if s.QueryParameters != nil {
		add("query_parameters", s.QueryParameters)
	}
	if s.RequestBody != nil {
		add("request_body", s.RequestBody)
	}
	if s.RequestHeaders != nil {
		add("request_headers", s.RequestHeaders)
	}
	if s.ExpectedResponseStatus != 0 {
		add("expected_response_status", s.ExpectedResponseStatus)
	}
	if s.ExpectedResponseBodyType != nil {
		add("expected_response_body_type", s.ExpectedResponseBodyType.Name())
	}
	if s.ExpectedResponseBody.IsSet() {
		add("expected_response_body", s.ExpectedResponseBody)
	}
	if s.Assertions != nil {
		add("assertions", "<func>")
	}
	return strings.Join(lines, "\n")
}
