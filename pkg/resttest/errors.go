package resttest

import (
	"fmt"
	"strings"
)

// MissingPathParameterError is returned when a path template names a
// placeholder that the scenario gives no value for.
type MissingPathParameterError struct {
	Name     string
	Template string
}

func (e *MissingPathParameterError) Error() string {
	return fmt.Sprintf("missing path parameter %q for template %q", e.Name, e.Template)
}

// PathTemplateError is returned for a malformed path template, such as an
// unclosed placeholder or a lone closing brace.
type PathTemplateError struct {
	Template string
	Offset   int
	Reason   string
}

func (e *PathTemplateError) Error() string {
	return fmt.Sprintf("invalid path template %q at offset %d: %s", e.Template, e.Offset, e.Reason)
}

// AssertionError is returned when a response does not meet an expectation.
type AssertionError struct {
	Check    string // "status" or "body"
	Expected string
	Actual   string
	Scenario string // Scenario.String() of the failing scenario
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Check)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)

	if e.Scenario != "" {
		fmt.Fprintf(&buf, "\n\n%s", e.Scenario)
	}

	return buf.String()
}

// SchemaValidationError is returned when the response body does not conform
// to the scenario's expected body type.
type SchemaValidationError struct {
	Type     string
	Err      error
	Scenario string
}

func (e *SchemaValidationError) Error() string {
	msg := fmt.Sprintf("response body does not conform to %s: %v", e.Type, e.Err)
	if e.Scenario != "" {
		msg += "\n\n" + e.Scenario
	}
	return msg
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

// TransportError is returned when the sender itself fails to deliver a
// request or read its response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
