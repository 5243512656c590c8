package resttest

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"

	"github.com/roach88/resttest/internal/canonjson"
)

// Verify checks a response against the scenario's built-in expectations in
// a fixed order: status code, body type, then body content. It returns the
// first violation, or nil when every configured expectation holds. Custom
// assertions are not run here.
func Verify(resp *Response, s Scenario) error {
	if err := checkStatus(resp, s); err != nil {
		return err
	}
	if err := checkBodyType(resp, s); err != nil {
		return err
	}
	return checkBody(resp, s)
}

func checkStatus(resp *Response, s Scenario) error {
	if s.ExpectedResponseStatus == 0 || resp.StatusCode == s.ExpectedResponseStatus {
		return nil
	}
	return &AssertionError{
		Check:    "status",
		Expected: strconv.Itoa(s.ExpectedResponseStatus),
		Actual:   fmt.Sprintf("%d (body %s)", resp.StatusCode, abbreviate(resp.Body)),
		Scenario: s.String(),
	}
}

func checkBodyType(resp *Response, s Scenario) error {
	if s.ExpectedResponseBodyType == nil {
		return nil
	}
	if err := s.ExpectedResponseBodyType.Validate(resp.Body); err != nil {
		return &SchemaValidationError{
			Type:     s.ExpectedResponseBodyType.Name(),
			Err:      err,
			Scenario: s.String(),
		}
	}
	return nil
}

func checkBody(resp *Response, s Scenario) error {
	expected := s.ExpectedResponseBody

	switch expected.kind {
	case bodyUnset:
		return nil

	case bodyRaw:
		if bytes.Equal(resp.Body, expected.raw) {
			return nil
		}
		return &AssertionError{
			Check:    "body",
			Expected: fmt.Sprintf("%q", expected.raw),
			Actual:   fmt.Sprintf("%q", resp.Body),
			Scenario: s.String(),
		}

	case bodyJSON:
		want, err := expected.Value()
		if err != nil {
			return fmt.Errorf("expected response body is not valid JSON: %w", err)
		}
		got, err := canonjson.Decode(resp.Body)
		if err != nil {
			return &AssertionError{
				Check:    "body",
				Expected: canonjson.MustString(want),
				Actual:   fmt.Sprintf("invalid JSON %s: %v", abbreviate(resp.Body), err),
				Scenario: s.String(),
			}
		}
		if reflect.DeepEqual(got, want) {
			return nil
		}
		return &AssertionError{
			Check:    "body",
			Expected: canonjson.MustString(want),
			Actual:   canonjson.MustString(got),
			Scenario: s.String(),
		}
	}

	return fmt.Errorf("unknown body expectation kind %d", expected.kind)
}

const maxBodyInMessage = 512

// abbreviate quotes a body for a failure message, truncating long bodies.
func abbreviate(body []byte) string {
	if len(body) <= maxBodyInMessage {
		return fmt.Sprintf("%q", body)
	}
	return fmt.Sprintf("%q... (%d bytes)", body[:maxBodyInMessage], len(body))
}
