package resttest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/roach88/resttest/internal/canonjson"
)

// State is the lifecycle position of a scenario in a sequence.
type State int

const (
	StatePending State = iota
	StateSending
	StateAsserting
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSending:
		return "sending"
	case StateAsserting:
		return "asserting"
	case StateRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Exchange is a request together with the response it produced.
type Exchange struct {
	Request  Request
	Response *Response
}

// Outcome is the result of one scenario in a sequence.
type Outcome struct {
	Index    int
	Label    string
	Scenario Scenario
	Passed   bool
	Errors   []string
	State    State

	// Exchange is nil when no response was received.
	Exchange *Exchange
}

func (o *Outcome) setState(s State) {
	if o != nil {
		o.State = s
	}
}

func (o *Outcome) record(req Request, resp *Response) {
	if o != nil {
		o.Exchange = &Exchange{Request: req, Response: resp}
	}
}

// Report collects the outcomes of a RunScenarios call.
type Report struct {
	Method   string
	Path     string
	Outcomes []Outcome
}

// Passed reports whether every scenario passed.
func (r *Report) Passed() bool {
	return r.Failed() == 0
}

// Failed returns the number of failed scenarios.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Passed {
			n++
		}
	}
	return n
}

// Failures returns the failed outcomes in sequence order.
func (r *Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.Passed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Transcript renders the report as canonical JSON: one entry per scenario
// with its request, response, and failure messages. JSON bodies are embedded
// as values; other bodies as strings.
func (r *Report) Transcript() ([]byte, error) {
	outcomes := make([]any, len(r.Outcomes))
	for i, o := range r.Outcomes {
		entry := map[string]any{
			"label":  o.Label,
			"passed": o.Passed,
			"state":  o.State.String(),
		}
		if len(o.Errors) > 0 {
			errs := make([]any, len(o.Errors))
			for j, e := range o.Errors {
				errs[j] = e
			}
			entry["errors"] = errs
		}
		if o.Exchange != nil {
			entry["request"] = transcriptRequest(o.Exchange.Request)
			entry["response"] = transcriptResponse(o.Exchange.Response)
		}
		outcomes[i] = entry
	}

	return canonjson.Marshal(map[string]any{
		"method":   r.Method,
		"path":     r.Path,
		"outcomes": outcomes,
	})
}

func transcriptRequest(req Request) map[string]any {
	m := map[string]any{
		"method": req.Method,
		"url":    req.URL(),
	}
	if req.Body != nil {
		m["body"] = transcriptBody(req.Body)
	}
	if len(req.Header) > 0 {
		headers := make(map[string]any, len(req.Header))
		for k, v := range req.Header {
			headers[k] = v
		}
		m["headers"] = headers
	}
	return m
}

func transcriptResponse(resp *Response) map[string]any {
	m := map[string]any{
		"status": resp.StatusCode,
		"body":   transcriptBody(resp.Body),
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		m["content_type"] = ct
	}
	return m
}

func transcriptBody(body []byte) any {
	if v, err := canonjson.Decode(body); err == nil {
		return v
	}
	return string(body)
}

// Summary renders a short human-readable list of outcomes.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %d passed, %d failed\n", r.Method, r.Path, len(r.Outcomes)-r.Failed(), r.Failed())
	for _, o := range r.Outcomes {
		mark := "ok"
		if !o.Passed {
			mark = "FAIL"
		}
		status := "-"
		if o.Exchange != nil {
			status = fmt.Sprintf("%d %s", o.Exchange.Response.StatusCode, http.StatusText(o.Exchange.Response.StatusCode))
		}
		fmt.Fprintf(&b, "  [%s] %s (%s)\n", mark, o.Label, status)
	}
	return b.String()
}
