package resttest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

// Runner sends scenarios through a Sender and checks the responses.
// Sequences of scenarios are isolated from each other with the Isolator.
type Runner struct {
	Sender   Sender
	Isolator Isolator // nil behaves like NoIsolation
	Logger   *slog.Logger
}

func (r *Runner) log() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

func (r *Runner) isolator() Isolator {
	if r.Isolator == nil {
		return NoIsolation{}
	}
	return r.Isolator
}

// Send builds the request for s and delivers it. A failure of the sender is
// returned as a *TransportError; template problems are returned as is.
func (r *Runner) Send(ctx context.Context, method, path string, s Scenario) (Request, *Response, error) {
	req, err := BuildRequest(method, path, s)
	if err != nil {
		return Request{}, nil, err
	}
	if r.Sender == nil {
		return req, nil, fmt.Errorf("runner has no sender")
	}

	r.log().Debug("sending request", "method", req.Method, "url", req.URL())

	resp, err := r.Sender.Send(ctx, req)
	if err != nil {
		return req, nil, &TransportError{Method: req.Method, URL: req.URL(), Err: err}
	}
	return req, resp, nil
}

// AssertScenario sends s and checks the response. The first failing
// built-in check is reported with t.Errorf followed by t.FailNow. When they
// all pass, s.Assertions runs, or defaultAssertions when s has none.
//
// No savepoint is opened; use AssertScenariosSucceed or RunScenarios for
// isolated sequences.
func (r *Runner) AssertScenario(ctx context.Context, t TestingT, method, path string, s Scenario, defaultAssertions AssertionFunc) {
	t.Helper()
	r.assertScenario(ctx, t, method, path, s, defaultAssertions, nil)
}

func (r *Runner) assertScenario(ctx context.Context, t TestingT, method, path string, s Scenario, defaultAssertions AssertionFunc, out *Outcome) {
	t.Helper()

	out.setState(StateSending)
	req, resp, err := r.Send(ctx, method, path, s)
	if err != nil {
		r.log().Debug("scenario failed", "method", method, "path", path, "error", err)
		t.Errorf("%v", err)
		t.FailNow()
		return
	}
	out.record(req, resp)

	out.setState(StateAsserting)
	if err := Verify(resp, s); err != nil {
		r.log().Debug("scenario failed", "method", method, "url", req.URL(), "status", resp.StatusCode, "error", err)
		t.Errorf("%v", err)
		t.FailNow()
		return
	}

	assertions := s.Assertions
	if assertions == nil {
		assertions = defaultAssertions
	}
	if assertions != nil {
		assertions(t, resp, s)
	}
}

// runIsolated wraps one scenario in a savepoint. The rollback is deferred so
// it happens on every exit: normal return, FailNow, or a panic.
func (r *Runner) runIsolated(ctx context.Context, t TestingT, method, path string, s Scenario, defaultAssertions AssertionFunc, out *Outcome) {
	t.Helper()

	iso := r.isolator()
	sp, err := iso.Savepoint(ctx)
	if err != nil {
		t.Errorf("open savepoint: %v", err)
		t.FailNow()
		return
	}
	r.log().Debug("savepoint opened", "savepoint", string(sp))

	defer func() {
		rbErr := iso.RollbackTo(context.WithoutCancel(ctx), sp)
		out.setState(StateRolledBack)
		if rbErr != nil {
			t.Errorf("roll back savepoint %q: %v", sp, rbErr)
			return
		}
		r.log().Debug("savepoint rolled back", "savepoint", string(sp))
	}()

	r.assertScenario(ctx, t, method, path, s, defaultAssertions, out)
}

// RunScenarios runs every scenario against method and path, each inside its
// own savepoint, and reports the outcome of each. A failing scenario does
// not stop the ones after it.
func (r *Runner) RunScenarios(ctx context.Context, method, path string, scenarios []Scenario, defaultAssertions AssertionFunc) *Report {
	report := &Report{
		Method:   method,
		Path:     path,
		Outcomes: make([]Outcome, 0, len(scenarios)),
	}

	for i, s := range scenarios {
		out := Outcome{
			Index:    i,
			Label:    s.Label(i),
			Scenario: s,
			State:    StatePending,
		}

		rec := &Recorder{}
		rec.Run(func() {
			r.runIsolated(ctx, rec, method, path, s, defaultAssertions, &out)
		})

		out.Passed = !rec.Failed()
		out.Errors = rec.Errors()
		if !out.Passed {
			r.log().Debug("scenario failed", "label", out.Label, "errors", len(out.Errors))
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	return report
}

// AssertScenarioSucceeds is AssertScenario bound to a *testing.T.
func (r *Runner) AssertScenarioSucceeds(t *testing.T, method, path string, s Scenario, defaultAssertions AssertionFunc) {
	t.Helper()
	r.AssertScenario(t.Context(), t, method, path, s, defaultAssertions)
}

// AssertScenariosSucceed runs each scenario as a sub-test of t inside its own
// savepoint. Sub-test failures are reported independently and every scenario
// is attempted.
func (r *Runner) AssertScenariosSucceed(t *testing.T, method, path string, scenarios []Scenario, defaultAssertions AssertionFunc) {
	t.Helper()
	for i, s := range scenarios {
		t.Run(s.Label(i), func(t *testing.T) {
			t.Helper()
			r.runIsolated(t.Context(), t, method, path, s, defaultAssertions, nil)
		})
	}
}
