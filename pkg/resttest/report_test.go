package resttest

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsSequence(t *testing.T) *Report {
	t.Helper()
	r := newTestRunner(&fakeIsolator{})
	return r.RunScenarios(context.Background(), "GET", "/items/{id}", []Scenario{
		{
			Description:            "found",
			PathParameters:         map[string]any{"id": 1},
			ExpectedResponseStatus: 200,
			ExpectedResponseBody:   JSONBody(`{"title":"item 1","id":1}`),
		},
		{
			Description:            "missing",
			PathParameters:         map[string]any{"id": 9},
			ExpectedResponseStatus: 200,
		},
		{
			Description:            "with query",
			PathParameters:         map[string]any{"id": 2},
			QueryParameters:        map[string]any{"fields": []string{"id", "title"}},
			RequestHeaders:         map[string]string{"Accept": "application/json"},
			ExpectedResponseStatus: 200,
		},
	}, nil)
}

func TestReport_Golden(t *testing.T) {
	AssertGolden(t, "items_sequence", itemsSequence(t))
}

func TestReport_Summary(t *testing.T) {
	want := "GET /items/{id}: 2 passed, 1 failed\n" +
		"  [ok] found (200 OK)\n" +
		"  [FAIL] missing (404 Not Found)\n" +
		"  [ok] with query (200 OK)\n"
	assert.Equal(t, want, itemsSequence(t).Summary())
}

func TestReport_SummaryWithoutExchange(t *testing.T) {
	report := &Report{
		Method:   "POST",
		Path:     "/items",
		Outcomes: []Outcome{{Label: "scenario_0", Errors: []string{"send failed"}}},
	}
	assert.Equal(t, "POST /items: 0 passed, 1 failed\n  [FAIL] scenario_0 (-)\n", report.Summary())
}

func TestReport_TranscriptNonJSONBodies(t *testing.T) {
	report := &Report{
		Method: "POST",
		Path:   "/upload",
		Outcomes: []Outcome{{
			Label:  "plain",
			Passed: true,
			State:  StateRolledBack,
			Exchange: &Exchange{
				Request:  Request{Method: "POST", Path: "/upload", Body: []byte(`{"name":"a.txt"}`)},
				Response: &Response{StatusCode: 201, Header: http.Header{}, Body: []byte("created")},
			},
		}},
	}

	data, err := report.Transcript()
	require.NoError(t, err)
	assert.Equal(t,
		`{"method":"POST","outcomes":[{"label":"plain","passed":true,"request":{"body":{"name":"a.txt"},"method":"POST","url":"/upload"},"response":{"body":"created","status":201},"state":"rolled_back"}],"path":"/upload"}`,
		string(data))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "sending", StateSending.String())
	assert.Equal(t, "asserting", StateAsserting.String())
	assert.Equal(t, "rolled_back", StateRolledBack.String())
	assert.Equal(t, "State(9)", State(9).String())
}
