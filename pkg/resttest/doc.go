// Package resttest runs declarative request/expectation scenarios against
// HTTP APIs.
//
// A Scenario describes one request (path parameters, query parameters, JSON
// body, headers) and what its response must look like (status code, body
// type, body content, custom assertions). A Runner builds the request, hands
// it to a Sender, and checks the response in a fixed order:
//
//  1. status code
//  2. body type (structural validation, see package schema)
//  3. body content (exact bytes, or JSON structural equality)
//  4. custom assertions (the scenario's own, or the runner call's default)
//
// # Isolation
//
// Sequences of scenarios run one at a time. Each scenario is wrapped in a
// savepoint of the test's ambient database transaction and rolled back when
// it finishes, whether it passed, failed, or the sender returned an error.
// A failing scenario never stops the ones after it.
//
//	tx, _ := db.BeginTx(ctx, nil)
//	defer tx.Rollback()
//
//	runner := &resttest.Runner{
//	    Sender:   &resttest.HandlerSender{Handler: app.Routes()},
//	    Isolator: savepoint.NewSQL(tx),
//	}
//	runner.AssertScenariosSucceed(t, "DELETE", "/api/departments/{id}", []resttest.Scenario{
//	    {PathParameters: map[string]any{"id": id}, ExpectedResponseStatus: 204, ExpectedResponseBody: resttest.RawBody(nil)},
//	    {PathParameters: map[string]any{"id": id}, ExpectedResponseStatus: 204},
//	}, nil)
//
// Both deletes succeed: the first one is rolled back before the second runs.
//
// # Reporting
//
// AssertScenariosSucceed and Suite report through the testing package, one
// sub-test per scenario. RunScenarios reports through a Report instead, which
// can be printed, inspected, or compared with a golden transcript.
package resttest
