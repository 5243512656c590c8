package resttest

import "github.com/stretchr/testify/suite"

// Suite is a testify suite with scenario assertions. Set Runner in
// SetupTest, usually over a fresh transaction, so each test starts clean.
type Suite struct {
	suite.Suite
	Runner *Runner
}

// AssertScenarioSucceeds sends one scenario and checks the response. Requests
// carry the current test's context, which is canceled when it finishes.
func (s *Suite) AssertScenarioSucceeds(method, path string, sc Scenario, defaultAssertions AssertionFunc) {
	s.T().Helper()
	s.Runner.AssertScenario(s.T().Context(), s.T(), method, path, sc, defaultAssertions)
}

// AssertScenariosSucceed runs each scenario as a sub-test inside its own
// savepoint, rolling back after each one.
func (s *Suite) AssertScenariosSucceed(method, path string, scenarios []Scenario, defaultAssertions AssertionFunc) {
	s.T().Helper()
	for i, sc := range scenarios {
		s.Run(sc.Label(i), func() {
			s.Runner.runIsolated(s.T().Context(), s.T(), method, path, sc, defaultAssertions, nil)
		})
	}
}
