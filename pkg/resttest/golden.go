package resttest

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares the report's transcript with the golden file
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run the tests with -update.
func AssertGolden(t *testing.T, name string, report *Report) {
	t.Helper()

	data, err := report.Transcript()
	if err != nil {
		t.Fatalf("render transcript: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
