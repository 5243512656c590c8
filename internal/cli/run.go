package cli

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/resttest/pkg/resttest"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	TargetOptions
	Filter string // suite filter (glob pattern)
	Update bool   // regenerate golden transcripts
}

// ScenarioResult holds the result of a single scenario.
type ScenarioResult struct {
	Label  string   `json:"label"`
	Pass   bool     `json:"pass"`
	Status int      `json:"status,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult holds the result of one suite file.
type SuiteResult struct {
	Name      string           `json:"name"`
	Source    string           `json:"source"`
	Method    string           `json:"method"`
	Path      string           `json:"path"`
	Pass      bool             `json:"pass"`
	Scenarios []ScenarioResult `json:"scenarios"`
	Errors    []string         `json:"errors,omitempty"`
}

// RunResult holds the overall run result.
type RunResult struct {
	Suites []SuiteResult `json:"suites"`
	Passed int           `json:"passed"`
	Failed int           `json:"failed"`
	Total  int           `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <suite>...",
		Short: "Run scenario suites",
		Long: `Run the scenarios of one or more suite files. Directories are searched
for .yaml and .yml files.

Without --base-url the bundled departments service is served in-process on
a SQLite database and every scenario runs inside a savepoint that is rolled
back afterwards.

When a suite has a golden transcript (golden/<name>.golden next to the suite
file) the run's transcript must match it byte for byte. --update rewrites
the golden transcripts instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, database errors, etc.)

Examples:
  resttest run ./examples/departments --fixtures ./examples/departments/fixtures.yaml
  resttest run ./suites --base-url http://localhost:8080
  resttest run ./suites --fixtures fixtures.yaml --filter "read-*"
  resttest run ./suites --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuites(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "send requests to a running server instead of the in-process service")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout for --base-url")
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database for the in-process service (default in-memory)")
	cmd.Flags().StringVar(&opts.Fixtures, "fixtures", "", "YAML file of departments to seed")
	cmd.Flags().StringVar(&opts.Isolation, "isolation", IsolationSQL, "savepoint implementation (sql|gorm)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter suites by glob pattern")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden transcripts")

	return cmd
}

func runSuites(opts *RunOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := out.Logger()

	files, err := FindSuiteFiles(args, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot find suites", err)
	}

	t, err := openTarget(cmd.Context(), opts.TargetOptions, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot prepare target", err)
	}
	defer func() {
		if err := t.Close(); err != nil {
			logger.Warn("closing target failed", "error", err)
		}
	}()

	result := RunResult{Suites: make([]SuiteResult, 0, len(files))}
	for _, file := range files {
		res := runSuite(opts, t.runner, file, cmd)
		result.Suites = append(result.Suites, res)
		for _, s := range res.Scenarios {
			result.Total++
			if s.Pass {
				result.Passed++
			} else {
				result.Failed++
			}
		}
		if len(res.Scenarios) == 0 {
			// Suite failed before any scenario ran.
			result.Total++
			result.Failed++
		}
	}

	if opts.Format == "json" {
		if err := writeRunJSON(out, result); err != nil {
			return err
		}
	} else {
		writeRunText(out, result)
	}

	if !allPassed(result) {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total))
	}
	return nil
}

func runSuite(opts *RunOptions, runner *resttest.Runner, file string, cmd *cobra.Command) SuiteResult {
	loaded, err := LoadSuite(file)
	if err != nil {
		return SuiteResult{
			Name:      filepath.Base(file),
			Source:    file,
			Scenarios: []ScenarioResult{},
			Errors:    []string{err.Error()},
		}
	}

	f := loaded.File
	report := runner.RunScenarios(cmd.Context(), f.Method, f.Path, loaded.Scenarios, nil)
	res := SuiteResult{
		Name:      f.Name,
		Source:    file,
		Method:    f.Method,
		Path:      f.Path,
		Pass:      report.Passed(),
		Scenarios: make([]ScenarioResult, 0, len(report.Outcomes)),
	}
	for _, o := range report.Outcomes {
		sr := ScenarioResult{Label: o.Label, Pass: o.Passed, Errors: o.Errors}
		if o.Exchange != nil {
			sr.Status = o.Exchange.Response.StatusCode
		}
		res.Scenarios = append(res.Scenarios, sr)
	}

	if msg := checkGolden(opts, file, f.Name, report); msg != "" {
		res.Pass = false
		res.Errors = append(res.Errors, msg)
	}
	return res
}

// checkGolden compares or rewrites the suite's golden transcript. It
// returns a failure message, or "" when there is nothing to report.
func checkGolden(opts *RunOptions, file, name string, report *resttest.Report) string {
	path := goldenFilePath(file, name)
	transcript, err := report.Transcript()
	if err != nil {
		return fmt.Sprintf("render transcript: %v", err)
	}

	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Sprintf("update golden: %v", err)
		}
		if err := os.WriteFile(path, transcript, 0644); err != nil {
			return fmt.Sprintf("update golden: %v", err)
		}
		return ""
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ""
	}
	if err != nil {
		return fmt.Sprintf("read golden: %v", err)
	}
	if !bytes.Equal(want, transcript) {
		return fmt.Sprintf("transcript does not match %s (run with --update to regenerate)", path)
	}
	return ""
}

func goldenFilePath(file, name string) string {
	return filepath.Join(filepath.Dir(file), "golden", name+".golden")
}

func allPassed(result RunResult) bool {
	for _, s := range result.Suites {
		if !s.Pass || len(s.Errors) > 0 {
			return false
		}
	}
	return result.Failed == 0
}

func writeRunJSON(out *OutputFormatter, result RunResult) error {
	if allPassed(result) {
		return out.Success(result)
	}
	return out.Error(ErrCodeTestFailed, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total), result)
}

func writeRunText(out *OutputFormatter, result RunResult) {
	w := out.Writer
	for _, s := range result.Suites {
		mark := out.Pass()
		if !s.Pass || len(s.Errors) > 0 {
			mark = out.Fail()
		}
		if s.Method != "" {
			fmt.Fprintf(w, "%s %s (%s %s)\n", mark, s.Name, s.Method, s.Path)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, s.Name)
		}
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		for _, sc := range s.Scenarios {
			writeScenarioText(w, out, sc)
		}
	}
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}

func writeScenarioText(w io.Writer, out *OutputFormatter, sc ScenarioResult) {
	mark := out.Pass()
	if !sc.Pass {
		mark = out.Fail()
	}
	status := "-"
	if sc.Status != 0 {
		status = fmt.Sprintf("%d %s", sc.Status, http.StatusText(sc.Status))
	}
	fmt.Fprintf(w, "  %s %s (%s)\n", mark, sc.Label, status)
	for _, e := range sc.Errors {
		fmt.Fprintf(w, "      %s\n", e)
	}
}
