package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// ValidatedSuite describes a suite file that loaded cleanly.
type ValidatedSuite struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Scenarios int    `json:"scenarios"`
}

// ValidationResult holds the outcome of the validate command.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Suites []ValidatedSuite  `json:"suites"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one problem found in a suite file.
type ValidationIssue struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "validate <suite>...",
		Short: "Check suite files without sending requests",
		Long: `Parse every suite file, check its scenarios, and compile the schema
file it references, resolving each expected_response_body_type. All files
are checked; every problem is reported.

Examples:
  resttest validate ./examples/departments
  resttest validate read.yaml create.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "filter suites by glob pattern")

	return cmd
}

func runValidate(opts *RootOptions, args []string, filter string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := FindSuiteFiles(args, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot find suites", err)
	}

	result := ValidationResult{Suites: []ValidatedSuite{}}
	for _, file := range files {
		loaded, err := LoadSuite(file)
		if err != nil {
			result.Errors = append(result.Errors, toIssue(file, err))
			continue
		}
		result.Suites = append(result.Suites, ValidatedSuite{
			Name:      loaded.File.Name,
			Source:    file,
			Method:    loaded.File.Method,
			Path:      loaded.File.Path,
			Scenarios: len(loaded.Scenarios),
		})
	}
	result.Valid = len(result.Errors) == 0

	if opts.Format == "json" {
		if result.Valid {
			if err := out.Success(result); err != nil {
				return err
			}
		} else if err := out.Error(ErrCodeLoadFailed, fmt.Sprintf("%d invalid suite files", len(result.Errors)), result); err != nil {
			return err
		}
	} else {
		writeValidateText(out, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid suite files", len(result.Errors)))
	}
	return nil
}

func toIssue(file string, err error) ValidationIssue {
	issue := ValidationIssue{File: file, Code: ErrCodeGeneric, Message: err.Error()}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		issue.Code = loadErr.Code
		issue.Message = loadErr.Message
		if loadErr.Pos.IsValid() {
			issue.Line = loadErr.Pos.Line()
			issue.Column = loadErr.Pos.Column()
		}
	}
	return issue
}

func writeValidateText(out *OutputFormatter, result ValidationResult) {
	w := out.Writer
	for _, s := range result.Suites {
		fmt.Fprintf(w, "%s %s (%s %s, %d scenarios)\n", out.Pass(), s.Name, s.Method, s.Path, s.Scenarios)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "%s %s\n", out.Fail(), filepath.Base(e.File))
		fmt.Fprintf(w, "  [%s] %s\n", e.Code, e.Message)
	}
	fmt.Fprintf(w, "\n%d valid, %d invalid\n", len(result.Suites), len(result.Errors))
}
