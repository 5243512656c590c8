package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/resttest/internal/suite"
	"github.com/roach88/resttest/pkg/resttest"
	"github.com/roach88/resttest/pkg/schema"
)

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No suite files found
	ErrCodeLoadFailed  = "E004" // Suite file could not be parsed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeSchema      = "E006" // Schema file failed to compile or lacks a type
	ErrCodeTestFailed  = "E007" // One or more scenarios failed
	ErrCodeTargetError = "E008" // Database or fixtures could not be prepared
)

// LoadError represents an error that occurred while loading a suite.
type LoadError struct {
	File    string
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadedSuite is a suite file together with its resolved scenarios.
type LoadedSuite struct {
	File      *suite.File
	Scenarios []resttest.Scenario
}

// FindSuiteFiles expands args into suite file paths. Directories are walked
// for .yaml and .yml files; a walked file whose top level is a mapping
// without a scenarios key (a fixtures file, say) is skipped. Files named
// explicitly are always kept. filter, when set, is a glob matched against the
// file name without extension. The result is sorted.
func FindSuiteFiles(args []string, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("invalid filter pattern: %v", err)}
		}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, &LoadError{File: arg, Code: ErrCodeNotFound, Message: "path not found"}
		}
		if !info.IsDir() {
			if matchesFilter(arg, filter) {
				files = append(files, arg)
			}
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isSuiteFile(path) || !matchesFilter(path, filter) || !hasScenarios(path) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, &LoadError{File: arg, Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
	}

	slices.Sort(files)
	files = slices.Compact(files)
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no suite files found in %s", strings.Join(args, ", "))}
	}
	return files, nil
}

func isSuiteFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// hasScenarios reports whether path could be a suite. Unreadable or
// malformed files count as suites so that loading reports the problem.
func hasScenarios(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return true
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return true
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "scenarios" {
			return true
		}
	}
	return false
}

func matchesFilter(path, filter string) bool {
	if filter == "" {
		return true
	}
	base := filepath.Base(path)
	matched, _ := filepath.Match(filter, strings.TrimSuffix(base, filepath.Ext(base)))
	return matched
}

// LoadSuite parses a suite file and resolves its scenarios, compiling the
// referenced schema file.
func LoadSuite(path string) (*LoadedSuite, error) {
	f, err := suite.Load(path)
	if err != nil {
		return nil, convertLoadError(path, err)
	}
	scenarios, err := f.Resolve()
	if err != nil {
		return nil, convertLoadError(path, err)
	}
	return &LoadedSuite{File: f, Scenarios: scenarios}, nil
}

// convertLoadError keeps CUE positions so editors can jump to the schema.
func convertLoadError(path string, err error) *LoadError {
	var schemaErr *schema.Error
	if errors.As(err, &schemaErr) {
		return &LoadError{File: path, Code: ErrCodeSchema, Message: err.Error(), Pos: schemaErr.Pos}
	}
	return &LoadError{File: path, Code: ErrCodeLoadFailed, Message: err.Error()}
}
