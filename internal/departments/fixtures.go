package departments

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/roach88/resttest/internal/store"
)

// fixtureFile is the YAML layout of a fixtures file:
//
//	departments:
//	  - id: 00000000-0000-7000-8000-000000000001
//	    title: department-1
type fixtureFile struct {
	Departments []struct {
		ID    string `yaml:"id"`
		Title string `yaml:"title"`
	} `yaml:"departments"`
}

// LoadFixtures reads departments to seed from a YAML file.
func LoadFixtures(path string) ([]store.Department, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures parses fixtures YAML. Unknown keys are rejected.
func ParseFixtures(data []byte) ([]store.Department, error) {
	var f fixtureFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	deps := make([]store.Department, 0, len(f.Departments))
	for i, d := range f.Departments {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("departments[%d]: invalid id %q: %w", i, d.ID, err)
		}
		if d.Title == "" {
			return nil, fmt.Errorf("departments[%d]: title is required", i)
		}
		deps = append(deps, store.Department{ID: id, Title: d.Title})
	}
	return deps, nil
}

// Seed inserts deps through q.
func Seed(ctx context.Context, q store.Queryer, deps []store.Department) error {
	queries := store.NewDepartments(q)
	for _, d := range deps {
		if err := queries.Create(ctx, d); err != nil {
			return fmt.Errorf("seed department %s: %w", d.ID, err)
		}
	}
	return nil
}
