package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const departmentSchema = `
#UUID: =~"^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$"

#DepartmentOut: {
	id:    #UUID
	title: string & !=""
}

#DepartmentList: [...#DepartmentOut]
`

const (
	deptA = `{"id":"0b7e1c5e-6e0d-4d8f-9a51-5b8e3a9f0c11","title":"Engineering"}`
	deptB = `{"id":"6f1d2c3b-4a59-4e6f-8a7b-9c0d1e2f3a4b","title":"Sales"}`
)

func compileDepartments(t *testing.T) *Schemas {
	t.Helper()
	s, err := Compile([]byte(departmentSchema), "departments.cue")
	require.NoError(t, err)
	return s
}

func TestCUE_Validate(t *testing.T) {
	schemas := compileDepartments(t)
	out := Must(schemas.Type("#DepartmentOut"))
	list := Must(schemas.Type("#DepartmentList"))

	tests := []struct {
		name string
		typ  *CUE
		body string
		ok   bool
	}{
		{"object ok", out, deptA, true},
		{"list ok", list, "[" + deptA + "," + deptB + "]", true},
		{"empty list ok", list, "[]", true},
		{"bad uuid", out, `{"id":"123","title":"Engineering"}`, false},
		{"missing title", out, `{"id":"0b7e1c5e-6e0d-4d8f-9a51-5b8e3a9f0c11"}`, false},
		{"empty title", out, `{"id":"0b7e1c5e-6e0d-4d8f-9a51-5b8e3a9f0c11","title":""}`, false},
		{"wrong type", out, `{"id":"0b7e1c5e-6e0d-4d8f-9a51-5b8e3a9f0c11","title":[1]}`, false},
		{"extra field", out, `{"id":"0b7e1c5e-6e0d-4d8f-9a51-5b8e3a9f0c11","title":"x","extra":1}`, false},
		{"object for list", list, deptA, false},
		{"bad element", list, `[` + deptA + `,{"id":"x","title":"y"}]`, false},
		{"not json", out, `<html>`, false},
		{"empty body", out, ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Validate([]byte(tt.body))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var schemaErr *Error
			assert.True(t, errors.As(err, &schemaErr), "got %T", err)
		})
	}
}

func TestCUE_Name(t *testing.T) {
	out := Must(compileDepartments(t).Type("#DepartmentOut"))
	assert.Equal(t, "#DepartmentOut", out.Name())
}

func TestSchemas_TypeNotFound(t *testing.T) {
	_, err := compileDepartments(t).Type("#Nope")
	assert.ErrorContains(t, err, "schema #Nope not found")

	assert.Panics(t, func() {
		Must(compileDepartments(t).Type("#Nope"))
	})
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile([]byte("#A: {"), "broken.cue")
	require.Error(t, err)

	var schemaErr *Error
	require.True(t, errors.As(err, &schemaErr))
	assert.True(t, schemaErr.Pos.IsValid())
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.cue")
	require.NoError(t, os.WriteFile(path, []byte(departmentSchema), 0644))

	schemas, err := Load(path)
	require.NoError(t, err)
	out, err := schemas.Type("#DepartmentOut")
	require.NoError(t, err)
	assert.NoError(t, out.Validate([]byte(deptA)))

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.ErrorContains(t, err, "read schema")
}

type departmentOut struct {
	ID    string `json:"id" validate:"required,uuid"`
	Title string `json:"title" validate:"required"`
}

func TestGoType_Validate(t *testing.T) {
	out := Of[departmentOut]()
	list := Of[[]departmentOut]()
	strict := Of[departmentOut](Strict())

	tests := []struct {
		name string
		typ  interface{ Validate([]byte) error }
		body string
		ok   bool
	}{
		{"object ok", out, deptA, true},
		{"extra field allowed", out, `{"id":"0b7e1c5e-6e0d-4d8f-9a51-5b8e3a9f0c11","title":"x","extra":1}`, true},
		{"extra field strict", strict, `{"id":"0b7e1c5e-6e0d-4d8f-9a51-5b8e3a9f0c11","title":"x","extra":1}`, false},
		{"list ok", list, "[" + deptA + "," + deptB + "]", true},
		{"bad uuid", out, `{"id":"123","title":"Engineering"}`, false},
		{"missing title", out, `{"id":"0b7e1c5e-6e0d-4d8f-9a51-5b8e3a9f0c11"}`, false},
		{"wrong type", out, `{"id":"0b7e1c5e-6e0d-4d8f-9a51-5b8e3a9f0c11","title":[1]}`, false},
		{"bad element", list, "[" + deptA + `,{"id":"x","title":"y"}]`, false},
		{"trailing data", out, deptA + deptB, false},
		{"not json", out, `<html>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.Validate([]byte(tt.body))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGoType_FieldErrors(t *testing.T) {
	err := Of[[]departmentOut]().Validate([]byte("[" + deptA + `,{"id":"x","title":""}]`))
	require.Error(t, err)

	var fieldErrs *FieldErrors
	require.True(t, errors.As(err, &fieldErrs))
	assert.Equal(t, []string{
		"[1].departmentOut.ID: failed 'uuid'",
		"[1].departmentOut.Title: failed 'required'",
	}, fieldErrs.Messages)

	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestGoType_Name(t *testing.T) {
	assert.Equal(t, "schema.departmentOut", Of[departmentOut]().Name())
	assert.Equal(t, "[]schema.departmentOut", Of[[]departmentOut]().Name())
}
