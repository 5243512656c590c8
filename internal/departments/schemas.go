package departments

import (
	_ "embed"

	"github.com/google/uuid"

	"github.com/roach88/resttest/internal/store"
	"github.com/roach88/resttest/pkg/schema"
)

//go:embed schema.cue
var schemaSource []byte

// LoadSchemas compiles the response schemas.
func LoadSchemas() (*schema.Schemas, error) {
	return schema.Compile(schemaSource, "departments/schema.cue")
}

// DepartmentIn is the request body of create and update.
type DepartmentIn struct {
	Title string `json:"title" validate:"required,max=255"`
}

// DepartmentOut is the response body of a single department.
type DepartmentOut struct {
	ID    uuid.UUID `json:"id" validate:"required"`
	Title string    `json:"title" validate:"required"`
}

func toOut(d store.Department) DepartmentOut {
	return DepartmentOut{ID: d.ID, Title: d.Title}
}
