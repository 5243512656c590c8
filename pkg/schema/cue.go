package schema

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/resttest/pkg/resttest"
)

// Error describes a body that does not conform to a schema. Pos points into
// the schema source when CUE can attribute the failure to it.
type Error struct {
	Schema  string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s (%s:%d:%d)", e.Message, e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	return e.Message
}

// Schemas is a compiled CUE source holding one or more definitions.
// A cue.Context is not safe for concurrent use, so access is serialized.
type Schemas struct {
	mu    *sync.Mutex
	value cue.Value
}

// Compile compiles CUE source. filename is used in error positions.
func Compile(src []byte, filename string) (*Schemas, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile %s: %w", filename, formatCUEError("", err))
	}
	return &Schemas{mu: &sync.Mutex{}, value: v}, nil
}

// Load reads and compiles a CUE file.
func Load(path string) (*Schemas, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Compile(src, path)
}

// Type returns a BodyType for the definition at path, e.g. "#DepartmentOut".
// Definitions are closed: fields the definition does not declare are
// rejected.
func (s *Schemas) Type(path string) (*CUE, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := s.value.LookupPath(cue.ParsePath(path))
	if !def.Exists() {
		return nil, fmt.Errorf("schema %s not found", path)
	}
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, formatCUEError(path, err))
	}
	return &CUE{name: path, mu: s.mu, def: def}, nil
}

// Must panics if err is non-nil. It is intended for package-level variables
// in tests.
func Must(t *CUE, err error) *CUE {
	if err != nil {
		panic(err)
	}
	return t
}

// CUE validates bodies against a CUE definition.
type CUE struct {
	name string
	mu   *sync.Mutex
	def  cue.Value
}

var _ resttest.BodyType = (*CUE)(nil)

// Name returns the definition path.
func (c *CUE) Name() string {
	return c.name
}

// Validate checks that body is JSON and that it unifies with the definition
// to a concrete value.
func (c *CUE) Validate(body []byte) error {
	expr, err := cuejson.Extract(c.name, body)
	if err != nil {
		return &Error{Schema: c.name, Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.def.Context().BuildExpr(expr)
	if err := data.Err(); err != nil {
		return formatCUEError(c.name, err)
	}

	unified := c.def.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(c.name, err)
	}
	return nil
}

// formatCUEError flattens a CUE error list into one message, keeping the
// position of the first error.
func formatCUEError(schema string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Schema: schema, Message: err.Error()}
	}

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}

	var pos token.Pos
	if positions := errors.Positions(errs[0]); len(positions) > 0 {
		pos = positions[0]
	}

	return &Error{
		Schema:  schema,
		Message: strings.Join(msgs, "; "),
		Pos:     pos,
	}
}
