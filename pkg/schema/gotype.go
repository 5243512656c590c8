package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/resttest/pkg/resttest"
)

// GoType validates bodies by decoding them into T and running validator
// struct tags on the result. Slices, arrays and maps are validated element
// by element.
type GoType[T any] struct {
	strict   bool
	validate *validator.Validate
}

var _ resttest.BodyType = (*GoType[struct{}])(nil)

// Option configures a GoType.
type Option func(*options)

type options struct {
	strict   bool
	validate *validator.Validate
}

// Strict rejects JSON object keys that do not map to a struct field.
func Strict() Option {
	return func(o *options) { o.strict = true }
}

// WithValidator uses v instead of a fresh validator, e.g. one with custom
// validations registered.
func WithValidator(v *validator.Validate) Option {
	return func(o *options) { o.validate = v }
}

// Of returns a BodyType for T.
func Of[T any](opts ...Option) *GoType[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.validate == nil {
		o.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &GoType[T]{strict: o.strict, validate: o.validate}
}

// Name returns the Go type name of T.
func (g *GoType[T]) Name() string {
	return reflect.TypeFor[T]().String()
}

// Validate decodes body into T and validates it.
func (g *GoType[T]) Validate(body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	if g.strict {
		dec.DisallowUnknownFields()
	}

	var v T
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode %s: %w", g.Name(), err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: unexpected data after JSON value", g.Name())
	}

	return g.validateValue(reflect.ValueOf(v), "")
}

func (g *GoType[T]) validateValue(v reflect.Value, at string) error {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		if err := g.validate.Struct(v.Interface()); err != nil {
			return describe(at, err)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := g.validateValue(v.Index(i), fmt.Sprintf("%s[%d]", at, i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := g.validateValue(iter.Value(), fmt.Sprintf("%s[%v]", at, iter.Key())); err != nil {
				return err
			}
		}
	}
	return nil
}

// FieldErrors lists the struct fields that failed validation.
type FieldErrors struct {
	Messages []string
	Err      validator.ValidationErrors
}

func (e *FieldErrors) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *FieldErrors) Unwrap() error {
	return e.Err
}

// describe renders validator errors as "Field: failed 'tag'" messages.
func describe(at string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if at != "" {
			field = at + "." + field
		}
		tag := fe.Tag()
		if fe.Param() != "" {
			tag += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", field, tag))
	}
	return &FieldErrors{Messages: msgs, Err: verrs}
}
