package departments

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/resttest/internal/store"
)

// ValidationError lists problems with a request, keyed by field.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {msg}}}
}

// decodeError turns a JSON decoding failure into a ValidationError.
func decodeError(err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fieldError(typeErr.Field, fmt.Sprintf("Input should be a valid %s.", typeErr.Type.Kind()))
	}
	return fieldError("non_field_errors", "Invalid JSON: "+err.Error())
}

// validationMessages maps validator tags to client-facing messages.
var validationMessages = map[string]string{
	"required": "This field is required.",
	"max":      "Ensure this field has no more than %s characters.",
}

// structError turns validator errors into a ValidationError keyed by JSON
// field name.
func structError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: map[string][]string{}}
	for _, fe := range verrs {
		msg, ok := validationMessages[fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("Failed the %q rule.", fe.Tag())
		}
		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, fe.Param())
		}
		out.Fields[fe.Field()] = append(out.Fields[fe.Field()], msg)
	}
	return out
}

// errorStatus maps handler errors to responses:
//
//	store.ErrNotFound      -> 404
//	*ValidationError       -> 400
//	*store.DuplicateError  -> 400
//	*store.OrderError      -> 400
//	anything else          -> 500
func errorStatus(err error) (int, any) {
	var (
		verr     *ValidationError
		dupErr   *store.DuplicateError
		orderErr *store.OrderError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Object does not exist"
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Fields
	case errors.As(err, &dupErr):
		return http.StatusBadRequest, map[string][]string{
			dupErr.Field: {fmt.Sprintf("Department with this %s already exists.", dupErr.Field)},
		}
	case errors.As(err, &orderErr):
		return http.StatusBadRequest, map[string][]string{
			"order_by": {fmt.Sprintf("Cannot order by %q.", orderErr.Field)},
		}
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
