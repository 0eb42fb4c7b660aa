// Package validation wraps go-playground/validator so that failures come
// back as a field-name → messages map keyed by JSON field names, the shape
// forms use to annotate individual inputs.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shopassist/shopchat/internal/core/domain"
)

// Error is returned by Struct when one or more fields fail validation.
type Error struct {
	Fields domain.FieldErrors
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, list := range e.Fields {
		msgs = append(msgs, list...)
	}
	return strings.Join(msgs, "; ")
}

// Validator validates structs tagged with `validate:"..."`.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator that reports fields by their json name.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct validates i. A nil result means i is valid; otherwise the error is
// an *Error unless i could not be validated at all.
func (val *Validator) Struct(i any) error {
	err := val.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make(domain.FieldErrors, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = append(fields[fe.Field()], fieldError(fe))
	}
	return &Error{Fields: fields}
}

// Fields returns the field errors carried by err, or nil.
func Fields(err error) domain.FieldErrors {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// fieldError converts a single FieldError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure %s has at least %s characters.", field, fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "eqfield":
		return "Passwords do not match"
	case "datetime":
		return "Date has wrong format. Use YYYY-MM-DD."
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
