// Package validation wraps go-playground/validator with field names taken from
// json/yaml tags and human-readable, field-level messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "yaml"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return toSnakeCase(f.Name)
	})
	return v
}

// FieldError is a single failed constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors holds every failed constraint of one Struct call.
type Errors struct {
	Errors []FieldError `json:"errors"`
}

func (v *Errors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		messages[i] = e.Message
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Struct validates s against its `validate` tags and returns *Errors on
// failure.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &Errors{}
	for _, e := range fieldErrs {
		field := fieldPath(e.Namespace())
		out.Errors = append(out.Errors, FieldError{
			Field:   field,
			Message: formatMessage(field, e),
		})
	}
	return out
}

// fieldPath drops the root struct name from a namespace such as
// "StructuredQuery.target.host".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatMessage(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max", "lte":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a host:port address", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}

func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				result.WriteByte('_')
			}
			result.WriteByte(byte(r + 'a' - 'A'))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
