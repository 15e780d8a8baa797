// Package validate wraps go-playground/validator with field names taken from json/yaml tags.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator validates config structs and request bodies.
type Validator struct {
	v *validator.Validate
}

// New returns a validator that reports json (or yaml) field names.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "yaml"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return &Validator{v: v}
}

// Validate satisfies echo.Validator and is used for config structs as well.
func (v *Validator) Validate(i any) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return newError(verrs)
	}
	return err
}

// Error lists invalid fields keyed by their namespaced name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func newError(errs validator.ValidationErrors) *Error {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		name := fe.Namespace()
		if i := strings.Index(name, "."); i >= 0 {
			name = name[i+1:]
		}
		switch fe.Tag() {
		case "required":
			fields[name] = fmt.Sprintf("%s is required", name)
		case "url":
			fields[name] = fmt.Sprintf("%s must be a valid URL", name)
		case "min", "gte":
			fields[name] = fmt.Sprintf("%s must be at least %s", name, fe.Param())
		case "max", "lte":
			fields[name] = fmt.Sprintf("%s must be at most %s", name, fe.Param())
		case "gt":
			fields[name] = fmt.Sprintf("%s must be greater than %s", name, fe.Param())
		case "oneof":
			fields[name] = fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
		case "len":
			fields[name] = fmt.Sprintf("%s must have exactly %s items", name, fe.Param())
		default:
			fields[name] = fmt.Sprintf("%s is invalid", name)
		}
	}
	return &Error{Fields: fields}
}
