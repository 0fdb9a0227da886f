package controller

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/SakuraBurst/bored/internal/bored/types"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

var ErrInvalidInput = errors.New("invalid input")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names, the ones clients actually send
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// validate the string inside, an absent or null avatar is omitted
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if n, ok := field.Interface().(types.NullableString); ok && n.Value != nil {
			return *n.Value
		}
		return nil
	}, types.NullableString{})
	return v
}

// validateStruct returns ErrInvalidInput wrapped with one message per failed field.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errors.Wrap(err, "validate.Struct failed: ")
	}
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed validation: %s", e.Field(), e.Tag()))
	}
	return errors.Wrap(ErrInvalidInput, strings.Join(msgs, "; "))
}
