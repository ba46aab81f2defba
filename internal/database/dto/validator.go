package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"vance/internal/common"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks s against its validate tags. Failures are returned as a
// common.ErrorValidation error whose message names the first bad field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return fmt.Errorf("error validating request: %w", err)
	}
	return &common.Error{Kind: common.ErrorValidation, Message: describe(fieldErrors[0])}
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", field, fe.Param())
	case "numeric":
		return field + " must contain only digits"
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
