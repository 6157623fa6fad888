package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their yaml key when they have one.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	if err := validate.RegisterValidation("finite", isFinite); err != nil {
		panic(err)
	}
}

func isFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		v := fl.Field().Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	default:
		return true
	}
}

// FieldError is a field that failed validation.
type FieldError struct {
	Field  string
	Tag    string
	Param  string
	Reason string
	// Err is the cause reported by a custom rule, if any.
	Err error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Struct validates v against its `validate` tags. The first failing field is
// returned as a *FieldError.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	return formatValidationError(validate.Struct(v))
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		fe := &FieldError{Field: e.Field(), Tag: e.Tag(), Param: e.Param()}
		switch fe.Tag {
		case "required":
			fe.Reason = "field is required"
		case "gt":
			fe.Reason = "must be greater than " + fe.Param
		case "gte", "min":
			fe.Reason = "must be at least " + fe.Param
		case "lt":
			fe.Reason = "must be less than " + fe.Param
		case "lte", "max":
			fe.Reason = "must not exceed " + fe.Param
		case "oneof":
			fe.Reason = "must be one of [" + fe.Param + "]"
		case "finite":
			fe.Reason = "must be a finite number"
		case "dive":
			// For array elements
			fe.Reason = "invalid element in array"
		default:
			fe.Reason = fmt.Sprintf("validation failed (%s)", fe.Tag)
		}
		return fe
	}

	return err
}
