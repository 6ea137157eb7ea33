package inventory

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// check validates a parameter struct and turns the first failure into a
// ValidationError.
func (e *Engine) check(params any) error {
	err := e.validate.Struct(params)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		fe := errs[0]
		return newError(KindValidation, "%s %s", fe.Field(), validationMessage(fe))
	}
	return newError(KindValidation, "invalid input: %v", err)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "unique":
		return "must not contain duplicates"
	case "alphanum":
		return "must contain only letters and digits"
	}
	return "is invalid"
}
