package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"taskboard/internal/core/errs"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func v() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// check validates in against its `validate` tags and turns the first failure
// into a Validation error with a readable message.
func check(in any) error {
	err := v().Struct(in)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return errs.Validation(err.Error())
	}
	fe := ves[0]
	switch fe.Tag() {
	case "required":
		return errs.Validation(fmt.Sprintf("%s is required", fe.Field()))
	case "email":
		return errs.Validation(fmt.Sprintf("%s must be a valid email", fe.Field()))
	case "min":
		return errs.Validation(fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
	case "max":
		return errs.Validation(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	default:
		return errs.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}
