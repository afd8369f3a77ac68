package dto

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/inventory-auth/pkg/errorutil"
)

var (
	validate = newValidator()

	hasDigit   = regexp.MustCompile(`[0-9]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasSpecial = regexp.MustCompile(`[@#$%^&+=!*?_.-]`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		pw := fl.Field().String()
		return hasDigit.MatchString(pw) && hasLower.MatchString(pw) &&
			hasUpper.MatchString(pw) && hasSpecial.MatchString(pw)
	})
	return v
}

// Validate checks struct tags and returns a field-level validation error.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	violations, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewBadRequest("invalid payload")
	}

	fields := make(map[string]string, len(violations))
	for _, violation := range violations {
		field := violation.Field()
		if _, seen := fields[field]; seen {
			continue
		}
		fields[field] = message(violation)
	}
	return apperrors.NewValidationError(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "strongpassword":
		return "must contain a digit, a lowercase letter, an uppercase letter and a special character"
	case "eqfield":
		return "must match " + fe.Param()
	case "nefield":
		return "must differ from " + fe.Param()
	default:
		return "is invalid"
	}
}
