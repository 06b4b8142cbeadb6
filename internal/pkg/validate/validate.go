package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/estore-auth/internal/domain"
	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Field names in reports use the
// json tag so they match the request body.
var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return val
}

// Issue describes one failed rule.
type Issue struct {
	Path    []string `json:"path"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
}

// Detail groups issues by request location.
type Detail struct {
	Path   string  `json:"path"`
	Errors []Issue `json:"errors"`
}

// Struct validates the given request body using its validate tags.
// Failures are returned as a domain validation error carrying []Detail.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	issues := make([]Issue, 0, len(ve))
	for _, fe := range ve {
		issues = append(issues, Issue{
			Path:    []string{fe.Field()},
			Code:    fe.Tag(),
			Message: message(fe),
		})
	}
	return domain.Validation([]Detail{{Path: "body", Errors: issues}})
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email"
	case "min":
		return fmt.Sprintf("%s must contain at least %s character(s)", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s character(s)", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must contain exactly %s character(s)", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", fe.Field())
	default:
		return fmt.Sprintf("%s failed '%s'", fe.Field(), fe.Tag())
	}
}
