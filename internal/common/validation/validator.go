package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	personaPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Validator returns the shared validator. Field names in errors come from
// json tags, and the "persona" tag accepts lower-case kebab identifiers.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("persona", func(fl validator.FieldLevel) bool {
			return personaPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// StructError lists every failed field of a ValidateStruct call.
type StructError struct {
	Fields []ValidationError
}

func (e *StructError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct runs struct-tag validation and returns a *StructError on
// failure.
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &StructError{Fields: make([]ValidationError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, ValidationError{
			Field:   trimRoot(fe.Namespace()),
			Message: message(fe),
			Code:    strings.ToUpper(fe.Tag()),
		})
	}
	return out
}

func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is absent", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "persona":
		return "must be a lower-case identifier such as investor or startup-founder"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
