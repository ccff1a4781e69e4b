package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator with the outreach_email tag registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("outreach_email", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// FieldError describes one failed field check.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

// StructError collects the field checks that failed for a struct.
type StructError struct {
	Fields []FieldError
}

func (e *StructError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		switch f.Tag {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", f.Field))
		case "outreach_email", "email":
			parts = append(parts, fmt.Sprintf("%s must be a valid email address", f.Field))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s check", f.Field, f.Tag))
		}
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Struct validates s against its `validate` tags and returns a *StructError on failure.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &StructError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Tag: fe.Tag()})
	}
	return out
}
