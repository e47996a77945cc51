package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError is one entry of a 400 response's details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type messageFunc func(field, param string) string

var tagMessages = map[string]messageFunc{
	"required": func(f, _ string) string { return f + " is required" },
	"email":    func(string, string) string { return "Invalid email format" },
	"min":      func(f, p string) string { return fmt.Sprintf("%s must be at least %s characters", f, p) },
	"max":      func(f, p string) string { return fmt.Sprintf("%s must not exceed %s characters", f, p) },
	"oneof":    func(f, p string) string { return f + " must be one of: " + p },
}

// ParseValidationErrors turns binding errors into response details.
// Errors that did not come from the validator yield nil.
func ParseValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return msg(fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}
