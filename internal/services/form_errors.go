package services

import (
	"fmt"

	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
)

// FormErrorKind classifies why a candidate form was rejected
type FormErrorKind string

const (
	KindMissingFields              FormErrorKind = "MissingFields"
	KindInvalidRegion              FormErrorKind = "InvalidRegion"
	KindInvalidArea                FormErrorKind = "InvalidArea"
	KindInvalidInstitute           FormErrorKind = "InvalidInstitute"
	KindInvalidProfession          FormErrorKind = "InvalidProfession"
	KindInvalidGenderForProfession FormErrorKind = "InvalidGenderForProfession"
	KindFieldConstraintViolation   FormErrorKind = "FieldConstraintViolation"
)

// FormError is an expected validation failure. It unwraps to ErrInvalidInput.
type FormError struct {
	Kind    FormErrorKind
	Field   string   // set for FieldConstraintViolation
	Missing []string // set for MissingFields
	Message string
}

func (e *FormError) Error() string {
	return e.Message
}

func (e *FormError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// Details is the optional payload echoed to clients next to the message
func (e *FormError) Details() map[string]any {
	switch e.Kind {
	case KindMissingFields:
		return map[string]any{"kind": string(e.Kind), "missing": e.Missing}
	case KindFieldConstraintViolation:
		return map[string]any{"kind": string(e.Kind), "field": e.Field}
	default:
		return map[string]any{"kind": string(e.Kind)}
	}
}

// RequestError rejects a whole request with a client-facing message.
// It unwraps to ErrInvalidInput.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

func missingFields(fields []string) *FormError {
	return &FormError{Kind: KindMissingFields, Missing: fields, Message: "Missing required fields"}
}

func catalogError(kind FormErrorKind, message string) *FormError {
	return &FormError{Kind: kind, Message: message}
}

func fieldViolation(field, reason string) *FormError {
	return &FormError{
		Kind:    KindFieldConstraintViolation,
		Field:   field,
		Message: fmt.Sprintf("Invalid %s: %s", field, reason),
	}
}

// ConflictMessage is returned to clients for duplicate natural keys
const ConflictMessage = "A form with this National ID or Phone Number already exists"

// ConflictError reports a natural key that is already taken. It unwraps to ErrConflict.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return apperrors.ErrConflict
}

// ErrConflictingRecord marks a candidate whose national ID or phone number is taken
var ErrConflictingRecord error = &ConflictError{Message: ConflictMessage}

func batchConflict(row int) error {
	return &ConflictError{Message: fmt.Sprintf("%s (row %d of this import)", ConflictMessage, row)}
}
