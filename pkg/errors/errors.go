// Package errors defines the sentinels the store and services agree on.
// Constructors wrap a sentinel together with the resource or constraint
// that produced it, so callers match with Is and still get a useful message.
package errors

import (
	"errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// a unique natural key is already taken
	ErrConflict = errors.New("conflict")
	// a foreign key or check constraint rejected a write
	ErrConstraint = errors.New("constraint violation")
)

// Error is a sentinel annotated with the subject it applies to
type Error struct {
	Kind error
	// resource, field or constraint name
	Subject string
	Detail  string
}

func (e *Error) Error() string {
	switch {
	case e.Kind == ErrNotFound:
		return e.Subject + " not found"
	case e.Kind == ErrConflict:
		return e.Subject + " already exists: conflict"
	case e.Detail != "":
		return e.Subject + ": " + e.Detail + ": " + e.Kind.Error()
	default:
		return e.Subject + ": " + e.Kind.Error()
	}
}

func (e *Error) Unwrap() error { return e.Kind }

// NotFoundError reports a missing resource
func NotFoundError(resource string) error {
	return &Error{Kind: ErrNotFound, Subject: resource}
}

// InvalidInputError reports a value the store refused
func InvalidInputError(field, reason string) error {
	return &Error{Kind: ErrInvalidInput, Subject: field, Detail: reason}
}

// ConflictError names the unique constraint that collided
func ConflictError(constraint string) error {
	return &Error{Kind: ErrConflict, Subject: constraint}
}

// ConstraintError names the violated foreign key or check
func ConstraintError(constraint string) error {
	return &Error{Kind: ErrConstraint, Subject: constraint}
}

// Subject returns the resource or constraint recorded in err, or ""
func Subject(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Subject
	}
	return ""
}

// Expected reports whether err is a domain outcome rather than a failure
// of the store itself
func Expected(err error) bool {
	return Is(err, ErrNotFound) || Is(err, ErrConflict) ||
		Is(err, ErrConstraint) || Is(err, ErrInvalidInput)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
