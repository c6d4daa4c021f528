// Package errs defines the error taxonomy shared by the editor, the
// rule-generation collaborators and the CRM client.
//
//   - ValidationError: user input rejected before any network call.
//   - ServiceError: a remote collaborator failed (transport or non-2xx).
//   - rules.ErrPathNotFound: a programming error, see package rules.
//
// Nothing is retried automatically; every failure is terminal for the one
// invocation that produced it.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input with details about what failed.
type ValidationError struct {
	Field   string // Name of the offending input
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed [%s]: %s", e.Field, e.Message)
}

// Invalid is a shorthand constructor.
func Invalid(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

// ServiceError reports a failed call to a remote collaborator. Status is the
// HTTP status when one was received, 0 for transport failures.
type ServiceError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error { return e.Err }

// Service wraps err as a ServiceError for op.
func Service(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Op: op, Err: err}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsService reports whether err is, or wraps, a ServiceError.
func IsService(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
