package transactions

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type ErrorKind string

const (
	// KindStructural: malformed payload. No store access was attempted.
	KindStructural ErrorKind = "structural"
	// KindValidation: a named check failed. Nothing was written.
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	// KindCommitFailed: a write step failed and the unit was rolled back.
	KindCommitFailed ErrorKind = "commit_failed"
	KindInternal     ErrorKind = "internal"
	// KindUnauthorized: missing or rejected credentials (401/403).
	KindUnauthorized ErrorKind = "unauthorized"
)

// KindForStatus classifies a bare HTTP status raised outside this package.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == fiber.StatusNotFound:
		return KindNotFound
	case status == fiber.StatusUnauthorized, status == fiber.StatusForbidden:
		return KindUnauthorized
	case status >= fiber.StatusInternalServerError:
		return KindInternal
	default:
		return KindStructural
	}
}

// Error is the failure half of every service result.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Details map[string]any
	// Step names the commit step for KindCommitFailed.
	Step string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func structuralError(details map[string]any, format string, args ...any) *Error {
	return &Error{
		Kind:    KindStructural,
		Status:  fiber.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
		Details: details,
	}
}

func validationError(status int, details map[string]any, format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  status,
		Message: fmt.Sprintf(format, args...),
		Details: details,
	}
}

func notFoundError(format string, args ...any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Status:  fiber.StatusNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

func commitError(step string, err error) *Error {
	return &Error{
		Kind:    KindCommitFailed,
		Status:  fiber.StatusInternalServerError,
		Message: fmt.Sprintf("commit failed at %s, no changes were applied", step),
		Details: map[string]any{"step": step},
		Step:    step,
		Err:     err,
	}
}

func internalError(op string, err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Status:  fiber.StatusInternalServerError,
		Message: "internal error during " + op,
		Err:     err,
	}
}

// AsError returns err as *Error, treating anything untyped as internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internalError("request", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
