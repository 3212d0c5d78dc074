// Package apperror defines the error vocabulary shared by the slot, the
// repository and the HTTP layer.
//
// Every typed error wraps one of the sentinels below, so callers match with
// errors.Is and extract the human-readable message with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	// ErrLaunch marks a test process that could not be started at all.
	// It is the only error a slot hands back to its scheduler.
	ErrLaunch = errors.New("launch failed")
	// ErrCheck marks a check that errored instead of producing a verdict.
	ErrCheck = errors.New("check error")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// LaunchFailed reports that the command for test could not be spawned.
func LaunchFailed(test string, cause error) *AppError {
	return &AppError{
		Err:     ErrLaunch,
		Message: fmt.Sprintf("launching %s", test),
		Cause:   cause,
	}
}

// CheckFailed reports a check implementation that returned an error or panicked.
func CheckFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrCheck,
		Message: "check error",
		Cause:   cause,
	}
}
