package models

import (
	"context"
	"errors"
)

// Failure kinds raised by the transform pipeline. Callers match them with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrEngineFailure     = errors.New("engine failure")
	ErrStorageFailure    = errors.New("storage failure")
)

// IsRetryable reports whether a failed invocation may succeed when dispatched again.
// Validation failures need the submitter to fix the job first.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidParameters) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
