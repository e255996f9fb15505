// Package apperr defines the error taxonomy shared by all engine services.
// Callers classify failures with errors.Is; services wrap these sentinels
// with operation context via fmt.Errorf and %w.
package apperr

import "errors"

var (
	// ErrNotFound covers both a missing entity and an entity owned by a
	// different user. The two cases are indistinguishable on purpose.
	ErrNotFound = errors.New("not found")

	ErrAlreadyCompleted = errors.New("task already completed")
	ErrNotCompleted     = errors.New("task not completed")
	ErrAlreadyPromoted  = errors.New("already promoted")
	ErrCannotPromote    = errors.New("cannot promote")
	ErrValidation       = errors.New("validation failed")
	ErrAccessDenied     = errors.New("access denied")

	// ErrTransientStore marks a retryable infrastructure failure. Only the
	// inbox soft-delete path retries; everywhere else it surfaces as-is.
	ErrTransientStore = errors.New("transient store error")
)
