// internal/apperr/apperr.go

// Package apperr holds the error taxonomy shared by the social and chat layers.
// Callers classify with errors.Is / errors.As; every layer wraps with %w.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by any mutation attempted without a current user.
	// It is raised before the persistence service is contacted.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrValidation covers empty bodies, malformed ids and self-targeted requests.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the row exists but the caller may not act on it.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyRequested means an active (pending or accepted) relationship already binds the pair.
	ErrAlreadyRequested = errors.New("relationship already requested")

	// ErrRelationNotFound means no accepted relationship exists for the pair.
	ErrRelationNotFound = errors.New("relation not found")

	// ErrInvalidTransition means the row is not in the status the action requires.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Validation wraps ErrValidation with a human readable reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// TransientError is any failure surfaced by the persistence or realtime service.
// It is propagated to callers and never retried at this layer.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError for op. A nil err stays nil, and errors that
// already belong to the taxonomy are returned unchanged.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err came from the persistence or realtime service.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsDomain reports whether err is one of the taxonomy sentinels.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrNotAuthenticated, ErrValidation, ErrNotFound, ErrForbidden,
		ErrAlreadyRequested, ErrRelationNotFound, ErrInvalidTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
