package apperr

import "errors"

// Wire codes carried in API error bodies so clients can rebuild the taxonomy.
const (
	CodeNotAuthenticated  = "not_authenticated"
	CodeValidation        = "validation"
	CodeNotFound          = "not_found"
	CodeForbidden         = "forbidden"
	CodeAlreadyRequested  = "already_requested"
	CodeRelationNotFound  = "relation_not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeTransient         = "transient"
	CodeInternal          = "internal"
)

var codes = []struct {
	code string
	err  error
}{
	{CodeNotAuthenticated, ErrNotAuthenticated},
	{CodeValidation, ErrValidation},
	{CodeNotFound, ErrNotFound},
	{CodeForbidden, ErrForbidden},
	{CodeAlreadyRequested, ErrAlreadyRequested},
	{CodeRelationNotFound, ErrRelationNotFound},
	{CodeInvalidTransition, ErrInvalidTransition},
}

// Code returns the wire code for err.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	if IsTransient(err) {
		return CodeTransient
	}
	return CodeInternal
}

// FromCode rebuilds an error received from the API. Unknown codes and server-side
// failures become TransientErrors.
func FromCode(code, msg string) error {
	for _, c := range codes {
		if c.code == code {
			return &remoteError{msg: msg, kind: c.err}
		}
	}
	return &TransientError{Op: "remote", Err: errors.New(msg)}
}

type remoteError struct {
	msg  string
	kind error
}

func (e *remoteError) Error() string { return e.msg }
func (e *remoteError) Unwrap() error { return e.kind }
