package domain

import "errors"

// Error kinds. Every error the core returns to the transport layer wraps
// exactly one of these.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrInvalid         = errors.New("invalid input")
)

// Error is a user-facing failure. Its message is safe to return to clients
// and Field names the offending input, if any.
type Error struct {
	kind  error
	Field string
	msg   string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the sentinel the error belongs to.
func (e *Error) Kind() error { return e.kind }

func newError(kind error, field, msg string) *Error {
	return &Error{kind: kind, Field: field, msg: msg}
}

// Invalid builds a validation failure for field.
func Invalid(field, msg string) error {
	return newError(ErrInvalid, field, msg)
}

var (
	ErrInvalidCredentials = newError(ErrUnauthenticated, "", "Invalid credentials")
	ErrSessionInvalid     = newError(ErrUnauthenticated, "", "Authentication required")
	ErrAdminRequired      = newError(ErrForbidden, "", "Admin access required")
	ErrAccountNotFound    = newError(ErrNotFound, "id", "User not found")
	ErrEmailTaken         = newError(ErrConflict, "email", "Email already in use")
	ErrLastAdmin          = newError(ErrConflict, "is_admin", "Cannot remove the last administrator")
	ErrConcurrentUpdate   = newError(ErrConflict, "is_admin", "Account changed concurrently, retry")
	ErrSelfRoleChange     = newError(ErrInvalid, "id", "Cannot change your own admin status")
	ErrSelfDelete         = newError(ErrInvalid, "id", "Cannot delete your own account")
)

// ErrSessionNotFound is returned by session stores for unknown, expired or
// revoked session ids. It never reaches clients.
var ErrSessionNotFound = errors.New("session not found")
