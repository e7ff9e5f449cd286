package store

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a requested secret does not exist in the backend.
//
// Backends return this from Get and Delete when the name resolves to
// nothing. It is distinct from permission failures: a backend that hides
// forbidden secrets behind not-found responses should still return
// AccessDeniedError when it can tell the difference.
type NotFoundError struct {
	// Store is the backend type that was searched.
	Store string

	// Name is the secret name that could not be found.
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("secret %q not found in %s", e.Name, e.Store)
}

// AccessDeniedError indicates the backend rejected the configured
// credentials or the credentials lack permission for the operation.
type AccessDeniedError struct {
	// Store is the backend type that denied access.
	Store string

	// Message describes the denial in backend terms, including any
	// suggestion for fixing the credential or policy.
	Message string
}

func (e AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied by %s: %s", e.Store, e.Message)
}

// UnavailableError indicates the backend could not be reached or failed
// internally. The wrapped error carries the transport-level detail.
type UnavailableError struct {
	// Store is the backend type that was unreachable.
	Store string

	// Err is the underlying transport or backend failure.
	Err error
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Store, e.Err)
}

func (e UnavailableError) Unwrap() error {
	return e.Err
}

// InvalidNameError indicates a secret name the store cannot accept: empty,
// too long, or containing characters the backend forbids.
type InvalidNameError struct {
	// Name is the rejected secret name.
	Name string

	// Reason says what rule the name broke.
	Reason string
}

func (e InvalidNameError) Error() string {
	return fmt.Sprintf("invalid secret name %q: %s", e.Name, e.Reason)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsAccessDenied reports whether err is, or wraps, an AccessDeniedError.
func IsAccessDenied(err error) bool {
	var ad AccessDeniedError
	return errors.As(err, &ad)
}

// IsUnavailable reports whether err is, or wraps, an UnavailableError.
func IsUnavailable(err error) bool {
	var ua UnavailableError
	return errors.As(err, &ua)
}

// IsInvalidName reports whether err is, or wraps, an InvalidNameError.
func IsInvalidName(err error) bool {
	var in InvalidNameError
	return errors.As(err, &in)
}
