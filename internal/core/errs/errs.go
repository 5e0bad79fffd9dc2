package errs

import (
	"errors"
	"fmt"
)

// Kind sentinels for the auction engine. Every error returned by a core
// operation wraps exactly one of these, so callers can dispatch with
// errors.Is without parsing messages.
var (
	// ErrValidation indicates malformed input (missing field, non-positive
	// value, bad date ordering). Never retried automatically.
	ErrValidation = errors.New("validation error")
	// ErrInvalidState indicates an operation against a shipment/offer that
	// is not in the required state. The caller must refresh before retrying.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict indicates a lost race against another concurrent
	// transition on the same entity.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates an unknown shipment/offer/penalty id.
	ErrNotFound = errors.New("not found")
	// ErrDownstream indicates a notification/realtime publish failure. It is
	// logged and retried by the dispatcher, never rolled back into a
	// settlement transaction.
	ErrDownstream = errors.New("downstream error")
)

// Validationf formats a message and tags it as a validation error.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InvalidStatef formats a message and tags it as an invalid-state error.
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Conflictf formats a message and tags it as a conflict error.
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NotFoundf formats a message and tags it as a not-found error.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Downstreamf formats a message and tags it as a downstream error.
func Downstreamf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDownstream, fmt.Sprintf(format, args...))
}
