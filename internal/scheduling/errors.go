package scheduling

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotUnavailable means the requested instant is not currently open
	// for that caregiver, either because it was never published or because
	// another booking claimed it first.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrNotFound means an appointment, availability record or user id did
	// not resolve.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the acting identity has no rights over the target
	// record.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports a malformed request field. The boundary layer maps
// it to a bad-request response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
