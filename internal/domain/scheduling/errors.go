package scheduling

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both truly missing appointments and appointments
	// outside the caller's scope, so existence is never leaked.
	ErrNotFound = errors.New("appointment not found")

	// ErrForbidden means the role may never perform the requested operation.
	ErrForbidden = errors.New("operation not permitted")

	// ErrValidation wraps rejected input fields.
	ErrValidation = errors.New("validation failed")

	// ErrImmutable means the appointment has left the state in which its
	// fields may be edited.
	ErrImmutable = errors.New("appointment can no longer be edited")
)

// InvalidTransitionError reports a status change the lifecycle does not
// permit, including idempotent re-requests of the current status.
type InvalidTransitionError struct {
	Current   Status
	Requested Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition appointment from %s to %s", e.Current, e.Requested)
}
