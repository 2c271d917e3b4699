package availability

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers missing windows and windows owned by someone else.
	ErrNotFound = errors.New("availability window not found")

	// ErrForbidden means the role may not manage availability.
	ErrForbidden = errors.New("operation not permitted")

	// ErrValidation wraps rejected input fields.
	ErrValidation = errors.New("validation failed")
)

// OverlapError reports a window that collides with an existing one on the
// same day.
type OverlapError struct {
	Existing Window
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("window overlaps existing %s window %s-%s",
		e.Existing.Day, e.Existing.Start, e.Existing.End)
}
