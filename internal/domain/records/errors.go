package records

import "errors"

var (
	ErrNotFound   = errors.New("medical record not found")
	ErrForbidden  = errors.New("operation not permitted")
	ErrValidation = errors.New("validation failed")
	ErrDuplicate  = errors.New("appointment already has a medical record")
)
