package identity

import "errors"

var (
	ErrNotFound           = errors.New("account not found")
	ErrForbidden          = errors.New("operation not permitted")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
)
