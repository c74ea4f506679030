package model

import "errors"

// Error kinds surfaced by the service layer. Callers wrap them with %w and the
// HTTP layer maps them to status codes with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("access denied")
	ErrNotFound        = errors.New("not found")
	ErrDependency      = errors.New("dependency failure")
)
