package backend

import "errors"

var (
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("not found")
	ErrInvalidToken       = errors.New("given token not valid for any token type")
)

// FieldError reports request fields that failed server-side checks, keyed by
// JSON field name.
type FieldError struct {
	Fields map[string][]string
}

func (e *FieldError) Error() string { return "invalid fields" }

func fieldError(field, msg string) *FieldError {
	return &FieldError{Fields: map[string][]string{field: {msg}}}
}
