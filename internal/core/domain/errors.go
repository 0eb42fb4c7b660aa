package domain

import (
	"errors"
	"fmt"
)

// Error kinds for every remote call. Use errors.Is against these.
var (
	ErrNetworkFailure    = errors.New("network failure")
	ErrRejected          = errors.New("request rejected")
	ErrNotFound          = errors.New("not found")
	ErrInvalidCredential = errors.New("invalid credential")
)

var ErrNotAuthenticated = errors.New("not authenticated")

// RemoteError describes a failed call to the backend.
type RemoteError struct {
	Kind    error
	Op      string
	Status  int
	Message string
	Fields  FieldErrors
	Err     error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %v (status %d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, msg)
}

func (e *RemoteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the taxonomy kind of err, or nil when err is not a remote failure.
func KindOf(err error) error {
	for _, kind := range []error{ErrNetworkFailure, ErrInvalidCredential, ErrNotFound, ErrRejected} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// AsRemote extracts the *RemoteError from err, if any.
func AsRemote(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
