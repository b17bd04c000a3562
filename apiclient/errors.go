package apiclient

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindAPI is a non-2xx answer other than 401.
	KindAPI Kind = iota
	// KindUnauthorized is a 401 answer. The token has already been cleared.
	KindUnauthorized
	// KindNetwork means no usable response reached the client.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindUnauthorized:
		return "unauthorized"
	case KindNetwork:
		return "network"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrUnauthorized matches any *Error of KindUnauthorized via errors.Is.
	ErrUnauthorized = errors.New("apiclient: unauthorized")
	// ErrNetwork matches any *Error of KindNetwork via errors.Is.
	ErrNetwork = errors.New("apiclient: network error")
)

const (
	msgUnauthorized = "Unauthorized"
	msgGeneric      = "An error occurred"
	msgNetwork      = "Network error. Please check your connection."
)

// Error is the single error shape returned by Client for every failed call.
type Error struct {
	Kind        Kind
	Status      int
	Message     string
	FieldErrors map[string][]string
	Err         error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("apiclient: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("apiclient: %s (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the package sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrNetwork:
		return e.Kind == KindNetwork
	}
	return false
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Status
	}
	return 0
}
