package client

import (
	"errors"
	"fmt"
)

// Kind buckets an API failure the way callers branch on it.
type Kind int

const (
	KindNetwork Kind = iota + 1 // no response at all
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindInvalid
	KindServer
)

// Sentinels for errors.Is checks against *APIError.
var (
	ErrNetwork        = errors.New("network error")
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("not authorized")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInvalid        = errors.New("invalid request")
	ErrServer         = errors.New("server error")
)

// APIError is the client-side view of a failed call. Status is zero for
// network failures. Message carries the server's error payload when one
// was received.
type APIError struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	cause   error
}

func (e *APIError) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("api request failed: %v", e.cause)
	}
	return fmt.Sprintf("api request failed (%d %s): %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.cause }

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrAuthorization:
		return e.Kind == KindAuthorization
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrInvalid:
		return e.Kind == KindInvalid
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

func kindForStatus(status int, code string) Kind {
	switch {
	case status == 401:
		return KindAuthentication
	case status == 403:
		return KindAuthorization
	case status == 404:
		return KindNotFound
	// The legacy API reports "cart already exists" as a 400, not a 409.
	case status == 400 && code == "cart_exists":
		return KindConflict
	case status == 409:
		return KindConflict
	case status >= 500:
		return KindServer
	default:
		return KindInvalid
	}
}
