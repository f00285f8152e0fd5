package wishlist

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is() to check against these.
var (
	ErrUnauthenticated        = errors.New("requires authentication")
	ErrUnresolvableIdentifier = errors.New("invalid product: no identifier")
	ErrInvalidProductData     = errors.New("invalid product data")
	ErrPersistence            = errors.New("persistence failure")

	ErrNetwork           = errors.New("network error")
	ErrServer            = errors.New("server error")
	ErrMalformedResponse = errors.New("malformed response")
)

// RemoteErrorKind classifies remote failures. The distinction is for logging only;
// callers treat every kind as the same failure.
type RemoteErrorKind string

const (
	KindNetwork   RemoteErrorKind = "network"
	KindServer    RemoteErrorKind = "server"
	KindMalformed RemoteErrorKind = "malformed_response"
)

// RemoteError is the single failure shape returned by the remote sync adapter.
type RemoteError struct {
	Kind    RemoteErrorKind
	Status  int    // HTTP status, 0 when no response was received
	Message string // human readable, safe to show in a notification
	Err     error  // underlying cause, if any
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *RemoteError) Unwrap() []error {
	var kind error
	switch e.Kind {
	case KindNetwork:
		kind = ErrNetwork
	case KindServer:
		kind = ErrServer
	case KindMalformed:
		kind = ErrMalformedResponse
	}
	errs := make([]error, 0, 2)
	if kind != nil {
		errs = append(errs, kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewNetworkError is returned when no response was received.
func NewNetworkError(err error) *RemoteError {
	return &RemoteError{Kind: KindNetwork, Message: "network error, please try again", Err: err}
}

// NewServerError is returned for non-2xx responses.
func NewServerError(status int, message string) *RemoteError {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return &RemoteError{Kind: KindServer, Status: status, Message: message}
}

// NewMalformedResponseError is returned for 2xx responses missing the expected data.
func NewMalformedResponseError(status int, message string, err error) *RemoteError {
	if message == "" {
		message = "unexpected response from server"
	}
	return &RemoteError{Kind: KindMalformed, Status: status, Message: message, Err: err}
}

// UserMessage returns the message a transient notification should show for err.
func UserMessage(err error) string {
	var remoteErr *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &remoteErr):
		return remoteErr.Message
	case errors.Is(err, ErrUnauthenticated):
		return "please sign in to use your wishlist"
	case errors.Is(err, ErrUnresolvableIdentifier):
		return "invalid product"
	case errors.Is(err, ErrInvalidProductData):
		return "invalid product data"
	default:
		return "something went wrong"
	}
}
