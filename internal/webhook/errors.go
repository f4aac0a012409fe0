package webhook

import (
	"errors"
	"net/http"
)

// ErrorKind enumerates the request failures the gateway reports to callers.
type ErrorKind int

const (
	KindRouteNotFound ErrorKind = iota + 1
	KindMethodNotAllowed
	KindAuthenticationFailed
	KindMalformedBody
	KindPayloadTooLarge
	KindDownstreamTimeout
	KindDownstreamUnreachable
)

// Status is the HTTP status code reported for the kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindRouteNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindAuthenticationFailed:
		return http.StatusForbidden
	case KindMalformedBody:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindDownstreamTimeout:
		return http.StatusGatewayTimeout
	case KindDownstreamUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message is the generic text sent to the caller. It never includes the
// underlying cause.
func (k ErrorKind) Message() string {
	switch k {
	case KindRouteNotFound:
		return "not found"
	case KindMethodNotAllowed:
		return "method not allowed"
	case KindAuthenticationFailed:
		return "forbidden"
	case KindMalformedBody:
		return "malformed request body"
	case KindPayloadTooLarge:
		return "payload too large"
	case KindDownstreamTimeout:
		return "downstream timed out"
	case KindDownstreamUnreachable:
		return "downstream unreachable"
	default:
		return "internal error"
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindRouteNotFound:
		return "RouteNotFound"
	case KindMethodNotAllowed:
		return "MethodNotAllowed"
	case KindAuthenticationFailed:
		return "AuthenticationFailed"
	case KindMalformedBody:
		return "MalformedBody"
	case KindPayloadTooLarge:
		return "PayloadTooLarge"
	case KindDownstreamTimeout:
		return "DownstreamTimeout"
	case KindDownstreamUnreachable:
		return "DownstreamUnreachable"
	default:
		return "Unknown"
	}
}

// Error is a request failure with a known kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err.
func KindOf(err error) (ErrorKind, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return 0, false
}
