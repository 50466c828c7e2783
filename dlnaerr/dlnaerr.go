// Package dlnaerr defines the typed error kinds that cross the boundaries
// between sessions, requests and subscriptions, so the control point and
// HTTP server can branch on an error's kind without string-matching it.
// Only SubscriptionError carries a retry classification (Retryable).
package dlnaerr

import (
	"errors"
	"fmt"
)

// TransportError is a connect timeout, unexpected close, or write failure
// on the underlying byte stream. It always terminates the affected
// session or request; it never propagates to unrelated sessions.
type TransportError struct {
	Op  string
	Err error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %s", e.Op, e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }

// ProtocolError is a malformed header, malformed chunk length, oversize
// header/URL, or unexpected EOF mid-body. Like TransportError it
// terminates the affected session only.
type ProtocolError struct {
	Reason string
}

func (e ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// RouteMiss means no route entry matched a request; the server answers
// a canonical 404.
type RouteMiss struct {
	Method string
	Path   string
}

func (e RouteMiss) Error() string {
	return fmt.Sprintf("no route for %s %s", e.Method, e.Path)
}

// RemoteError is a 4xx/5xx reply from a peer. Status carries the HTTP
// status code so callers can branch on it.
type RemoteError struct {
	Status int
	Reason string
}

func (e RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Status, e.Reason)
}

// SubscriptionError is a SUBSCRIBE failure: non-2xx status or a missing
// SID in the reply. Cause, if set, carries the underlying TransportError
// or RemoteError that Retryable classifies. Retryable subscriptions are
// retried on every renewal tick, unbounded, until the subscription's own
// expiry; a non-retryable one is dropped immediately instead of being
// left due-for-renewal forever.
type SubscriptionError struct {
	ServiceType string
	Reason      string
	Cause       error
}

func (e SubscriptionError) Error() string {
	return fmt.Sprintf("subscription error for %s: %s", e.ServiceType, e.Reason)
}

func (e SubscriptionError) Unwrap() error { return e.Cause }

// Retryable reports whether the subscription manager should try this
// service again on its next renewal tick. A device's permanent rejection
// (e.g. 404 Not Found, 412 Precondition Failed — the service is gone or
// the SID is no longer valid) is not retryable; a transport failure or a
// 5xx/408/429 server-side hiccup is presumed transient.
func (e SubscriptionError) Retryable() bool {
	var remote RemoteError
	if errors.As(e.Cause, &remote) {
		switch remote.Status {
		case 408, 429:
			return true
		default:
			return remote.Status < 400 || remote.Status >= 500
		}
	}
	return true
}

// ParseError is an XML/SOAP structural problem. It fails the specific
// action or notification being parsed; the caller continues with the
// next one.
type ParseError struct {
	Context string
	Err     error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Context, e.Err)
}

func (e ParseError) Unwrap() error { return e.Err }
