package dlnaerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportErrorUnwraps(t *testing.T) {
	inner := errors.New("connection reset")
	err := TransportError{Op: "read", Err: inner}
	assert.Equal(t, inner, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "read")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestParseErrorUnwraps(t *testing.T) {
	inner := errors.New("unexpected EOF")
	err := ParseError{Context: "propertyset", Err: inner}
	assert.ErrorIs(t, err, inner)
}

func TestRemoteErrorCarriesStatus(t *testing.T) {
	err := RemoteError{Status: 404, Reason: "Not Found"}
	assert.Equal(t, 404, err.Status)
	assert.Contains(t, err.Error(), "404")
}

func TestSubscriptionErrorWithNoCauseIsRetryable(t *testing.T) {
	err := SubscriptionError{ServiceType: "urn:x", Reason: "missing SID"}
	assert.True(t, err.Retryable())
	assert.Contains(t, err.Error(), "urn:x")
}

func TestSubscriptionErrorTransportCauseIsRetryable(t *testing.T) {
	err := SubscriptionError{ServiceType: "urn:x", Cause: TransportError{Op: "renew", Err: errors.New("reset")}}
	assert.True(t, err.Retryable())
}

func TestSubscriptionErrorPermanentRejectionIsNotRetryable(t *testing.T) {
	for _, status := range []int{404, 412} {
		err := SubscriptionError{ServiceType: "urn:x", Cause: RemoteError{Status: status}}
		assert.False(t, err.Retryable(), "status %d should not be retryable", status)
	}
}

func TestSubscriptionErrorServerFailureIsRetryable(t *testing.T) {
	for _, status := range []int{500, 503, 408, 429} {
		err := SubscriptionError{ServiceType: "urn:x", Cause: RemoteError{Status: status}}
		assert.True(t, err.Retryable(), "status %d should be retryable", status)
	}
}

func TestRouteMissMessage(t *testing.T) {
	err := RouteMiss{Method: "GET", Path: "/missing"}
	assert.Equal(t, "no route for GET /missing", err.Error())
}
