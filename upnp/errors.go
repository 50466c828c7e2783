package upnp

import "fmt"

// Standard UPnP control error codes (UPnP Device Architecture Annex).
const (
	InvalidActionErrorCode       = 401
	InvalidArgsErrorCode         = 402
	ActionFailedErrorCode        = 501
	ArgumentValueInvalidErrorCode = 600
)

// Error is a UPnP control error: a code plus human-readable description,
// the shape a SOAP fault's <UPnPError> detail carries.
type Error struct {
	Code int
	Desc string
}

func (e *Error) Error() string {
	return fmt.Sprintf("UPnPError %d: %s", e.Code, e.Desc)
}

// Errorf builds an *Error with a formatted description.
func Errorf(code int, format string, args ...interface{}) error {
	return &Error{Code: code, Desc: fmt.Sprintf(format, args...)}
}

// ConvertError coerces any error into an *Error, defaulting to
// ActionFailedErrorCode when it isn't already one — the shape
// serviceControlHandler-style code needs to marshal a SOAP fault.
func ConvertError(err error) *Error {
	if ue, ok := err.(*Error); ok {
		return ue
	}
	return &Error{Code: ActionFailedErrorCode, Desc: err.Error()}
}
