package httpmsg

import "strings"

// Method enumerates the HTTP verbs the engine understands, including the
// three UPnP eventing methods. String encoding is the uppercase token.
type Method string

const (
	GET         Method = "GET"
	HEAD        Method = "HEAD"
	POST        Method = "POST"
	PUT         Method = "PUT"
	DELETE      Method = "DELETE"
	SUBSCRIBE   Method = "SUBSCRIBE"
	UNSUBSCRIBE Method = "UNSUBSCRIBE"
	NOTIFY      Method = "NOTIFY"
)

// ParseMethod accepts any RFC-token as a method string, per spec.md
// §4.2, but normalizes the eight recognized methods to their constant
// form (matched case-insensitively) for cheap comparison afterward. A
// token that doesn't match any of the eight passes through unchanged.
func ParseMethod(tok string) Method {
	switch strings.ToUpper(tok) {
	case string(GET):
		return GET
	case string(HEAD):
		return HEAD
	case string(POST):
		return POST
	case string(PUT):
		return PUT
	case string(DELETE):
		return DELETE
	case string(SUBSCRIBE):
		return SUBSCRIBE
	case string(UNSUBSCRIBE):
		return UNSUBSCRIBE
	case string(NOTIFY):
		return NOTIFY
	default:
		return Method(tok)
	}
}
