package httpmsg

// RequestMessage is a parsed request line plus headers. Any body is
// consumed as a byte stream from the underlying connection by the
// caller, not buffered here.
type RequestMessage struct {
	Method  Method
	Path    string
	Headers *Header
}

// ReplyMessage is a parsed status line plus headers. Body framing is
// derived from Headers by Framing.
type ReplyMessage struct {
	Status       int
	ReasonPhrase string
	Headers      *Header
}

// BodyFraming enumerates how a message body is delimited on the wire.
type BodyFraming int

const (
	FramingChunked BodyFraming = iota
	FramingContentLength
	FramingUntilClose
)

// Framing inspects Headers to decide how the body following this reply
// is delimited, per spec.md §3: chunked takes priority over
// Content-Length, which takes priority over read-until-close.
func (r *ReplyMessage) Framing() (BodyFraming, int64) {
	return FramingFromHeaders(r.Headers)
}

// Framing applies the same rule to a request body (used for NOTIFY and
// SUBSCRIBE bodies), per spec.md §3.
func (r *RequestMessage) Framing() (BodyFraming, int64) {
	return FramingFromHeaders(r.Headers)
}

// FramingFromHeaders is the shared rule both message kinds apply.
func FramingFromHeaders(h *Header) (BodyFraming, int64) {
	if h.ContainsToken("Transfer-Encoding", "chunked") {
		return FramingChunked, -1
	}
	if cl := h.Get("Content-Length"); cl != "" {
		if n, ok := parseContentLength(cl); ok {
			return FramingContentLength, n
		}
	}
	return FramingUntilClose, -1
}

func parseContentLength(s string) (int64, bool) {
	var n int64
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	return n, true
}
