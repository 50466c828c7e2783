package httpmsg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-dlna/dlnacp/dlnaerr"
	"github.com/go-dlna/dlnacp/transport"
)

// DefaultHeaderBufferSize is the bound on a single header line and on the
// read-ahead buffer, per spec.md §5 memory discipline.
const DefaultHeaderBufferSize = 1024

// ReadRequestHeader reads a request line and headers up to the blank
// line that terminates them. Any unknown method is accepted as-is per
// spec.md §4.2.
func ReadRequestHeader(src *BufSource, maxLine int) (*RequestMessage, error) {
	startLine, err := src.ReadLine(maxLine)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(startLine, " ", 3)
	if len(parts) != 3 {
		return nil, dlnaerr.ProtocolError{Reason: fmt.Sprintf("malformed request line: %q", startLine)}
	}
	msg := &RequestMessage{
		Method:  ParseMethod(parts[0]),
		Path:    parts[1],
		Headers: NewHeader(),
	}
	if err := readHeaderLines(src, maxLine, msg.Headers); err != nil {
		return nil, err
	}
	return msg, nil
}

// ReadReplyHeader reads a status line and headers up to the blank line.
func ReadReplyHeader(src *BufSource, maxLine int) (*ReplyMessage, error) {
	startLine, err := src.ReadLine(maxLine)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(startLine, " ", 3)
	if len(parts) < 2 {
		return nil, dlnaerr.ProtocolError{Reason: fmt.Sprintf("malformed status line: %q", startLine)}
	}
	status, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, dlnaerr.ProtocolError{Reason: fmt.Sprintf("malformed status code: %q", parts[1])}
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	msg := &ReplyMessage{Status: status, ReasonPhrase: reason, Headers: NewHeader()}
	if err := readHeaderLines(src, maxLine, msg.Headers); err != nil {
		return nil, err
	}
	return msg, nil
}

func readHeaderLines(src *BufSource, maxLine int, h *Header) error {
	for {
		line, err := src.ReadLine(maxLine)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return dlnaerr.ProtocolError{Reason: fmt.Sprintf("malformed header line: %q", line)}
		}
		name := line[:colon]
		value := strings.TrimSpace(line[colon+1:])
		h.Set(name, value)
	}
}

// WriteRequestHeader serializes a request line, headers, and the
// terminating blank line to sink.
func WriteRequestHeader(sink transport.ByteSink, method Method, path string, h *Header) error {
	var b strings.Builder
	b.WriteString(string(method))
	b.WriteByte(' ')
	b.WriteString(path)
	b.WriteString(" HTTP/1.1\r\n")
	writeHeaderBlock(&b, h)
	_, err := sink.Write([]byte(b.String()))
	return err
}

// WriteReplyHeader serializes a status line, headers, and the
// terminating blank line to sink.
func WriteReplyHeader(sink transport.ByteSink, status int, reason string, h *Header) error {
	var b strings.Builder
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(status))
	b.WriteByte(' ')
	b.WriteString(reason)
	b.WriteString("\r\n")
	writeHeaderBlock(&b, h)
	_, err := sink.Write([]byte(b.String()))
	return err
}

func writeHeaderBlock(b *strings.Builder, h *Header) {
	h.Range(func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	})
	b.WriteString("\r\n")
}
