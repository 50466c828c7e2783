package httpmsg

import (
	"github.com/go-dlna/dlnacp/dlnaerr"
	"github.com/go-dlna/dlnacp/transport"
)

// BufSource wraps a transport.ByteSource with a small internal buffer so
// header lines can be read byte-range-at-a-time while leaving any bytes
// that belong to the body available for a subsequent raw Read — exactly
// the handoff ChunkedDecoder and length-delimited body reads need after
// the header codec consumes the blank line terminating the header block.
type BufSource struct {
	src  transport.ByteSource
	buf  []byte
	pos  int
	size int // current buffered length, buf[pos:size] is unread
}

// NewBufSource allocates a BufSource with the given read-ahead capacity.
// cap bounds how much of a single underlying Read call is buffered at
// once; it does not bound the total bytes read from src over the
// source's lifetime.
func NewBufSource(src transport.ByteSource, cap int) *BufSource {
	return &BufSource{src: src, buf: make([]byte, cap)}
}

func (b *BufSource) fill() error {
	if b.pos < b.size {
		return nil
	}
	n, err := b.src.Read(b.buf)
	if n == 0 && err != nil {
		return err
	}
	b.pos, b.size = 0, n
	return nil
}

// Read drains the internal buffer first, then reads from the underlying
// source directly.
func (b *BufSource) Read(p []byte) (int, error) {
	if b.pos < b.size {
		n := copy(p, b.buf[b.pos:b.size])
		b.pos += n
		return n, nil
	}
	return b.src.Read(p)
}

// Available reports bytes ready without blocking: anything already
// buffered, plus whatever the wrapped source reports.
func (b *BufSource) Available() (int, error) {
	if b.pos < b.size {
		return b.size - b.pos, nil
	}
	return b.src.Available()
}

// ReadLine reads one CRLF-terminated ASCII line, excluding the
// terminator, bounded by maxLine bytes. Exceeding the bound is a
// ProtocolError, matching spec.md's "header line exceeding buffer"
// boundary behavior.
func (b *BufSource) ReadLine(maxLine int) (string, error) {
	line := make([]byte, 0, 128)
	var prevCR bool
	for {
		if err := b.fill(); err != nil {
			return "", dlnaerr.TransportError{Op: "read-line", Err: err}
		}
		for b.pos < b.size {
			c := b.buf[b.pos]
			b.pos++
			if prevCR && c == '\n' {
				return string(line[:len(line)-1]), nil
			}
			prevCR = c == '\r'
			line = append(line, c)
			if len(line) > maxLine {
				return "", dlnaerr.ProtocolError{Reason: "header line exceeds buffer"}
			}
		}
	}
}
