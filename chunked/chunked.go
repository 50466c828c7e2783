// Package chunked implements HTTP/1.1 chunked transfer-coding, per
// spec.md §4.1: a Decoder that turns a chunked body stream into plain
// data bytes with chunk boundaries invisible to the caller, and an
// Encoder that frames outgoing data the same way.
package chunked

import (
	"strconv"

	"github.com/go-dlna/dlnacp/dlnaerr"
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/transport"
)

// maxChunkLineLen bounds the hex-length line, generous enough for any
// real chunk extension while still catching a runaway stream.
const maxChunkLineLen = 256

// Decoder consumes a chunked body from a BufSource and yields opaque
// data bytes. It never yields bytes past the terminating zero-length
// chunk.
type Decoder struct {
	src       *httpmsg.BufSource
	remaining int  // bytes left in the current chunk
	done      bool // terminating chunk has been seen
	readTrailers bool
}

// NewDecoder wraps src, which must already be positioned at the start of
// the chunked body (i.e. right after the reply/request header's blank
// line).
func NewDecoder(src *httpmsg.BufSource) *Decoder {
	return &Decoder{src: src}
}

// Done reports whether the zero-length terminating chunk has been
// consumed.
func (d *Decoder) Done() bool { return d.done }

// Read returns decoded data bytes. It returns (0, io.EOF)-shaped
// behavior by returning (0, nil) with Done()==true once the terminator
// has been seen; callers check Done rather than relying on a sentinel
// error so a zero-length read isn't mistaken for a transport stall.
func (d *Decoder) Read(buf []byte) (int, error) {
	if d.done {
		return 0, nil
	}
	if d.remaining == 0 {
		if err := d.readChunkHeader(); err != nil {
			return 0, err
		}
		if d.done {
			return 0, nil
		}
	}
	n := len(buf)
	if n > d.remaining {
		n = d.remaining
	}
	read, err := d.src.Read(buf[:n])
	if err != nil {
		return read, dlnaerr.TransportError{Op: "chunk-data", Err: err}
	}
	d.remaining -= read
	if d.remaining == 0 {
		if err := d.consumeChunkCRLF(); err != nil {
			return read, err
		}
	}
	return read, nil
}

func (d *Decoder) readChunkHeader() error {
	line, err := d.src.ReadLine(maxChunkLineLen)
	if err != nil {
		return err
	}
	n, ok := parseChunkLen(line)
	if !ok {
		return dlnaerr.ProtocolError{Reason: "malformed chunk length: " + line}
	}
	if n == 0 {
		d.done = true
		return d.consumeTrailers()
	}
	d.remaining = n
	return nil
}

func (d *Decoder) consumeChunkCRLF() error {
	line, err := d.src.ReadLine(2)
	if err != nil {
		return err
	}
	if line != "" {
		return dlnaerr.ProtocolError{Reason: "missing CRLF after chunk data"}
	}
	return nil
}

// consumeTrailers reads trailer header lines, if any, until the blank
// line that ends the chunked body, per spec.md's optional trailer
// support.
func (d *Decoder) consumeTrailers() error {
	if d.readTrailers {
		return nil
	}
	d.readTrailers = true
	for {
		line, err := d.src.ReadLine(maxChunkLineLen)
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
	}
}

// parseChunkLen parses the leading hex digits up to the first
// non-hex character, ignoring any chunk extension after a ';'.
func parseChunkLen(line string) (int, bool) {
	end := len(line)
	for i, c := range line {
		if !isHex(byte(c)) {
			end = i
			break
		}
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(line[:end], 16, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Encoder emits chunked-transfer frames to a ByteSink, guaranteeing a
// zero-length terminator on completion.
type Encoder struct {
	sink  transport.ByteSink
	ended bool
}

func NewEncoder(sink transport.ByteSink) *Encoder {
	return &Encoder{sink: sink}
}

// WriteChunk emits one data chunk. Per spec.md's design note 9 (treat
// zero-length writeChunk as terminator-only), an empty buf is rejected
// here — callers use WriteEnd to terminate.
func (e *Encoder) WriteChunk(buf []byte) error {
	if len(buf) == 0 {
		return dlnaerr.ProtocolError{Reason: "WriteChunk called with empty payload; use WriteEnd to terminate"}
	}
	if e.ended {
		return dlnaerr.ProtocolError{Reason: "WriteChunk called after WriteEnd"}
	}
	header := strconv.FormatInt(int64(len(buf)), 16) + "\r\n"
	if _, err := e.sink.Write([]byte(header)); err != nil {
		return dlnaerr.TransportError{Op: "chunk-header", Err: err}
	}
	if _, err := e.sink.Write(buf); err != nil {
		return dlnaerr.TransportError{Op: "chunk-data", Err: err}
	}
	if _, err := e.sink.Write([]byte("\r\n")); err != nil {
		return dlnaerr.TransportError{Op: "chunk-trailer", Err: err}
	}
	return nil
}

// WriteEnd emits the zero-length terminating chunk. Idempotent.
func (e *Encoder) WriteEnd() error {
	if e.ended {
		return nil
	}
	e.ended = true
	_, err := e.sink.Write([]byte("0\r\n\r\n"))
	if err != nil {
		return dlnaerr.TransportError{Op: "chunk-end", Err: err}
	}
	return nil
}

// WriteChunkSkipEmpty is the "convenience writer" spec.md calls for:
// it silently skips zero-length inputs instead of erroring, for callers
// that stream arbitrary producer output where an empty write is
// meaningless rather than a programming error.
func (e *Encoder) WriteChunkSkipEmpty(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	return e.WriteChunk(buf)
}
