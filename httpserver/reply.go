package httpserver

import (
	"strconv"

	"github.com/go-dlna/dlnacp/chunked"
	"github.com/go-dlna/dlnacp/dlnaerr"
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/transport"
)

// StreamSource is a bounded-buffer copy source for reply(contentType,
// streamSource, size).
type StreamSource interface {
	Read(buf []byte) (int, error)
}

// ReplyProducer measures its own output by being invoked against a
// no-op sink first, then against the real sink, matching
// httpclient.BodyProducer's contract on the server side.
type ReplyProducer func(sink transport.ByteSink) (int64, error)

// RequestContext is handed to a Handler. It exposes the matched request
// and the only sanctioned way to produce a reply.
type RequestContext struct {
	Request *httpmsg.RequestMessage
	Body    *httpmsg.BufSource // raw connection, positioned after the request header

	sess       *ClientSession
	replied    bool
	closeAfter bool
}

// Accept returns the request's Accept header, used by callers that want
// to branch on it manually (the router already applies MIMEFilter).
func (c *RequestContext) Accept() string {
	return c.Request.Headers.Get("Accept")
}

func (c *RequestContext) writeStatusLine(status int, reason string, h *httpmsg.Header) error {
	return httpmsg.WriteReplyHeader(c.sess.conn, status, reason, h)
}

func (c *RequestContext) baseHeaders(contentType string) *httpmsg.Header {
	h := httpmsg.NewHeader()
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	if c.closeAfter {
		h.Set("Connection", "close")
	} else {
		h.Set("Connection", "keep-alive")
	}
	return h
}

// Reply writes a length-delimited string body with status 200 OK.
func (c *RequestContext) Reply(contentType, body string) {
	c.ReplyBytes(contentType, []byte(body))
}

// ReplyBytes writes a length-delimited binary body with status 200 OK.
func (c *RequestContext) ReplyBytes(contentType string, body []byte) {
	h := c.baseHeaders(contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	if err := c.writeStatusLine(200, "OK", h); err != nil {
		c.sess.fail(err)
		return
	}
	if len(body) > 0 {
		if _, err := c.sess.conn.Write(body); err != nil {
			c.sess.fail(dlnaerr.TransportError{Op: "write-reply-body", Err: err})
			return
		}
	}
	c.replied = true
}

// ReplyStream copies exactly size bytes from src using a bounded buffer.
func (c *RequestContext) ReplyStream(contentType string, src StreamSource, size int64) {
	h := c.baseHeaders(contentType)
	h.Set("Content-Length", strconv.FormatInt(size, 10))
	if err := c.writeStatusLine(200, "OK", h); err != nil {
		c.sess.fail(err)
		return
	}
	buf := make([]byte, c.sess.srv.Opts.BufferSize)
	var remaining = size
	for remaining > 0 {
		n := int64(len(buf))
		if n > remaining {
			n = remaining
		}
		rn, err := src.Read(buf[:n])
		if rn > 0 {
			if _, werr := c.sess.conn.Write(buf[:rn]); werr != nil {
				c.sess.fail(dlnaerr.TransportError{Op: "write-reply-stream", Err: werr})
				return
			}
			remaining -= int64(rn)
		}
		if err != nil {
			break
		}
	}
	c.replied = true
}

// ReplyProduced measures producer's output against a no-op sink, sets
// Content-Length accordingly, then invokes producer against the real
// connection.
func (c *RequestContext) ReplyProduced(contentType string, producer ReplyProducer) {
	length, err := producer(nopSink{})
	if err != nil {
		c.sess.fail(dlnaerr.TransportError{Op: "measure-reply", Err: err})
		return
	}
	h := c.baseHeaders(contentType)
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	if err := c.writeStatusLine(200, "OK", h); err != nil {
		c.sess.fail(err)
		return
	}
	if _, err := producer(c.sess.conn); err != nil {
		c.sess.fail(dlnaerr.TransportError{Op: "write-produced-reply", Err: err})
		return
	}
	c.replied = true
}

// ReplyChunkedFrom writes a chunked header then streams all of src,
// terminating with the zero chunk.
func (c *RequestContext) ReplyChunkedFrom(contentType string, src StreamSource) {
	enc := c.ReplyChunked(contentType)
	if enc == nil {
		return
	}
	buf := make([]byte, c.sess.srv.Opts.BufferSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := enc.WriteChunkSkipEmpty(buf[:n]); werr != nil {
				c.sess.fail(werr)
				return
			}
		}
		if err != nil {
			break
		}
		if n == 0 {
			break
		}
	}
	if err := enc.WriteEnd(); err != nil {
		c.sess.fail(err)
	}
}

// ReplyChunked writes the chunked header only; the caller emits chunks
// via the returned Encoder and must call WriteEnd itself.
func (c *RequestContext) ReplyChunked(contentType string) *chunked.Encoder {
	h := c.baseHeaders(contentType)
	h.Set("Transfer-Encoding", "chunked")
	if err := c.writeStatusLine(200, "OK", h); err != nil {
		c.sess.fail(err)
		return nil
	}
	c.replied = true
	return chunked.NewEncoder(c.sess.conn)
}

// ReplyStatus writes headers-only with an arbitrary status and reason.
func (c *RequestContext) ReplyStatus(status int, reason string) {
	h := c.baseHeaders("")
	h.Set("Content-Length", "0")
	if err := c.writeStatusLine(status, reason, h); err != nil {
		c.sess.fail(err)
		return
	}
	c.replied = true
}

// ReplyRedirect writes a 301 Moved with a Location header.
func (c *RequestContext) ReplyRedirect(location string) {
	h := c.baseHeaders("")
	h.Set("Location", location)
	h.Set("Content-Length", "0")
	if err := c.writeStatusLine(301, "Moved Permanently", h); err != nil {
		c.sess.fail(err)
		return
	}
	c.replied = true
}

func (c *RequestContext) ReplyOK() { c.ReplyStatus(200, "OK") }

func (c *RequestContext) ReplyNotFound() { c.ReplyStatus(404, "Page Not Found") }

func (c *RequestContext) ReplyError(code int, reason string) { c.ReplyStatus(code, reason) }

type nopSink struct{}

func (nopSink) Write(p []byte) (int, error) { return len(p), nil }
