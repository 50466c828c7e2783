// Package httpclient implements the single-connection-per-host HTTP
// client described in spec.md §4.3: it issues requests for all methods,
// supports streaming body producers of known length, reads chunked or
// length-delimited replies, and reuses the connection across requests
// when keep-alive is negotiated.
package httpclient

import (
	"strconv"
	"time"

	"github.com/anacrolix/log"

	"github.com/go-dlna/dlnacp/chunked"
	"github.com/go-dlna/dlnacp/dlnaerr"
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/transport"
)

// BodyProducer writes a request body to sink and returns the number of
// bytes written. It is invoked twice per streaming request: once against
// a no-op sink to measure length for Content-Length, then once against
// the real sink. Implementers must be deterministic across both calls,
// per spec.md's design note on streaming body writers.
type BodyProducer func(sink transport.ByteSink) (int64, error)

// Options configures connection behavior.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	UserAgent      string
	ConnectRetries int // default 3, per spec.md §4.3
	HeaderBufSize  int
}

func (o *Options) setDefaults() {
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 5 * time.Second
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = "dlnacp/1"
	}
	if o.ConnectRetries == 0 {
		o.ConnectRetries = 3
	}
	if o.HeaderBufSize == 0 {
		o.HeaderBufSize = httpmsg.DefaultHeaderBufferSize
	}
}

// Reply is the client's view of a received response: status/headers,
// plus a Body reader that transparently undoes chunked encoding when
// necessary.
type Reply struct {
	Status       int
	ReasonPhrase string
	Headers      *httpmsg.Header
	Body         BodyReader
}

// BodyReader reads decoded body bytes regardless of wire framing.
type BodyReader interface {
	Read(buf []byte) (int, error)
	// Done reports whether the body has been fully consumed (chunked
	// terminator seen, or Content-Length bytes delivered).
	Done() bool
}

// Client is a single-connection-per-host HTTP/UPnP client.
type Client struct {
	Dialer transport.Dialer
	Opts   Options
	Logger log.Logger

	conn       transport.Conn
	src        *httpmsg.BufSource
	connHost   string
	connPort   int
	keepAlive  bool
}

// NewClient constructs a client over dialer with the given options.
func NewClient(dialer transport.Dialer, opts Options, logger log.Logger) *Client {
	opts.setDefaults()
	return &Client{Dialer: dialer, Opts: opts, Logger: logger}
}

// Request issues method against url with an optional content type
// (empty means none), an optional fixed-length body (body may be nil) and
// optional extra headers (SID for UNSUBSCRIBE, SOAPACTION, etc. are set
// by callers via extra).
func (c *Client) Request(method httpmsg.Method, url httpmsg.URL, contentType string, body []byte, extra map[string]string) (*Reply, error) {
	return c.doRequest(method, url, contentType, int64(len(body)), func(sink transport.ByteSink) (int64, error) {
		if len(body) == 0 {
			return 0, nil
		}
		n, err := sink.Write(body)
		return int64(n), err
	}, extra)
}

// StreamRequest issues method against url with a body supplied by a
// producer invoked twice to measure then emit, per spec.md §4.3.
func (c *Client) StreamRequest(method httpmsg.Method, url httpmsg.URL, contentType string, producer BodyProducer, extra map[string]string) (*Reply, error) {
	length, err := producer(nopSink{})
	if err != nil {
		return nil, dlnaerr.TransportError{Op: "measure-body", Err: err}
	}
	return c.doRequest(method, url, contentType, length, producer, extra)
}

type nopSink struct{}

func (nopSink) Write(p []byte) (int, error) { return len(p), nil }

func (c *Client) doRequest(method httpmsg.Method, url httpmsg.URL, contentType string, length int64, producer BodyProducer, extra map[string]string) (*Reply, error) {
	if err := c.ensureConnected(url); err != nil {
		return nil, err
	}

	h := httpmsg.NewHeader()
	h.Set("Host", url.HostHeader())
	if length > 0 {
		h.Set("Content-Length", strconv.FormatInt(length, 10))
	}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	h.Set("Connection", "keep-alive")
	h.Set("Accept", "*/*")
	h.Set("Accept-Encoding", "identity")
	h.Set("User-Agent", c.Opts.UserAgent)
	for k, v := range extra {
		h.Set(k, v)
	}

	if err := c.conn.SetDeadline(time.Now().Add(c.Opts.WriteTimeout)); err != nil {
		return nil, dlnaerr.TransportError{Op: "set-write-deadline", Err: err}
	}
	path := url.Path
	if url.Query != "" {
		path += "?" + url.Query
	}
	if err := httpmsg.WriteRequestHeader(c.conn, method, path, h); err != nil {
		c.disconnect()
		return nil, err
	}
	if length > 0 {
		if _, err := producer(c.conn); err != nil {
			c.disconnect()
			return nil, dlnaerr.TransportError{Op: "write-body", Err: err}
		}
	}

	if err := c.conn.SetDeadline(time.Now().Add(c.Opts.ReadTimeout)); err != nil {
		return nil, dlnaerr.TransportError{Op: "set-read-deadline", Err: err}
	}
	reply, err := httpmsg.ReadReplyHeader(c.src, c.Opts.HeaderBufSize)
	if err != nil {
		c.disconnect()
		return nil, err
	}

	r := &Reply{Status: reply.Status, ReasonPhrase: reply.ReasonPhrase, Headers: reply.Headers}
	framing, contentLen := reply.Framing()
	switch framing {
	case httpmsg.FramingChunked:
		r.Body = chunked.NewDecoder(c.src)
	case httpmsg.FramingContentLength:
		r.Body = &lengthBody{src: c.src, remaining: contentLen}
	default:
		r.Body = &untilCloseBody{src: c.src}
	}

	c.keepAlive = !reply.Headers.ContainsToken("Connection", "close")
	if !c.keepAlive {
		// Body must be drained by the caller before Close; the client
		// itself only tears down the socket on the *next* request.
	}
	return r, nil
}

func (c *Client) ensureConnected(url httpmsg.URL) error {
	if c.conn != nil && c.keepAlive && c.connHost == url.Host && c.connPort == url.Port {
		return nil
	}
	c.disconnect()

	var lastErr error
	backoff := 50 * time.Millisecond
	for attempt := 0; attempt < c.Opts.ConnectRetries; attempt++ {
		conn, err := c.Dialer.Dial(url.Host, url.Port, c.Opts.ConnectTimeout)
		if err == nil {
			c.conn = conn
			c.src = httpmsg.NewBufSource(conn, c.Opts.HeaderBufSize)
			c.connHost, c.connPort = url.Host, url.Port
			c.keepAlive = true
			return nil
		}
		lastErr = err
		c.Logger.Levelf(log.Debug, "dial attempt %d to %s:%d failed: %s", attempt+1, url.Host, url.Port, err)
		time.Sleep(backoff)
		backoff *= 2
	}
	return dlnaerr.TransportError{Op: "dial", Err: lastErr}
}

func (c *Client) disconnect() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.src = nil
	c.keepAlive = false
}

// Close tears down any open connection.
func (c *Client) Close() error {
	c.disconnect()
	return nil
}

type lengthBody struct {
	src       *httpmsg.BufSource
	remaining int64
}

func (b *lengthBody) Read(buf []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, nil
	}
	if int64(len(buf)) > b.remaining {
		buf = buf[:b.remaining]
	}
	n, err := b.src.Read(buf)
	b.remaining -= int64(n)
	if err != nil {
		return n, dlnaerr.TransportError{Op: "read-body", Err: err}
	}
	return n, nil
}

func (b *lengthBody) Done() bool { return b.remaining <= 0 }

type untilCloseBody struct {
	src    *httpmsg.BufSource
	closed bool
}

func (b *untilCloseBody) Read(buf []byte) (int, error) {
	if b.closed {
		return 0, nil
	}
	n, err := b.src.Read(buf)
	if err != nil {
		b.closed = true
		return n, nil
	}
	if n == 0 {
		b.closed = true
	}
	return n, nil
}

func (b *untilCloseBody) Done() bool { return b.closed }
