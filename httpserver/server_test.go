package httpserver

import (
	"bytes"
	"testing"
	"time"

	"github.com/anacrolix/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dlna/dlnacp/transport"
)

// fakeConn is a hand-written in-memory duplex pipe standing in for a
// TCP socket: writes from the client under test land in "in", and
// whatever the server writes accumulates in "out".
type fakeConn struct {
	in     *bytes.Buffer
	out    *bytes.Buffer
	closed bool
}

func newFakeConn(request string) *fakeConn {
	return &fakeConn{in: bytes.NewBufferString(request), out: &bytes.Buffer{}}
}

func (c *fakeConn) Read(buf []byte) (int, error)  { return c.in.Read(buf) }
func (c *fakeConn) Write(buf []byte) (int, error) { return c.out.Write(buf) }
func (c *fakeConn) Available() (int, error)       { return c.in.Len(), nil }
func (c *fakeConn) Close() error                  { c.closed = true; return nil }
func (c *fakeConn) SetDeadline(time.Time) error    { return nil }
func (c *fakeConn) SetNoDelay(bool) error          { return nil }
func (c *fakeConn) RemoteAddr() string             { return "127.0.0.1:1" }

// fakeListener hands out one pre-built fakeConn on its first
// AcceptNonBlocking call, then reports no further connections.
type fakeListener struct {
	conn   transport.Conn
	served bool
}

func (l *fakeListener) AcceptNonBlocking() (transport.Conn, error) {
	if l.served || l.conn == nil {
		return nil, nil
	}
	l.served = true
	return l.conn, nil
}
func (l *fakeListener) Addr() string { return "fake:0" }
func (l *fakeListener) Close() error { return nil }

func TestServerStaticStringHandler(t *testing.T) {
	router := NewRouter()
	router.Handle("/desc.xml", "GET", "", StaticStringHandler{ContentType: "text/xml", Body: "<root/>"})

	conn := newFakeConn("GET /desc.xml HTTP/1.1\r\nHost: x\r\n\r\n")
	srv := NewServer(router, Options{}, log.Default)
	srv.BeginOn(&fakeListener{conn: conn})

	// The first tick accepts the connection and drives the request in the
	// same iteration; the second finds no further data to process.
	require.True(t, srv.Tick())
	require.False(t, srv.Tick())

	assert.Contains(t, conn.out.String(), "200 OK")
	assert.Contains(t, conn.out.String(), "<root/>")
}

func TestServerNotFoundOnUnroutedRequest(t *testing.T) {
	router := NewRouter()
	conn := newFakeConn("GET /missing HTTP/1.1\r\nHost: x\r\n\r\n")
	srv := NewServer(router, Options{}, log.Default)
	srv.BeginOn(&fakeListener{conn: conn})

	srv.Tick()
	srv.Tick()

	assert.Contains(t, conn.out.String(), "404")
}

func TestServerChunkedReply(t *testing.T) {
	router := NewRouter()
	router.Handle("/stream", "GET", "", HandlerFunc(func(ctx *RequestContext) {
		enc := ctx.ReplyChunked("text/plain")
		require.NoError(t, enc.WriteChunk([]byte("hello")))
		require.NoError(t, enc.WriteEnd())
	}))

	conn := newFakeConn("GET /stream HTTP/1.1\r\nHost: x\r\n\r\n")
	srv := NewServer(router, Options{}, log.Default)
	srv.BeginOn(&fakeListener{conn: conn})

	srv.Tick()
	srv.Tick()

	out := conn.out.String()
	assert.Contains(t, out, "Transfer-Encoding: chunked")
	assert.Contains(t, out, "5\r\nhello\r\n")
	assert.Contains(t, out, "0\r\n\r\n")
}

func TestServerIdleTickMakesNoProgress(t *testing.T) {
	router := NewRouter()
	srv := NewServer(router, Options{}, log.Default)
	srv.BeginOn(&fakeListener{})
	assert.False(t, srv.Tick())
}

func TestServerStaticBytesHandler(t *testing.T) {
	router := NewRouter()
	router.Handle("/icon.png", "GET", "", StaticBytesHandler{ContentType: "image/png", Body: []byte{0x89, 'P', 'N', 'G'}})

	conn := newFakeConn("GET /icon.png HTTP/1.1\r\nHost: x\r\n\r\n")
	srv := NewServer(router, Options{}, log.Default)
	srv.BeginOn(&fakeListener{conn: conn})

	srv.Tick()
	srv.Tick()

	out := conn.out.String()
	assert.Contains(t, out, "200 OK")
	assert.Contains(t, out, "\x89PNG")
}

func TestServerRedirectHandler(t *testing.T) {
	router := NewRouter()
	router.Handle("/old", "GET", "", RedirectHandler{Location: "/new"})

	conn := newFakeConn("GET /old HTTP/1.1\r\nHost: x\r\n\r\n")
	srv := NewServer(router, Options{}, log.Default)
	srv.BeginOn(&fakeListener{conn: conn})

	srv.Tick()
	srv.Tick()

	out := conn.out.String()
	assert.Contains(t, out, "301")
	assert.Contains(t, out, "Location: /new")
}

func TestServerTunnelHandlerForwards(t *testing.T) {
	router := NewRouter()
	var forwarded bool
	router.Handle("/ctl", "POST", "", TunnelHandler{Forward: func(ctx *RequestContext) {
		forwarded = true
		ctx.ReplyOK()
	}})

	conn := newFakeConn("POST /ctl HTTP/1.1\r\nHost: x\r\nContent-Length: 0\r\n\r\n")
	srv := NewServer(router, Options{}, log.Default)
	srv.BeginOn(&fakeListener{conn: conn})

	srv.Tick()
	srv.Tick()

	assert.True(t, forwarded)
	assert.Contains(t, conn.out.String(), "200 OK")
}
