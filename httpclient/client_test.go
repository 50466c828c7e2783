package httpclient

import (
	"bytes"
	"testing"
	"time"

	"github.com/anacrolix/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/transport"
)

// fakeConn is a hand-written in-memory duplex pipe: Write goes to out,
// Read drains a pre-seeded reply from in.
type fakeConn struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func (c *fakeConn) Read(buf []byte) (int, error)  { return c.in.Read(buf) }
func (c *fakeConn) Write(buf []byte) (int, error) { return c.out.Write(buf) }
func (c *fakeConn) Available() (int, error)       { return c.in.Len(), nil }
func (c *fakeConn) Close() error                  { return nil }
func (c *fakeConn) SetDeadline(time.Time) error    { return nil }
func (c *fakeConn) SetNoDelay(bool) error          { return nil }
func (c *fakeConn) RemoteAddr() string             { return "dev:80" }

type fakeDialer struct {
	conn transport.Conn
	err  error
}

func (d *fakeDialer) Dial(host string, port int, timeout time.Duration) (transport.Conn, error) {
	return d.conn, d.err
}

func TestClientRequestContentLengthReply(t *testing.T) {
	reply := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nContent-Type: text/xml\r\n\r\nhello"
	conn := &fakeConn{in: bytes.NewBufferString(reply), out: &bytes.Buffer{}}
	c := NewClient(&fakeDialer{conn: conn}, Options{}, log.Default)

	u, err := httpmsg.ParseURL("http://device.local/ctl/cd1")
	require.NoError(t, err)

	r, err := c.Request(httpmsg.POST, u, "text/xml", []byte("<envelope/>"), map[string]string{"SOAPACTION": `"x#y"`})
	require.NoError(t, err)
	assert.Equal(t, 200, r.Status)

	buf := make([]byte, 16)
	n, err := r.Body.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
	assert.True(t, r.Body.Done())

	assert.Contains(t, conn.out.String(), "POST /ctl/cd1 HTTP/1.1\r\n")
	assert.Contains(t, conn.out.String(), "SOAPACTION: \"x#y\"")
	assert.Contains(t, conn.out.String(), "<envelope/>")
}

func TestClientRequestChunkedReply(t *testing.T) {
	reply := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"
	conn := &fakeConn{in: bytes.NewBufferString(reply), out: &bytes.Buffer{}}
	c := NewClient(&fakeDialer{conn: conn}, Options{}, log.Default)

	u, err := httpmsg.ParseURL("http://device.local/desc.xml")
	require.NoError(t, err)
	r, err := c.Request(httpmsg.GET, u, "", nil, nil)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, _ := r.Body.Read(buf)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestClientDialFailureIsTransportError(t *testing.T) {
	c := NewClient(&fakeDialer{err: assert.AnError}, Options{ConnectRetries: 1}, log.Default)
	u, _ := httpmsg.ParseURL("http://device.local/x")
	_, err := c.Request(httpmsg.GET, u, "", nil, nil)
	assert.Error(t, err)
}
