package transport

import (
	"net"
	"strconv"
	"time"
)

// peekTimeout bounds the non-blocking probe Available performs to find
// out whether the kernel already has bytes queued for us.
const peekTimeout = time.Millisecond

// tcpConn adapts *net.TCPConn to Conn. Since net.TCPConn has no portable
// SO_NQUEUE-style query, Available probes with a short-deadline read and
// buffers whatever it sees so a later Read doesn't lose it.
type tcpConn struct {
	c       *net.TCPConn
	pending []byte
}

// NewTCPConn wraps an already-connected TCP socket.
func NewTCPConn(c *net.TCPConn) Conn {
	return &tcpConn{c: c}
}

func (t *tcpConn) Read(buf []byte) (int, error) {
	if len(t.pending) > 0 {
		n := copy(buf, t.pending)
		t.pending = t.pending[n:]
		return n, nil
	}
	return t.c.Read(buf)
}

func (t *tcpConn) Available() (int, error) {
	if len(t.pending) > 0 {
		return len(t.pending), nil
	}
	if err := t.c.SetReadDeadline(time.Now().Add(peekTimeout)); err != nil {
		return 0, err
	}
	defer t.c.SetReadDeadline(time.Time{})
	var buf [4096]byte
	n, err := t.c.Read(buf[:])
	if n > 0 {
		t.pending = append(t.pending, buf[:n]...)
	}
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return len(t.pending), nil
		}
		return len(t.pending), err
	}
	return len(t.pending), nil
}

func (t *tcpConn) Write(buf []byte) (int, error) {
	return t.c.Write(buf)
}

func (t *tcpConn) Close() error {
	return t.c.Close()
}

func (t *tcpConn) SetDeadline(d time.Time) error {
	return t.c.SetDeadline(d)
}

func (t *tcpConn) SetNoDelay(on bool) error {
	return t.c.SetNoDelay(on)
}

func (t *tcpConn) RemoteAddr() string {
	return t.c.RemoteAddr().String()
}

// tcpDialer is the default Dialer, used by httpclient.Client.
type tcpDialer struct{}

// NewTCPDialer returns a Dialer that opens plain TCP connections.
func NewTCPDialer() Dialer { return tcpDialer{} }

func (tcpDialer) Dial(host string, port int, timeout time.Duration) (Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return nil, &net.OpError{Op: "dial", Err: errNotTCP{}}
	}
	return NewTCPConn(tc), nil
}

type errNotTCP struct{}

func (errNotTCP) Error() string { return "dialed connection is not TCP" }

// tcpListener adapts *net.TCPListener to Listener, polling Accept in a
// non-blocking fashion by setting a near-zero deadline.
type tcpListener struct {
	ln *net.TCPListener
}

// NewTCPListener binds addr ("host:port", empty host picks all
// interfaces, empty port picks any free port).
func NewTCPListener(addr string) (Listener, error) {
	a, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp", a)
	if err != nil {
		return nil, err
	}
	return &tcpListener{ln: ln}, nil
}

func (t *tcpListener) AcceptNonBlocking() (Conn, error) {
	if err := t.ln.SetDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return nil, err
	}
	c, err := t.ln.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	tc, ok := c.(*net.TCPConn)
	if !ok {
		c.Close()
		return nil, errNotTCP{}
	}
	return NewTCPConn(tc), nil
}

func (t *tcpListener) Addr() string {
	return t.ln.Addr().String()
}

func (t *tcpListener) Close() error {
	return t.ln.Close()
}
