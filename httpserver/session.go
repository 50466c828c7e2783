package httpserver

import (
	"time"

	"github.com/anacrolix/log"

	"github.com/go-dlna/dlnacp/dlnaerr"
	"github.com/go-dlna/dlnacp/httpmsg"
	"github.com/go-dlna/dlnacp/transport"
)

// sessionState is the per-session state machine of spec.md §4.4.
type sessionState int

const (
	stateIdle sessionState = iota
	stateReadingHeader
	stateRouting
	stateWritingReply
	stateClosing
)

// ClientSession is one accepted connection. Its lifecycle starts at
// accept and ends at stop/close/error.
type ClientSession struct {
	conn         transport.Conn
	src          *httpmsg.BufSource
	srv          *Server
	state        sessionState
	lastActivity time.Time
	closed       bool
}

func newSession(srv *Server, conn transport.Conn) *ClientSession {
	conn.SetNoDelay(true)
	return &ClientSession{
		conn:         conn,
		src:          httpmsg.NewBufSource(conn, srv.Opts.BufferSize),
		srv:          srv,
		state:        stateIdle,
		lastActivity: time.Now(),
	}
}

// Closed reports whether this session has been torn down and should be
// swept from the server's session list.
func (s *ClientSession) Closed() bool { return s.closed }

func (s *ClientSession) fail(err error) {
	s.srv.Logger.Levelf(log.Debug, "session %s failed: %s", s.conn.RemoteAddr(), err)
	s.close()
}

func (s *ClientSession) close() {
	if s.closed {
		return
	}
	s.closed = true
	s.state = stateClosing
	s.conn.Close()
}

// advance performs one cooperative step for this session: if data is
// available, read one full request header, route it, invoke the
// handler, and let the handler write the reply. It returns true if it
// made progress (something was read or replied).
func (s *ClientSession) advance() bool {
	if s.closed {
		return false
	}
	avail, err := s.conn.Available()
	if err != nil {
		s.fail(dlnaerr.TransportError{Op: "poll-available", Err: err})
		return false
	}
	if avail == 0 {
		return false
	}

	s.state = stateReadingHeader
	if err := s.conn.SetDeadline(time.Now().Add(s.srv.Opts.ReadTimeout)); err != nil {
		s.fail(dlnaerr.TransportError{Op: "set-read-deadline", Err: err})
		return false
	}
	req, err := httpmsg.ReadRequestHeader(s.src, s.srv.Opts.BufferSize)
	if err != nil {
		s.fail(err)
		return false
	}
	s.lastActivity = time.Now()

	s.state = stateRouting
	entry, ok := s.srv.Router.Resolve(req.Path, string(req.Method), req.Headers.Get("Accept"))

	ctx := &RequestContext{Request: req, Body: s.src, sess: s}
	ctx.closeAfter = req.Headers.ContainsToken("Connection", "close")

	s.state = stateWritingReply
	if err := s.conn.SetDeadline(time.Now().Add(s.srv.Opts.WriteTimeout)); err != nil {
		s.fail(dlnaerr.TransportError{Op: "set-write-deadline", Err: err})
		return false
	}
	if ok {
		entry.Handler.Serve(ctx)
	} else {
		s.srv.Logger.Levelf(log.Debug, "%s", dlnaerr.RouteMiss{Method: string(req.Method), Path: req.Path})
	}
	// Handler omits reply, or no route matched: the server writes 404
	// on the caller's behalf, per spec.md §4.4.
	if !ctx.replied {
		ctx.ReplyNotFound()
	}

	if ctx.closeAfter {
		s.close()
	} else {
		s.state = stateIdle
	}
	return true
}
