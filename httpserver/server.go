package httpserver

import (
	"time"

	"github.com/anacrolix/log"

	"github.com/go-dlna/dlnacp/transport"
)

// Options configures buffer sizes and timeouts, per spec.md §6's
// configuration surface.
type Options struct {
	BufferSize     int           // default 1024
	NoConnectDelay time.Duration // sleep when idle with no sessions, default 5ms
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

func (o *Options) setDefaults() {
	if o.BufferSize == 0 {
		o.BufferSize = 1024
	}
	if o.NoConnectDelay == 0 {
		o.NoConnectDelay = 5 * time.Millisecond
	}
	if o.ReadTimeout == 0 {
		o.ReadTimeout = 5 * time.Second
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = 5 * time.Second
	}
}

// Server accepts connections from a Listener and drives them forward one
// tick at a time; all progress happens inside externally-invoked Tick
// calls, per spec.md §5's cooperative scheduling model.
type Server struct {
	Router *Router
	Opts   Options
	Logger log.Logger

	listener transport.Listener
	sessions []*ClientSession
	cursor   int
	began    bool
}

// NewServer constructs a Server with the given router and options.
func NewServer(router *Router, opts Options, logger log.Logger) *Server {
	opts.setDefaults()
	return &Server{Router: router, Opts: opts, Logger: logger}
}

// Begin binds the listener. addr follows net.Listen's "host:port" form;
// an empty host binds all interfaces, an empty port picks a free one.
func (s *Server) Begin(addr string) error {
	ln, err := transport.NewTCPListener(addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.began = true
	s.Logger.Levelf(log.Info, "http server listening on %s", ln.Addr())
	return nil
}

// BeginOn adopts an already-bound listener, for callers that built one
// with non-default socket options (e.g. to share a port).
func (s *Server) BeginOn(ln transport.Listener) {
	s.listener = ln
	s.began = true
}

// Addr returns the bound listener's address, valid after Begin/BeginOn.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr()
}

// End stops accepting new connections and closes every open session.
func (s *Server) End() error {
	if !s.began {
		return nil
	}
	s.began = false
	for _, sess := range s.sessions {
		sess.close()
	}
	s.sessions = nil
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Tick performs one cooperative iteration, per spec.md §4.4's per-tick
// protocol: accept, then round-robin one session forward, then sweep
// closed sessions. It returns true if it made any progress.
func (s *Server) Tick() bool {
	if !s.began {
		return false
	}
	progressed := false

	conn, err := s.listener.AcceptNonBlocking()
	if err != nil {
		s.Logger.Levelf(log.Debug, "accept error: %s", err)
	} else if conn != nil {
		s.sessions = append(s.sessions, newSession(s, conn))
		progressed = true
	}

	if len(s.sessions) == 0 {
		if !progressed {
			time.Sleep(s.Opts.NoConnectDelay)
		}
		return progressed
	}

	s.cursor = (s.cursor + 1) % len(s.sessions)
	sess := s.sessions[s.cursor]
	if sess.Closed() {
		s.sweep()
		return progressed
	}
	if sess.advance() {
		progressed = true
	}

	s.sweep()
	return progressed
}

// sweep removes closed sessions from the list, revalidating the
// round-robin cursor so it never indexes past the new length — the
// single-threaded model makes the erase-during-iteration hazard spec.md
// flags safe, but the index must still be kept in range.
func (s *Server) sweep() {
	live := s.sessions[:0]
	for _, sess := range s.sessions {
		if !sess.Closed() {
			live = append(live, sess)
		}
	}
	s.sessions = live
	if len(s.sessions) == 0 {
		s.cursor = 0
	} else {
		s.cursor %= len(s.sessions)
	}
}

// SessionCount reports the number of in-progress sessions, for tests and
// metrics.
func (s *Server) SessionCount() int { return len(s.sessions) }
