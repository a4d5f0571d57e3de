package core

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"

	"github.com/hasirciogluhq/sortbench/internal/logger"
)

// maxAcceptDelay caps the backoff between failed accepts.
const maxAcceptDelay = time.Second

// Server is the generic TCP server.
// It depends ONLY on the ConnectionHandler interface, not on the sort protocol.
type Server struct {
	listener net.Listener
	handler  ConnectionHandler

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closing  bool
	sessions sync.WaitGroup

	active atomic.Int64
	total  atomic.Int64
	failed atomic.Int64
}

// NewServer wraps listener so that at most maxSessions connections are
// handled at once; further connections wait in the accept backlog.
// maxSessions <= 0 leaves concurrency unbounded.
func NewServer(listener net.Listener, handler ConnectionHandler, maxSessions int) *Server {
	if maxSessions > 0 {
		listener = netutil.LimitListener(listener, maxSessions)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		listener: listener,
		handler:  handler,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until Shutdown is called, starting one goroutine
// per connection. Accept errors are logged and retried with backoff. Serve
// returns nil after Shutdown.
func (s *Server) Serve() error {
	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isClosing() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			delay = nextAcceptDelay(delay)
			logger.Warn("Accept failed, retrying", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		delay = 0

		if !s.track() {
			conn.Close()
			return nil
		}
		go s.handleConnection(conn)
	}
}

func nextAcceptDelay(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	return min(2*d, maxAcceptDelay)
}

// track registers a new session unless the server is shutting down.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions.Add(1)
	return true
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.sessions.Done()

	s.total.Add(1)
	s.active.Add(1)
	defer s.active.Add(-1)

	// Delegate the entire lifecycle to the handler
	if err := s.handler.HandleConnection(s.ctx, conn); err != nil {
		s.failed.Add(1)
	}
}

// Shutdown stops accepting connections and waits for in-flight sessions.
// If ctx ends first, the sessions' context is canceled and ctx.Err() is
// returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	err := s.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return err
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// Stats returns a snapshot of the session counters.
func (s *Server) Stats() Stats {
	return Stats{
		Active: s.active.Load(),
		Total:  s.total.Load(),
		Failed: s.failed.Load(),
	}
}
