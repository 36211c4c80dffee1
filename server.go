package tfgo

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ConnHandler serves one accepted client connection of a FixtureServer.
type ConnHandler interface {
	// Handle is called on its own goroutine for each new connection and
	// owns it until it returns.
	Handle(ctx context.Context, conn *net.TCPConn)
}

// ConnHandlerFunc adapts a function to ConnHandler.
type ConnHandlerFunc func(ctx context.Context, conn *net.TCPConn)

// Handle calls f(ctx, conn).
func (f ConnHandlerFunc) Handle(ctx context.Context, conn *net.TCPConn) { f(ctx, conn) }

// FixtureServer is a stand-in game server for development and tests. It
// accepts TCP clients, hands each to a ConnHandler and can push raw records
// to every connected client.
type FixtureServer struct {
	listener        *net.TCPListener
	logger          Logger
	shutdownTimeout time.Duration

	mu          sync.Mutex
	shutdown    bool
	conns       map[*net.TCPConn]struct{}
	wg          sync.WaitGroup
	shutdownNow chan struct{} // signals immediate shutdown, bypassing timeout
}

// ServerOption configures a FixtureServer.
type ServerOption func(*FixtureServer)

// ServerLoggerOption sets the logger for the server.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *FixtureServer) {
		s.logger = logger
	}
}

// ServerShutdownTimeoutOption sets how long Serve waits after cancellation
// before it stops accepting and closes client connections.
func ServerShutdownTimeoutOption(timeout time.Duration) ServerOption {
	return func(s *FixtureServer) {
		s.shutdownTimeout = timeout
	}
}

// NewFixtureServer listens on addr ("host:port"; port 0 picks a free port).
func NewFixtureServer(addr string, opts ...ServerOption) (*FixtureServer, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve listen address")
	}

	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, errors.Wrap(err, "listen")
	}

	s := &FixtureServer{
		listener:    listener,
		logger:      slog.Default(),
		conns:       make(map[*net.TCPConn]struct{}),
		shutdownNow: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Serve accepts connections until ctx is canceled or Close is called, then
// closes every client connection and waits for the handlers to return.
func (s *FixtureServer) Serve(ctx context.Context, handler ConnHandler) error {
	s.logger.Info("fixture server started", "addr", s.listener.Addr())

	go func() {
		<-ctx.Done()

		if s.shutdownTimeout > 0 {
			s.logger.Info("graceful shutdown initiated", "timeout", s.shutdownTimeout)
			select {
			case <-time.After(s.shutdownTimeout):
			case <-s.shutdownNow:
				s.logger.Debug("shutdown timeout bypassed via Close()")
			}
		}

		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		// unblock Accept
		_ = s.listener.SetDeadline(time.Now())
	}()

	defer func() {
		s.closeConns()
		s.wg.Wait()
	}()

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			s.mu.Lock()
			isShutdown := s.shutdown
			s.mu.Unlock()

			if isShutdown {
				s.logger.Info("fixture server stopped", "addr", s.listener.Addr())
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err.Error())
			return err
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			defer s.forget(conn)
			handler.Handle(ctx, conn)
		}()
	}
}

// Broadcast writes b to every connected client.
func (s *FixtureServer) Broadcast(b []byte) error {
	s.mu.Lock()
	conns := make([]*net.TCPConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	for _, c := range conns {
		if _, werr := c.Write(b); werr != nil && err == nil {
			err = errors.Wrapf(werr, "broadcast to %s", c.RemoteAddr())
		}
	}
	return err
}

// Clients returns the number of connected clients.
func (s *FixtureServer) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *FixtureServer) forget(conn *net.TCPConn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *FixtureServer) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// Close stops the server by closing the listener, bypassing any shutdown
// timeout. Blocked Accept calls return with an error.
func (s *FixtureServer) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	select {
	case s.shutdownNow <- struct{}{}:
	default:
	}

	return s.listener.Close()
}

// Addr returns the listener's network address.
func (s *FixtureServer) Addr() net.Addr {
	return s.listener.Addr()
}
