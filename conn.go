// Package tfgo is the client network layer of the tfgo location-based game.
// It holds one TCP session to the game server, decodes the server's
// newline-delimited JSON records into typed events applied to a shared Store,
// and encodes user actions into outbound records.
package tfgo

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ConnState is the lifecycle state of a Conn.
type ConnState int32

const (
	Idle ConnState = iota
	Connecting
	Connected
	Failed
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Conn owns the TCP session to the game server.
//
// Connect, State, Send and Close are safe for concurrent use. Receive must be
// called from one goroutine at a time.
type Conn struct {
	addr   string
	opts   options
	logger Logger

	state atomic.Int32

	mu    sync.Mutex // guards raw, err and ready
	raw   *net.TCPConn
	err   error
	ready chan struct{}

	writeMu sync.Mutex
	buf     []byte
}

// NewConn returns an idle connection to addr ("host:port").
// It does not dial; call Connect or Dial.
func NewConn(addr string, opt ...Option) (*Conn, error) {
	if addr == "" {
		return nil, ErrInvalidAddress
	}

	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}

	ready := make(chan struct{})
	close(ready)

	return &Conn{
		addr:   addr,
		opts:   opts,
		logger: opts.logger,
		ready:  ready,
	}, nil
}

// Connect starts a handshake in the background and returns immediately with
// the state observed after the call. It is a no-op while Connecting or
// Connected. A Failed connection may be retried.
func (c *Conn) Connect(ctx context.Context) ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch s := c.State(); s {
	case Connecting, Connected, Closed:
		return s
	}

	c.err = nil
	c.ready = make(chan struct{})
	c.state.Store(int32(Connecting))
	c.logger.Debug("connecting", "addr", c.addr, "timeout", c.opts.connectTimeout)

	go c.dial(ctx, c.ready)

	return Connecting
}

// Dial connects and blocks until the handshake completes.
// A failed handshake is reported as a *ConnectError.
func (c *Conn) Dial(ctx context.Context) error {
	if c.Connect(ctx) == Connected {
		return nil
	}
	return c.WaitConnected(ctx)
}

func (c *Conn) dial(ctx context.Context, ready chan struct{}) {
	defer close(ready)

	d := net.Dialer{Timeout: c.opts.connectTimeout}
	raw, err := d.DialContext(ctx, "tcp", c.addr)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == Closed {
		if raw != nil {
			raw.Close()
		}
		return
	}

	if err != nil {
		c.err = &ConnectError{Addr: c.addr, Err: err}
		c.state.Store(int32(Failed))
		c.logger.Warn("connection failed", "addr", c.addr, "error", err.Error())
		return
	}

	tcp, ok := raw.(*net.TCPConn)
	if !ok {
		raw.Close()
		c.err = &ConnectError{Addr: c.addr, Err: errors.Errorf("unexpected connection type %T", raw)}
		c.state.Store(int32(Failed))
		return
	}
	_ = tcp.SetNoDelay(true)

	c.raw = tcp
	c.state.Store(int32(Connected))
	c.logger.Info("connection established", "addr", c.addr, "local", tcp.LocalAddr())
}

// Ready returns a channel closed when the latest handshake has finished.
func (c *Conn) Ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// WaitConnected blocks until the latest handshake has finished and returns
// nil if the connection is usable.
func (c *Conn) WaitConnected(ctx context.Context) error {
	select {
	case <-c.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	switch c.State() {
	case Connected:
		return nil
	case Failed:
		return c.Err()
	case Closed:
		return ErrConnectionClosed
	}
	return ErrNotConnected
}

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

// Err returns the error of the last failed handshake.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// conn returns the socket if the connection is usable.
func (c *Conn) conn() (*net.TCPConn, error) {
	switch c.State() {
	case Connected:
	case Closed:
		return nil, ErrConnectionClosed
	default:
		return nil, ErrNotConnected
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw, nil
}

// Send writes b synchronously. It fails with ErrNotConnected unless the
// connection is Connected.
func (c *Conn) Send(b []byte) error {
	raw, err := c.conn()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = raw.SetWriteDeadline(time.Now().Add(c.opts.writeTimeout))
	if _, err := raw.Write(b); err != nil {
		c.logger.Debug("write error", "addr", c.addr, "error", err.Error())
		if c.IsClosed() {
			return ErrConnectionClosed
		}
		return errors.Wrap(err, "send")
	}
	return nil
}

// Receive performs one blocking read of at most the receive buffer size.
// It returns (nil, nil) if nothing arrived within the idle timeout, so the
// caller can check for cancellation and call again.
func (c *Conn) Receive() ([]byte, error) {
	raw, err := c.conn()
	if err != nil {
		return nil, err
	}

	if c.buf == nil {
		c.buf = make([]byte, c.opts.receiveBuffer)
	}

	_ = raw.SetReadDeadline(time.Now().Add(c.opts.idleTimeout))
	n, err := raw.Read(c.buf)
	if n > 0 {
		// a read error after data surfaces on the next call
		return append([]byte(nil), c.buf[:n]...), nil
	}
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil
		}
		if c.IsClosed() {
			return nil, ErrConnectionClosed
		}
		c.logger.Debug("read error", "addr", c.addr, "error", err.Error())
		return nil, errors.Wrap(err, "receive")
	}
	return nil, nil
}

// Close closes the connection. Safe to call multiple times.
func (c *Conn) Close() error {
	// under mu so a handshake finishing concurrently sees Closed
	c.mu.Lock()
	prev := ConnState(c.state.Swap(int32(Closed)))
	raw := c.raw
	c.mu.Unlock()

	if prev == Closed {
		return nil // already closed
	}

	c.logger.Info("connection closed", "addr", c.addr)
	if raw == nil {
		return nil
	}
	return raw.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.State() == Closed
}

// Addr returns the configured server address.
func (c *Conn) Addr() string {
	return c.addr
}
