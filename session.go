package tfgo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// BatchResult describes the processing of the records recovered from one
// receive buffer.
type BatchResult struct {
	// Records is the number of complete lines in the batch.
	Records int
	// Applied is the number of records successfully dispatched.
	Applied int
	// Skipped is the number of records left unprocessed after a decode error.
	Skipped int

	err error
}

// Err returns every failure of the batch combined, or nil.
func (r BatchResult) Err() error {
	return r.err
}

// Errors returns the individual failures of the batch.
func (r BatchResult) Errors() []error {
	return multierr.Errors(r.err)
}

// OK reports whether every record was applied.
func (r BatchResult) OK() bool {
	return r.err == nil
}

// Session drives one game session over a Conn: outbound messages are
// encoded and sent synchronously, inbound records are decoded and dispatched
// to the Store on the receiving goroutine.
type Session struct {
	id         string
	conn       *Conn
	store      *Store
	codec      Codec
	dispatcher *Dispatcher
	logger     Logger
	opts       options

	recvMu sync.Mutex // serializes Step callers
	lines  *LineBuffer
}

// NewSession returns a session over conn writing to store. It inherits the
// options conn was created with; opt overrides them.
func NewSession(conn *Conn, store *Store, opt ...Option) (*Session, error) {
	if conn == nil || store == nil {
		return nil, errors.New("session requires a connection and a store")
	}

	opts := conn.opts
	for _, o := range opt {
		o(&opts)
	}
	if err := checkOptions(&opts); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := withAttrs(opts.logger, "session", id)
	opts.logger = logger

	return &Session{
		id:         id,
		conn:       conn,
		store:      store,
		codec:      opts.codec,
		dispatcher: newDispatcher(store, opts),
		logger:     logger,
		opts:       opts,
		lines:      NewLineBuffer(opts.maxReadLength),
	}, nil
}

// ID returns the session identifier attached to its log lines.
func (s *Session) ID() string {
	return s.id
}

// Store returns the session's game state.
func (s *Session) Store() *Store {
	return s.store
}

// Conn returns the underlying connection.
func (s *Session) Conn() *Conn {
	return s.conn
}

// Send encodes msg and writes it to the server.
func (s *Session) Send(msg Message) error {
	b, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}
	if err := s.conn.Send(b); err != nil {
		return errors.Wrapf(err, "send %s", msg.Action())
	}
	s.logger.Debug("message sent", "action", msg.Action(), "bytes", len(b))
	return nil
}

// Step receives until at least one complete record is buffered, then
// dispatches the whole batch in order. The returned error is a transport or
// context error; record failures are reported through the BatchResult.
func (s *Session) Step(ctx context.Context) (BatchResult, error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return BatchResult{}, err
		}

		data, err := s.conn.Receive()
		if err != nil {
			return BatchResult{}, err
		}
		if data == nil {
			continue
		}

		lines, err := s.lines.Feed(data)
		if err != nil {
			s.logger.Warn("oversized record discarded", "error", err.Error())
			res := s.handleBatch(lines)
			res.err = multierr.Append(err, res.err)
			return res, nil
		}
		if len(lines) == 0 {
			s.logger.Debug("partial record buffered", "pending", s.lines.Pending())
			continue
		}
		return s.handleBatch(lines), nil
	}
}

// HandleBuffer frames b together with any partial record left from earlier
// buffers and dispatches the complete records. It is the receive path of Step
// without the socket and shares its line buffer.
func (s *Session) HandleBuffer(b []byte) BatchResult {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	lines, err := s.lines.Feed(b)
	res := s.handleBatch(lines)
	if err != nil {
		res.err = multierr.Append(err, res.err)
	}
	return res
}

// handleBatch decodes and dispatches lines in order. A line that does not
// decode aborts the rest of the batch; an unknown type or an invalid payload
// only drops that record.
func (s *Session) handleBatch(lines [][]byte) BatchResult {
	res := BatchResult{Records: len(lines)}

	for i, line := range lines {
		rec, err := s.codec.Decode(line)
		if err != nil {
			res.Skipped = len(lines) - i - 1
			res.err = multierr.Append(res.err, err)
			s.logger.Warn("undecodable record, dropping batch remainder",
				"error", err.Error(), "skipped", res.Skipped)
			break
		}

		if err := s.dispatcher.Dispatch(rec); err != nil {
			res.err = multierr.Append(res.err, err)
			var unknown *UnknownTypeError
			if errors.As(err, &unknown) {
				s.logger.Warn("unknown message type", "type", unknown.Type)
			} else {
				s.logger.Warn("record dropped", "type", rec.Type, "error", err.Error())
			}
			continue
		}
		res.Applied++
	}

	return res
}

// Exchange sends msg and processes the next batch of records, for
// request/response transitions such as starting or leaving a game. It must
// not be used while Run is active.
func (s *Session) Exchange(ctx context.Context, msg Message) (BatchResult, error) {
	if err := s.Send(msg); err != nil {
		return BatchResult{}, err
	}
	return s.Step(ctx)
}

// Run processes batches until ctx is canceled or the connection fails.
// Batch failures are passed to the OnErrorOption callback, which decides
// whether to keep going. The connection is closed when Run returns.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("session started", "addr", s.conn.Addr())

	group, child := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.receiveLoop(child)
	})

	// unblocks a pending Receive once the loop should stop
	group.Go(func() error {
		<-child.Done()
		return s.conn.Close()
	})

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Info("session ended with error", "error", err.Error())
	} else {
		s.logger.Info("session ended")
	}
	return err
}

func (s *Session) receiveLoop(ctx context.Context) error {
	for {
		res, err := s.Step(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}

		if batchErr := res.Err(); batchErr != nil {
			if s.opts.onError(batchErr) == Disconnect {
				return batchErr
			}
		}
	}
}
