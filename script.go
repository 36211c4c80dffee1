package tfgo

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// NewRecord marshals data as the payload of a record of type t.
func NewRecord(t MessageType, data any) (Record, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return Record{}, errors.Wrapf(err, "encode %s payload", t)
	}
	return Record{Type: t, Data: b}, nil
}

// EncodeRecords renders records in the server's wire format, one per line.
func EncodeRecords(records ...Record) ([]byte, error) {
	var out []byte
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s record", r.Type)
		}
		out = append(out, b...)
		out = append(out, '\n')
	}
	return out, nil
}

// ActionRecord is a client record as seen by the fixture server.
type ActionRecord struct {
	Action Action          `json:"Action"`
	Data   json.RawMessage `json:"Data"`
}

// ScriptHandler is a ConnHandler that answers each client action with a
// fixed list of records.
type ScriptHandler struct {
	// Greeting is written as soon as a client connects.
	Greeting []Record
	// Replies maps an action to the records written after receiving it.
	Replies map[Action][]Record
	// ChunkSize splits every write into pieces of at most this many bytes,
	// so records straddle read boundaries. Zero writes whole replies.
	ChunkSize int
	// ChunkDelay is slept between chunks.
	ChunkDelay time.Duration
	// Logger defaults to the slog default logger.
	Logger Logger

	mu       sync.Mutex
	received []ActionRecord
}

// Received returns the actions read so far, in arrival order.
func (h *ScriptHandler) Received() []ActionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ActionRecord(nil), h.received...)
}

// Handle implements ConnHandler.
func (h *ScriptHandler) Handle(ctx context.Context, conn *net.TCPConn) {
	logger := h.Logger
	if logger == nil {
		logger = defaultLogger()
	}
	logger = withAttrs(logger, "remote_addr", conn.RemoteAddr())

	if err := h.write(conn, h.Greeting); err != nil {
		logger.Debug("greeting failed", "error", err.Error())
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), defaultMaxPackageLength)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		var rec ActionRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			logger.Warn("bad client record", "error", err.Error())
			continue
		}

		h.mu.Lock()
		h.received = append(h.received, rec)
		h.mu.Unlock()
		logger.Debug("client action", "action", rec.Action)

		if err := h.write(conn, h.Replies[rec.Action]); err != nil {
			logger.Debug("reply failed", "action", rec.Action, "error", err.Error())
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("client read ended", "error", err.Error())
	}
}

func (h *ScriptHandler) write(conn net.Conn, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	b, err := EncodeRecords(records...)
	if err != nil {
		return err
	}
	if h.ChunkSize <= 0 {
		_, err = conn.Write(b)
		return err
	}
	for len(b) > 0 {
		n := min(h.ChunkSize, len(b))
		if _, err := conn.Write(b[:n]); err != nil {
			return err
		}
		b = b[n:]
		if len(b) > 0 && h.ChunkDelay > 0 {
			time.Sleep(h.ChunkDelay)
		}
	}
	return nil
}
