package tfgo

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Codec is the interface for record encoding and decoding.
//
// Framing is not the codec's concern: the session splits the byte stream into
// lines with a LineBuffer and hands the codec one line at a time.
type Codec interface {
	// Decode decodes one inbound line into a Record.
	Decode(line []byte) (Record, error)
	// Encode encodes an outbound Message, including the trailing delimiter.
	Encode(Message) ([]byte, error)
}

// JSONCodec is the newline-delimited JSON codec spoken by the game server.
type JSONCodec struct{}

// Decode parses line as {"Type": ..., "Data": ...}. A line that is not a JSON
// object or carries no Type yields a *DecodeError.
func (JSONCodec) Decode(line []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Record{}, &DecodeError{Line: line, Err: err}
	}
	if rec.Type == "" {
		return Record{}, &DecodeError{Line: line, Err: errors.New("missing Type")}
	}
	return rec, nil
}

// Encode serializes m as a compact {"Action": ..., "Data": ...} object
// followed by a newline.
func (JSONCodec) Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("encode nil message")
	}
	b, err := json.Marshal(envelope{Action: m.Action(), Data: m})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", m.Action())
	}
	return append(b, '\n'), nil
}

// LineBuffer accumulates receive buffers and yields complete lines. A record
// split across reads is held until its newline arrives.
type LineBuffer struct {
	buf []byte
	max int

	// discarding is set after an overflow: bytes up to and including the
	// next newline belong to the dropped record.
	discarding bool
}

// NewLineBuffer returns a LineBuffer that rejects partial lines longer than max bytes.
func NewLineBuffer(max int) *LineBuffer {
	if max <= 0 {
		max = defaultMaxPackageLength
	}
	return &LineBuffer{max: max}
}

// Feed appends b and returns every complete line in arrival order, without
// delimiters. Empty lines are skipped. If the unterminated remainder grows
// past the limit the buffer is cleared and ErrMessageTooLarge is returned
// together with any lines completed by this call; the rest of that record,
// up to its newline, is dropped by later calls.
func (l *LineBuffer) Feed(b []byte) ([][]byte, error) {
	if l.discarding {
		i := bytes.IndexByte(b, '\n')
		if i < 0 {
			return nil, nil
		}
		b = b[i+1:]
		l.discarding = false
	}

	l.buf = append(l.buf, b...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimRight(l.buf[:i], "\r")
		l.buf = l.buf[i+1:]
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		// copy out: l.buf is reused by later appends
		lines = append(lines, append([]byte(nil), line...))
	}

	if len(l.buf) > l.max {
		l.Reset()
		l.discarding = true
		return lines, ErrMessageTooLarge
	}

	// compact so the backing array does not grow without bound
	if len(l.buf) == 0 {
		l.buf = l.buf[:0:0]
	}
	return lines, nil
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (l *LineBuffer) Pending() int {
	return len(l.buf)
}

// Reset discards any partial line and leaves the buffer at a record boundary.
func (l *LineBuffer) Reset() {
	l.buf = nil
	l.discarding = false
}
