package tfgo

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors returned by connection operations.
var (
	// ErrInvalidAddress is returned when no server address is configured.
	ErrInvalidAddress = errors.New("invalid server address")
	// ErrInvalidCodec is returned when a nil codec is provided.
	ErrInvalidCodec = errors.New("invalid codec")
	// ErrNotConnected is returned by Send and Receive outside the Connected state.
	ErrNotConnected = errors.New("not connected")
	// ErrConnectionClosed is returned when operating on a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrMessageTooLarge is returned when a record exceeds the maximum allowed size.
	ErrMessageTooLarge = errors.New("message too large")
)

// Errors returned by handlers and builders.
var (
	// ErrPickupNotFound is returned when a PickupUpdate names a location with no pickup.
	ErrPickupNotFound = errors.New("pickup not found")
	// ErrBoundaryCorners is returned when a game boundary is not exactly four points.
	ErrBoundaryCorners = errors.New("boundary must have exactly 4 corners")
	// ErrUnknownWeapon is returned when a weapon name is absent from the catalog.
	ErrUnknownWeapon = errors.New("unknown weapon")
)

// ConnectError reports a failed or timed out handshake. The connection stays
// usable for a fresh Connect.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Timeout reports whether the handshake failed because the deadline passed.
func (e *ConnectError) Timeout() bool {
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// DecodeError is returned for a line that is not a JSON object carrying a Type.
// It aborts the remainder of the batch.
type DecodeError struct {
	Line []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode record %q: %v", truncate(e.Line, 64), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnknownTypeError is returned for a record whose Type has no handler.
type UnknownTypeError struct {
	Type MessageType
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", string(e.Type))
}

// FieldError is returned when a payload misses a required field or carries
// one of the wrong type. The record is dropped without mutating state.
type FieldError struct {
	Type  MessageType
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: invalid payload: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("%s: field %s: %v", e.Type, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var errMissing = errors.New("missing")

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
