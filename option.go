package tfgo

import (
	"time"
)

// ErrorAction defines the action to take when a batch fails.
type ErrorAction int

const (
	// Disconnect stops the receive loop and closes the connection.
	Disconnect ErrorAction = iota
	// Continue reports the failure and keeps receiving.
	Continue
)

// options holds the configuration shared by Conn and Session.
type options struct {
	codec    Codec
	codecSet bool
	logger   Logger
	catalog  Catalog

	// onError is called when a batch reports a failure.
	// Returns Disconnect to stop the session, Continue to keep receiving.
	onError func(error) ErrorAction
	onEvent func(Event)

	connectTimeout time.Duration // bound on the TCP handshake
	idleTimeout    time.Duration // read deadline per Receive call
	writeTimeout   time.Duration // write deadline per Send call
	receiveBuffer  int           // bytes read per Receive call
	maxReadLength  int           // maximum size of a single record
}

// Option is a function that configures connection and session options.
type Option func(*options)

// CodecOption returns an Option that replaces the default JSON codec.
func CodecOption(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
		o.codecSet = true
	}
}

// ConnectTimeoutOption returns an Option that bounds the TCP handshake.
func ConnectTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = timeout
	}
}

// IdleTimeoutOption returns an Option that sets how long a single Receive
// waits for data before reporting that nothing arrived.
func IdleTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}

// WriteTimeoutOption returns an Option that sets the write deadline for Send.
func WriteTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = timeout
	}
}

// ReceiveBufferOption returns an Option that sets the number of bytes read
// by one Receive call.
func ReceiveBufferOption(size int) Option {
	return func(o *options) {
		o.receiveBuffer = size
	}
}

// MessageMaxSize returns an Option that sets the maximum record size.
// A partial record growing past this size is discarded.
func MessageMaxSize(size int) Option {
	return func(o *options) {
		o.maxReadLength = size
	}
}

// OnErrorOption returns an Option that sets the batch failure callback.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// OnEventOption returns an Option that sets a callback invoked after each
// event has been applied to the store. Gameover and JoinGameError only
// reach the presentation layer through this hook.
func OnEventOption(cb func(Event)) Option {
	return func(o *options) {
		o.onEvent = cb
	}
}

// CatalogOption returns an Option that sets the weapon catalog consulted for
// AcquireWeapon.
func CatalogOption(catalog Catalog) Option {
	return func(o *options) {
		o.catalog = catalog
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Default configuration values.
const (
	// DefaultReceiveBuffer is the per-call read bound (10 KiB).
	DefaultReceiveBuffer = 10 * 1024
	// defaultMaxPackageLength is the default maximum size of a single record (1MB).
	defaultMaxPackageLength = 1024 * 1024
	defaultConnectTimeout   = 10 * time.Second
	defaultIdleTimeout      = 30 * time.Second
	defaultWriteTimeout     = 10 * time.Second
)

func buildOptions(opt []Option) (options, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	err := checkOptions(&opts)
	return opts, err
}

// checkOptions validates and sets default values for options.
func checkOptions(opts *options) error {
	if opts.connectTimeout <= 0 {
		opts.connectTimeout = defaultConnectTimeout
	}

	if opts.idleTimeout <= 0 {
		opts.idleTimeout = defaultIdleTimeout
	}

	if opts.writeTimeout <= 0 {
		opts.writeTimeout = defaultWriteTimeout
	}

	if opts.receiveBuffer <= 0 {
		opts.receiveBuffer = DefaultReceiveBuffer
	}

	if opts.maxReadLength <= 0 {
		opts.maxReadLength = defaultMaxPackageLength
	}

	if opts.codec == nil {
		if opts.codecSet {
			return ErrInvalidCodec
		}
		opts.codec = JSONCodec{}
	}

	if opts.catalog == nil {
		opts.catalog = DefaultCatalog()
	}

	if opts.onError == nil {
		opts.onError = func(err error) ErrorAction { return Continue }
	}

	if opts.onEvent == nil {
		opts.onEvent = func(Event) {}
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}
