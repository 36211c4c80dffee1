package tfgo

import "log/slog"

// Logger is the interface for structured logging.
// *slog.Logger satisfies it; the example client adapts zap to it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// boundLogger prepends a fixed set of key-value pairs to every call.
type boundLogger struct {
	l     Logger
	attrs []any
}

// withAttrs returns a Logger that logs attrs ahead of the per-call pairs.
func withAttrs(l Logger, attrs ...any) Logger {
	if b, ok := l.(*boundLogger); ok {
		return &boundLogger{l: b.l, attrs: append(append([]any{}, b.attrs...), attrs...)}
	}
	return &boundLogger{l: l, attrs: attrs}
}

func (b *boundLogger) args(args []any) []any {
	return append(append(make([]any, 0, len(b.attrs)+len(args)), b.attrs...), args...)
}

func (b *boundLogger) Debug(msg string, args ...any) { b.l.Debug(msg, b.args(args)...) }
func (b *boundLogger) Info(msg string, args ...any)  { b.l.Info(msg, b.args(args)...) }
func (b *boundLogger) Warn(msg string, args ...any)  { b.l.Warn(msg, b.args(args)...) }
func (b *boundLogger) Error(msg string, args ...any) { b.l.Error(msg, b.args(args)...) }
