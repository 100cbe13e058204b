package meshtopo

import (
	"errors"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with the field names used across meshtopo.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr at Warn level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger writing human-readable text to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a Logger writing JSON records to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithLevel adds a mesh_level field to the logger.
func (l *Logger) WithLevel(level Level) *Logger {
	return &Logger{
		Logger: l.Logger.With("mesh_level", level.String()),
	}
}

// LogFiltered logs every item error joined in err at Warn level.
func (l *Logger) LogFiltered(err error) {
	if err == nil {
		return
	}
	for _, e := range flatten(err, nil) {
		var ie *IndexError
		if errors.As(e, &ie) {
			l.Warn("item skipped",
				"op", ie.Op,
				"mesh_level", ie.Level.String(),
				"index", ie.Index,
				"error", ie.Err,
			)
			continue
		}
		l.Warn("operation rejected", "error", e)
	}
}

// LogPropagate logs the fan-out of a propagation cycle.
func (l *Logger) LogPropagate(records, consumers int) {
	l.Debug("propagate",
		"records", records,
		"consumers", consumers,
	)
}

// flatten expands joined errors into their leaves.
func flatten(err error, dst []error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return append(dst, err)
	}
	for _, e := range joined.Unwrap() {
		dst = flatten(e, dst)
	}
	return dst
}
