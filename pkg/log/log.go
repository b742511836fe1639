// Package log wraps zerolog the way the teacher's pkg/log does —
// one structured logger per component — but builds loggers explicitly
// rather than through a package-global registry keyed by package name,
// since a process-wide mutable table is exactly the pattern this
// project's design notes flag as a source of cross-tenant leakage when
// it appears in domain state, and there is no reason to keep it for
// logging either.
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Mode selects console (dev) or JSON (prod) output. Matches the
// teacher's pkg/log.Mode switch.
var Mode = "dev"

// Logger is a structured, component-scoped logger.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger for component, writing to w. Pass os.Stderr for
// process-level use; tests typically pass a buffer.
func New(component string, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	base := zerolog.New(w).With().
		Str("component", component).
		Int("pid", os.Getpid()).
		Timestamp().
		Logger()
	if Mode == "" || Mode == "dev" {
		base = base.Output(zerolog.ConsoleWriter{Out: w})
	}
	return Logger{zl: base}
}

// With returns a derived logger carrying an additional field, e.g. a
// tenant id, without mutating the receiver.
func (l Logger) With(key, value string) Logger {
	return Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Info logs an informational event.
func (l Logger) Info(msg string, fields map[string]string) {
	ev := l.zl.Info()
	for k, v := range fields {
		ev = ev.Str(k, v)
	}
	ev.Msg(msg)
}

// Warn logs a warning event.
func (l Logger) Warn(msg string, fields map[string]string) {
	ev := l.zl.Warn()
	for k, v := range fields {
		ev = ev.Str(k, v)
	}
	ev.Msg(msg)
}

// Error logs err alongside msg.
func (l Logger) Error(msg string, err error, fields map[string]string) {
	ev := l.zl.Error().Err(err)
	for k, v := range fields {
		ev = ev.Str(k, v)
	}
	ev.Msg(msg)
}

// Debug logs a debug event.
func (l Logger) Debug(msg string, fields map[string]string) {
	ev := l.zl.Debug()
	for k, v := range fields {
		ev = ev.Str(k, v)
	}
	ev.Msg(msg)
}

// Nop returns a Logger that discards everything, for tests that don't
// care about log output.
func Nop() Logger {
	return Logger{zl: zerolog.Nop()}
}
