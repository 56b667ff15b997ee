// Package log provides the attestation pool's structured logging, built on
// log/slog. The pool only ever logs a rejected-attestation error and a
// retention-prune notice, so the surface here is kept to exactly that: a
// subsystem-tagged logger with Debug and Error, not the general-purpose
// logging API a full node's many subsystems would need.
package log

import (
	"log/slog"
	"os"
)

// Logger is a slog.Logger scoped to one pool subsystem via a "module"
// attribute.
type Logger struct {
	inner *slog.Logger
}

// handler is shared by every Logger so that Module calls are cheap and all
// output lands on the same JSON stream. The pool has exactly one consumer
// of this package today (attestations), but the handler is not hardcoded
// to that name so a future subsystem can call Module with its own.
var handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})

// Module returns a Logger that tags every record it emits with name.
func Module(name string) *Logger {
	return &Logger{inner: slog.New(handler).With("module", name)}
}

// Debug logs an expected, low-severity event such as a retention prune.
func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }

// Error logs a rejected attestation or a programming error the caller
// needs to see.
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
