package hyperviz

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/hyperviz/device"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called while surfaces render on another goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for hyperviz and the device package.
// By default nothing is logged. Pass nil to restore the silent default.
//
// Log levels used by hyperviz:
//   - [slog.LevelDebug]: per-frame diagnostics (uniform derivation, lease checks)
//   - [slog.LevelInfo]: lifecycle events (backend selected, restoration)
//   - [slog.LevelWarn]: recoverable failures (software fallback, unknown ids)
//
// Example:
//
//	hyperviz.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	device.SetLogger(l)
}

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
