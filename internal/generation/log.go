package generation

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger sets the logger used by the pipeline. By default nothing is
// logged. Pass nil to restore that.
//
// Levels:
//   - [slog.LevelDebug]: stage transitions, pack queue pressure
//   - [slog.LevelInfo]: generating, triangulated and packed chunk
//   - [slog.LevelError]: faults, just before the fault handler runs
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current pipeline logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
