// Package logger wraps zap initialization so callers can construct a logger
// first and raise its level once configuration is parsed.
package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Logger holds the shared zap instance for the process.
type Logger struct {
	// Log is the underlying zap logger. Safe to use before Init; it is a
	// no-op logger until then.
	Log *zap.Logger
}

// New returns a Logger backed by a no-op zap instance.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the underlying logger with a production zap logger at the
// given level ("Debug", "Info", "Warn", "Error"). Returns an error if the
// level cannot be parsed or the logger cannot be built.
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	log, err := cfg.Build()
	if err != nil {
		return err
	}

	l.Log = log
	return nil
}
