// Package logging provides the single process-wide structured logger for
// safe-eval: every component logs through one configured *zap.Logger
// rather than writing to stdout/stderr directly.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu  sync.Mutex
	log *zap.Logger
)

// Init installs the process-wide logger. debug=true enables development
// (human-readable, DPanic-on-misuse) logging; otherwise a production JSON
// logger is installed. Safe to call more than once; the last call wins.
func Init(debug bool) error {
	var l *zap.Logger
	var err error
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}

	mu.Lock()
	log = l
	mu.Unlock()
	return nil
}

// L returns the process-wide logger, lazily falling back to a no-op logger
// if Init was never called (e.g. inside unit tests that exercise packages
// directly without the CLI entrypoint).
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = zap.NewNop()
	}
	return log
}

// Sync flushes any buffered log entries. Call during CLI shutdown.
func Sync() {
	mu.Lock()
	l := log
	mu.Unlock()
	if l != nil {
		_ = l.Sync()
	}
}
