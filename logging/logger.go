// Package logging provides the Logger collaborator contract the engine
// consumes for diagnostics, plus a logrus-backed production implementation.
package logging

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the level-tagged, thread-safe text sink the engine treats as
// an external collaborator. All methods are safe for concurrent use.
type Logger interface {
	Info(format string, args ...any)
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// LogrusLogger adapts *logrus.Logger to the Logger interface.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus wraps l, optionally scoping every line with fields (e.g. an
// engine id). logrus.Logger is already safe for concurrent use, so no
// extra locking is needed here.
func NewLogrus(l *logrus.Logger, fields logrus.Fields) *LogrusLogger {
	if l == nil {
		l = logrus.New()
	}
	return &LogrusLogger{entry: l.WithFields(fields)}
}

func (l *LogrusLogger) Info(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *LogrusLogger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *LogrusLogger) Error(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

// Noop discards everything. Useful as a default when no logger is
// supplied and for tests that don't care about log output.
type Noop struct{}

func (Noop) Info(format string, args ...any)  {}
func (Noop) Debug(format string, args ...any) {}
func (Noop) Error(format string, args ...any) {}

// Recording captures every line written to it, for assertions in tests.
type Recording struct {
	mu    sync.Mutex
	Lines []string
}

func (r *Recording) Info(format string, args ...any)  { r.record("INFO", format, args...) }
func (r *Recording) Debug(format string, args ...any) { r.record("DEBUG", format, args...) }
func (r *Recording) Error(format string, args ...any) { r.record("ERROR", format, args...) }

func (r *Recording) record(level, format string, args ...any) {
	line := fmt.Sprintf("[%s] "+format, append([]any{level}, args...)...)
	r.mu.Lock()
	r.Lines = append(r.Lines, line)
	r.mu.Unlock()
}

// Snapshot returns a copy of the lines recorded so far.
func (r *Recording) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Lines))
	copy(out, r.Lines)
	return out
}
