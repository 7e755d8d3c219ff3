package prp

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Logger is the full logging surface. Sub-packages take the subset they
// need; *DefaultLogger satisfies all of them.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	// With returns a logger tagging its lines with scope under this one.
	// Scoped loggers share the debug switch of their root.
	With(scope string) Logger
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// logSwitch is the debug flag shared by a root logger and its scopes.
type logSwitch struct {
	mu    sync.Mutex
	debug bool
}

type DefaultLogger struct {
	sw    *logSwitch
	scope string
	out   *log.Logger
	err   *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewWriterLogger(os.Stdout, os.Stderr, prefix, debug)
}

// NewWriterLogger sends debug and info lines to out, warnings and errors to
// errOut.
func NewWriterLogger(out, errOut io.Writer, prefix string, debug bool) *DefaultLogger {
	flags := log.Ltime | log.Lmicroseconds
	return &DefaultLogger{
		sw:    &logSwitch{debug: debug},
		scope: prefix,
		out:   log.New(out, "", flags),
		err:   log.New(errOut, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.sw.mu.Lock()
	defer l.sw.mu.Unlock()
	return l.sw.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.sw.mu.Lock()
	l.sw.debug = enabled
	l.sw.mu.Unlock()
}

func (l *DefaultLogger) With(scope string) Logger {
	if l.scope != "" {
		scope = l.scope + "/" + scope
	}
	return &DefaultLogger{sw: l.sw, scope: scope, out: l.out, err: l.err}
}

func (l *DefaultLogger) line(level string, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.scope == "" {
		return level + " " + msg
	}
	return fmt.Sprintf("%-5s [%s] %s", level, l.scope, msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.out.Print(l.line("DEBUG", format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.line("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.line("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.line("ERROR", format, args...))
}

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool    { return false }
func (nopLogger) SetDebug(bool)         {}
func (n nopLogger) With(string) Logger  { return n }
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
