// Package logger provides the leveled logging interface used by dict and
// its command line tools.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const RFC3339UsecTz0 = "2006-01-02T15:04:05.000000Z07:00"

// Ensure nopLogger implements interface.
var _ Logger = &nopLogger{}

// Logger represents an interface for a shared logger.
type Logger interface {
	Printf(format string, v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Panicf(format string, v ...any)
	// WithPrefix returns a new Logger with the same configuration as
	// this one, but all logs will have the given prefix.
	WithPrefix(prefix string) Logger
}

const (
	LevelPanic = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func LevelPrefix(level int) string {
	return [...]string{"PANIC: ", "ERROR: ", "WARN:  ", "INFO:  ", "DEBUG: "}[level]
}

var StderrLogger Logger = NewStandardLogger(os.Stderr)

// NopLogger represents a Logger that doesn't do anything.
var NopLogger Logger = &nopLogger{}

type nopLogger struct{}

func (n *nopLogger) Printf(format string, v ...any) {}
func (n *nopLogger) Debugf(format string, v ...any) {}
func (n *nopLogger) Infof(format string, v ...any)  {}
func (n *nopLogger) Warnf(format string, v ...any)  {}
func (n *nopLogger) Errorf(format string, v ...any) {}
func (n *nopLogger) Panicf(format string, v ...any) {}

func (n *nopLogger) WithPrefix(prefix string) Logger {
	return n
}

// standardLogger is a basic implementation of Logger based on log.Logger.
type standardLogger struct {
	logger    *log.Logger
	verbosity int
	prefix    string
	w         io.Writer
}

// formatLog writes in UTC with constant width and microsecond resolution.
type formatLog struct {
	w      io.Writer
	prefix string
}

func (fl formatLog) Write(b []byte) (int, error) {
	return fmt.Fprintf(fl.w, "%v %s%s", time.Now().UTC().Format(RFC3339UsecTz0), fl.prefix, b)
}

func newStandardLogger(w io.Writer, verbosity int, prefix string) *standardLogger {
	l := log.New(formatLog{w: w, prefix: prefix}, "", 0)
	return &standardLogger{
		logger:    l,
		verbosity: verbosity,
		prefix:    prefix,
		w:         w,
	}
}

// NewStandardLogger returns a Logger writing Info and above to w.
func NewStandardLogger(w io.Writer) Logger {
	return newStandardLogger(w, LevelInfo, "")
}

// NewVerboseLogger returns a Logger writing every level, Debug included, to w.
func NewVerboseLogger(w io.Writer) Logger {
	return newStandardLogger(w, LevelDebug, "")
}

func (s *standardLogger) printf(level int, format string, v ...any) {
	if level > s.verbosity {
		return
	}
	s.logger.Printf(LevelPrefix(level)+format, v...)
}

func (s *standardLogger) Printf(format string, v ...any) {
	s.printf(LevelInfo, format, v...)
}

func (s *standardLogger) Debugf(format string, v ...any) {
	s.printf(LevelDebug, format, v...)
}

func (s *standardLogger) Infof(format string, v ...any) {
	s.printf(LevelInfo, format, v...)
}

func (s *standardLogger) Warnf(format string, v ...any) {
	s.printf(LevelWarn, format, v...)
}

func (s *standardLogger) Errorf(format string, v ...any) {
	s.printf(LevelError, format, v...)
}

func (s *standardLogger) Panicf(format string, v ...any) {
	s.printf(LevelPanic, format, v...)
	panic(fmt.Sprintf(format, v...))
}

func (s *standardLogger) WithPrefix(prefix string) Logger {
	return newStandardLogger(s.w, s.verbosity, s.prefix+prefix)
}

// Logfer is a thing that has only a Logf() method, like for instance,
// testing.T or testing.B.
type Logfer interface {
	Logf(format string, v ...any)
}

// LogfLogger is a test logger that wraps something that has a Logf interface
// and makes it act like our logger.
type LogfLogger struct {
	wrapped Logfer
	prefix  string
}

func NewLogfLogger(l Logfer) *LogfLogger {
	return &LogfLogger{wrapped: l}
}

func (ll *LogfLogger) logf(level int, format string, v ...any) {
	ll.wrapped.Logf(ll.prefix+LevelPrefix(level)+format, v...)
}

func (ll *LogfLogger) Printf(format string, v ...any) { ll.logf(LevelInfo, format, v...) }
func (ll *LogfLogger) Debugf(format string, v ...any) { ll.logf(LevelDebug, format, v...) }
func (ll *LogfLogger) Infof(format string, v ...any)  { ll.logf(LevelInfo, format, v...) }
func (ll *LogfLogger) Warnf(format string, v ...any)  { ll.logf(LevelWarn, format, v...) }
func (ll *LogfLogger) Errorf(format string, v ...any) { ll.logf(LevelError, format, v...) }
func (ll *LogfLogger) Panicf(format string, v ...any) { ll.logf(LevelPanic, format, v...) }

func (ll *LogfLogger) WithPrefix(prefix string) Logger {
	return &LogfLogger{wrapped: ll.wrapped, prefix: ll.prefix + prefix}
}

// BufferLogger is a Logger that holds every message, Debug included,
// in a buffer for review.
type BufferLogger struct {
	mu     sync.Mutex
	buf    *bytes.Buffer
	prefix string
}

// NewBufferLogger returns a new instance of BufferLogger.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{buf: &bytes.Buffer{}}
}

func (b *BufferLogger) logf(level int, format string, v ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.buf, b.prefix+LevelPrefix(level)+format+"\n", v...)
}

func (b *BufferLogger) Printf(format string, v ...any) { b.logf(LevelInfo, format, v...) }
func (b *BufferLogger) Debugf(format string, v ...any) { b.logf(LevelDebug, format, v...) }
func (b *BufferLogger) Infof(format string, v ...any)  { b.logf(LevelInfo, format, v...) }
func (b *BufferLogger) Warnf(format string, v ...any)  { b.logf(LevelWarn, format, v...) }
func (b *BufferLogger) Errorf(format string, v ...any) { b.logf(LevelError, format, v...) }
func (b *BufferLogger) Panicf(format string, v ...any) { b.logf(LevelPanic, format, v...) }

// WithPrefix shares the underlying buffer with the returned logger.
func (b *BufferLogger) WithPrefix(prefix string) Logger {
	return &bufferView{parent: b, prefix: prefix}
}

// String returns everything logged so far.
func (b *BufferLogger) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type bufferView struct {
	parent *BufferLogger
	prefix string
}

func (v *bufferView) logf(level int, format string, args ...any) {
	v.parent.logf(level, v.prefix+format, args...)
}

func (v *bufferView) Printf(format string, a ...any) { v.logf(LevelInfo, format, a...) }
func (v *bufferView) Debugf(format string, a ...any) { v.logf(LevelDebug, format, a...) }
func (v *bufferView) Infof(format string, a ...any)  { v.logf(LevelInfo, format, a...) }
func (v *bufferView) Warnf(format string, a ...any)  { v.logf(LevelWarn, format, a...) }
func (v *bufferView) Errorf(format string, a ...any) { v.logf(LevelError, format, a...) }
func (v *bufferView) Panicf(format string, a ...any) { v.logf(LevelPanic, format, a...) }

func (v *bufferView) WithPrefix(prefix string) Logger {
	return &bufferView{parent: v.parent, prefix: v.prefix + prefix}
}
