package logging

// Structured logging for the framing engine, on zerolog.
//
// The level ladder is Silent < Error < Info < Verbose < Debug. Verbose and
// Debug both write zerolog debug events; zerolog's trace level is filtered by
// its global level unless a program lowers it. Console output goes to
// stderr: errors always, everything else only at Verbose or above. A log
// file, when set, receives every enabled message as JSON lines.

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lj123as/Device-Verification-Kit/internal/hexdump"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelVerbose
	LogLevelDebug
)

// ParseLevel maps a configuration string onto a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent", "off", "none", "disabled":
		return LogLevelSilent, nil
	case "error":
		return LogLevelError, nil
	case "", "info":
		return LogLevelInfo, nil
	case "verbose":
		return LogLevelVerbose, nil
	case "debug", "trace":
		return LogLevelDebug, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q (want silent, error, info, verbose or debug)", s)
	}
}

func (l LogLevel) String() string {
	switch l {
	case LogLevelSilent:
		return "silent"
	case LogLevelError:
		return "error"
	case LogLevelInfo:
		return "info"
	case LogLevelVerbose:
		return "verbose"
	case LogLevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Logger provides structured logging. Level filtering happens here rather
// than in zerolog so SetLevel is safe while other goroutines log.
type Logger struct {
	mu    sync.Mutex
	level atomic.Int32
	file  *os.File
	zl    zerolog.Logger
}

// NewLogger creates a new logger
func NewLogger(level LogLevel, logFile string) (*Logger, error) {
	l := &Logger{}
	l.level.Store(int32(level))

	writers := []io.Writer{consoleGate{
		w:      zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true, TimeFormat: time.RFC3339},
		logger: l,
	}}
	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.file = file
		writers = append(writers, file)
	}

	l.zl = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Timestamp().Logger()
	return l, nil
}

// NewWriterLogger logs every enabled message to w, as JSON lines or, when
// text is set, in zerolog's console format.
func NewWriterLogger(level LogLevel, w io.Writer, text bool) *Logger {
	if text {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	}
	l := &Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
	l.level.Store(int32(level))
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Close closes the logger and flushes all data
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Error logs an error message
func (l *Logger) Error(format string, v ...any) {
	l.At(LogLevelError).Msgf(format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...any) {
	l.At(LogLevelInfo).Msgf(format, v...)
}

// Verbose logs a verbose message
func (l *Logger) Verbose(format string, v ...any) {
	l.At(LogLevelVerbose).Msgf(format, v...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...any) {
	l.At(LogLevelDebug).Msgf(format, v...)
}

// At starts a structured event at level. It returns nil when the level is
// disabled; zerolog treats a nil event as a no-op, so callers chain fields
// unconditionally.
func (l *Logger) At(level LogLevel) *zerolog.Event {
	if l == nil || level <= LogLevelSilent || LogLevel(l.level.Load()) < level {
		return nil
	}
	switch level {
	case LogLevelError:
		return l.zl.Error()
	case LogLevelInfo:
		return l.zl.Info()
	default:
		return l.zl.Debug()
	}
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level LogLevel) bool {
	return l != nil && level > LogLevelSilent && LogLevel(l.level.Load()) >= level
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() LogLevel {
	return LogLevel(l.level.Load())
}

// LogHex logs hex data (for debug level)
func (l *Logger) LogHex(label string, data []byte) {
	if !l.Enabled(LogLevelDebug) {
		return
	}
	l.At(LogLevelDebug).Int("len", len(data)).Msgf("%s: %s", label, hexdump.Spaced(data))
}

// consoleGate forwards errors to the console always and other levels only
// when the logger runs at Verbose or above.
type consoleGate struct {
	w      io.Writer
	logger *Logger
}

func (g consoleGate) Write(p []byte) (int, error) {
	return g.w.Write(p)
}

func (g consoleGate) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel && LogLevel(g.logger.level.Load()) < LogLevelVerbose {
		return len(p), nil
	}
	return g.w.Write(p)
}
