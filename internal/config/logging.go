package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// ParseLogLevel parses a log level string. Unknown values fall back to error.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	case "info":
		return LogLevelInfo
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelOff:
		return zerolog.Disabled
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Logger writes leveled JSON lines through zerolog. File output is rotated
// by lumberjack.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	zl       zerolog.Logger
	closer   io.Closer
	filePath string
}

// NewLogger creates a logger writing to filePath with default rotation.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	return NewLoggerFromConfig(LoggingConfig{Level: level.String(), File: filePath})
}

// NewLoggerFromConfig creates a file logger from the logging section.
func NewLoggerFromConfig(cfg LoggingConfig) (*Logger, error) {
	level := ParseLogLevel(cfg.Level)
	if level == LogLevelOff || cfg.File == "" {
		l := NullLogger()
		l.level = level
		return l, nil
	}

	filePath, err := ExpandHome(cfg.File)
	if err != nil {
		return nil, err
	}

	// Ensure directory exists
	if err = os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, err
	}

	maxSize, maxAge := cfg.MaxSizeMB, cfg.MaxAgeDays
	if maxSize <= 0 {
		maxSize = 10
	}
	if maxAge <= 0 {
		maxAge = 14
	}
	rotator := &lumberjack.Logger{
		Filename: filePath,
		MaxSize:  maxSize, // megabytes
		MaxAge:   maxAge,  // days
	}

	l := NewWriterLogger(level, rotator)
	l.closer = rotator
	l.filePath = filePath
	return l, nil
}

// NewWriterLogger creates a logger writing to w.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level: level,
		zl:    zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger(),
	}
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{level: LogLevelOff, zl: zerolog.Nop()}
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.zl = l.zl.Level(level.zerolog())
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// FilePath returns the resolved log file path, or "" when not logging to a file.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LogLevelInfo, format, args...)
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LogLevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

// Writer returns an io.Writer that writes to the logger at the specified level.
func (l *Logger) Writer(level LogLevel) io.Writer {
	return &logWriter{logger: l, level: level}
}

// log writes a log message if the level is appropriate.
func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level == LogLevelOff || level > l.level {
		return
	}

	var ev *zerolog.Event
	switch level {
	case LogLevelDebug:
		ev = l.zl.Debug()
	case LogLevelInfo:
		ev = l.zl.Info()
	case LogLevelWarn:
		ev = l.zl.Warn()
	default:
		ev = l.zl.Error()
	}
	ev.Msg(fmt.Sprintf(format, args...))
}

// logWriter implements io.Writer for the logger.
type logWriter struct {
	logger *Logger
	level  LogLevel
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.logger.log(w.level, "%s", strings.TrimSpace(string(p)))
	return len(p), nil
}
