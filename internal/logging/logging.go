package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

type Logger interface {
	Log(level LogLevel, format string, args ...interface{})
}

func ParseLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := zerologLevels[level]; !ok {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

var zerologLevels = map[LogLevel]zerolog.Level{
	LogLevelDebug: zerolog.DebugLevel,
	LogLevelInfo:  zerolog.InfoLevel,
	LogLevelWarn:  zerolog.WarnLevel,
	LogLevelError: zerolog.ErrorLevel,
}

type DefaultLogger struct {
	logger zerolog.Logger
	file   *os.File
}

// NewDefaultLogger logs to stdout and, when logFile is set, appends to it.
func NewDefaultLogger(mode LogLevel, logFile string) (*DefaultLogger, error) {
	outputs := []io.Writer{zerolog.ConsoleWriter{Out: os.Stdout}}

	var file *os.File
	if logFile != "" {
		var err error
		file, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		outputs = append(outputs, file)
	}

	l := NewLogger(mode, zerolog.MultiLevelWriter(outputs...))
	l.file = file
	return l, nil
}

// NewLogger writes JSON lines to w.
func NewLogger(mode LogLevel, w io.Writer) *DefaultLogger {
	level, ok := zerologLevels[mode]
	if !ok {
		level = zerolog.InfoLevel
	}
	return &DefaultLogger{
		logger: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

// With returns a logger that tags every message with key=value.
func (l *DefaultLogger) With(key, value string) *DefaultLogger {
	return &DefaultLogger{
		logger: l.logger.With().Str(key, value).Logger(),
		file:   l.file,
	}
}

func (l *DefaultLogger) Log(level LogLevel, format string, args ...interface{}) {
	zl, ok := zerologLevels[level]
	if !ok {
		zl = zerolog.InfoLevel
	}
	l.logger.WithLevel(zl).Msgf(format, args...)
}

func (l *DefaultLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

type nopLogger struct{}

func (nopLogger) Log(LogLevel, string, ...interface{}) {}

// Nop discards everything.
func Nop() Logger {
	return nopLogger{}
}
