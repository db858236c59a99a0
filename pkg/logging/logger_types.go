package logging

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is a minimum severity. The zero value is DebugLevel.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level. Unknown values map to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Field is one structured key/value attached to a log line.
type Field struct {
	Key   string
	Value any
}

// Logger is what every navigator package logs through.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child that adds fields to every line.
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	zl    zerolog.Logger
	level *levelBox // shared with children so SetLevel applies to the whole tree
}

type levelBox struct {
	mu    sync.RWMutex
	level Level
}

// Config holds logger construction options.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // human readable console output
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (n NopLogger) With(fields ...Field) Logger     { return n }
func (NopLogger) SetLevel(level Level)              {}
func (NopLogger) GetLevel() Level                   { return InfoLevel }

func NewNopLogger() Logger {
	return NopLogger{}
}

// TimedOperation logs msg with the elapsed time when it ends.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}
