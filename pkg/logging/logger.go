package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// NewJSONLogger creates a logger that writes one JSON object per line.
func NewJSONLogger(writer io.Writer, level Level) *ZeroLogger {
	zl := zerolog.New(writer).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return &ZeroLogger{zl: zl, level: &levelBox{level: level}}
}

// New creates a logger from Config, writing to stdout.
func New(cfg Config) *ZeroLogger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a logger from Config writing to w.
func NewWithWriter(cfg Config, w io.Writer) *ZeroLogger {
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return NewJSONLogger(w, ParseLevel(cfg.Level))
}

// NewDefaultLogger creates a logger that writes to stdout at INFO level
func NewDefaultLogger() *ZeroLogger {
	return NewJSONLogger(os.Stdout, InfoLevel)
}

func (l *ZeroLogger) log(level Level, msg string, fields ...Field) {
	if level < l.GetLevel() {
		return
	}

	ev := l.zl.WithLevel(level.zerolog())
	for _, f := range fields {
		ev = appendField(ev, f)
	}
	ev.Msg(msg)
}

func appendField(ev *zerolog.Event, f Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case nil:
		return ev.Interface(f.Key, nil)
	case string:
		return ev.Str(f.Key, v)
	case int:
		return ev.Int(f.Key, v)
	case int64:
		return ev.Int64(f.Key, v)
	case uint64:
		return ev.Uint64(f.Key, v)
	case float64:
		return ev.Float64(f.Key, v)
	case bool:
		return ev.Bool(f.Key, v)
	default:
		return ev.Interface(f.Key, v)
	}
}

// Debug logs a debug-level message
func (l *ZeroLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info-level message
func (l *ZeroLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning-level message
func (l *ZeroLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error-level message
func (l *ZeroLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With creates a child logger with the given fields pre-set
func (l *ZeroLogger) With(fields ...Field) Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &ZeroLogger{zl: ctx.Logger(), level: l.level}
}

// SetLevel sets the minimum log level
func (l *ZeroLogger) SetLevel(level Level) {
	l.level.mu.Lock()
	defer l.level.mu.Unlock()
	l.level.level = level
}

// GetLevel returns the current log level
func (l *ZeroLogger) GetLevel() Level {
	l.level.mu.RLock()
	defer l.level.mu.RUnlock()
	return l.level.level
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// DefaultLogger returns the process-wide logger. Until SetDefaultLogger is
// called it writes JSON to stderr at LOG_LEVEL (info when unset).
func DefaultLogger() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewJSONLogger(os.Stderr, ParseLevel(os.Getenv("LOG_LEVEL")))
	}
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger.
func SetDefaultLogger(logger Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

func Debug(msg string, fields ...Field) { DefaultLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { DefaultLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { DefaultLogger().Warn(msg, fields...) }

// ErrorLog is Error on the default logger; Error is the field constructor.
func ErrorLog(msg string, fields ...Field) { DefaultLogger().Error(msg, fields...) }

// With returns a child of the default logger.
func With(fields ...Field) Logger {
	return DefaultLogger().With(fields...)
}

// StartTimer starts a TimedOperation; End or EndError logs it.
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

func (t *TimedOperation) End() {
	elapsed := time.Since(t.start)
	t.logger.Info(t.msg, append(t.fields, Latency(elapsed))...)
}

// EndError logs at error level with err attached.
func (t *TimedOperation) EndError(err error) {
	elapsed := time.Since(t.start)
	t.logger.Error(t.msg, append(t.fields, Latency(elapsed), Error(err))...)
}
