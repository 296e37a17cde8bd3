package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin structured front over zerolog. The zero value is not
// usable; build one with New or Nop.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or a file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	tf := cfg.TimeFormat
	if tf == "" {
		tf = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = tf
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: tf}
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().CallerWithSkipFrameCount(4).Logger()
	return &Logger{zl: zl}, nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.value())
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { write(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { write(l.zl.Error(), msg, fields) }

func write(e *zerolog.Event, msg string, fields []Field) {
	// Disabled levels return a nil event.
	if e == nil {
		return
	}
	for _, f := range fields {
		f.add(e)
	}
	e.Msg(msg)
}

// Field is one typed key/value pair.
type Field struct {
	Key   string
	add   func(*zerolog.Event)
	value func() interface{}
}

func String(key, v string) Field {
	return Field{Key: key,
		add:   func(e *zerolog.Event) { e.Str(key, v) },
		value: func() interface{} { return v }}
}

func Strings(key string, v []string) Field {
	return String(key, strings.Join(v, ", "))
}

func Int(key string, v int) Field {
	return Field{Key: key,
		add:   func(e *zerolog.Event) { e.Int(key, v) },
		value: func() interface{} { return v }}
}

func Int64(key string, v int64) Field {
	return Field{Key: key,
		add:   func(e *zerolog.Event) { e.Int64(key, v) },
		value: func() interface{} { return v }}
}

// Duration logs whole milliseconds.
func Duration(key string, v time.Duration) Field {
	return Int64(key, v.Milliseconds())
}

// Error logs under the "error" key. A nil error logs nothing.
func Error(err error) Field {
	return Field{Key: zerolog.ErrorFieldName,
		add: func(e *zerolog.Event) { e.Err(err) },
		value: func() interface{} {
			if err == nil {
				return nil
			}
			return err.Error()
		}}
}
