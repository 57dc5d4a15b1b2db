package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger keeps the tagged one-line-per-file output of the CLI on top of
// zerolog. Tags (STAMP, SKIP, DRY, FAIL, ...) go into the "tag" field.
type Logger struct {
	zl zerolog.Logger
}

var log = NewLogger(os.Stderr, "info", "console")

func InitLogger(level, format string) {
	log = NewLogger(os.Stderr, level, format)
}

// NewLogger builds a logger writing to w. format is "console" (colored, human)
// or "json".
func NewLogger(w io.Writer, level, format string) *Logger {
	var out io.Writer = w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	zl := zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Error(err error, format string, a ...any) {
	l.zl.Error().Err(err).Msg(fmt.Sprintf(format, a...))
}

func (l *Logger) Warn(format string, a ...any) {
	l.zl.Warn().Msg(fmt.Sprintf(format, a...))
}

func (l *Logger) Info(format string, a ...any) {
	l.zl.Info().Msg(fmt.Sprintf(format, a...))
}

func (l *Logger) Debug(format string, a ...any) {
	l.zl.Debug().Msg(fmt.Sprintf(format, a...))
}

// Action reports what happened to a single file.
func (l *Logger) Action(tag, file, format string, a ...any) {
	ev := l.zl.Info()
	if tag == "FAIL" {
		ev = l.zl.Warn()
	}
	ev.Str("tag", tag).Str("file", file).Msg(fmt.Sprintf(format, a...))
}

// With returns a child logger carrying key=value on every line.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}
