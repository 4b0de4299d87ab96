// Package logger provides component-tagged loggers on top of logrus.
package logger

import (
	"errors"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used across the server.
type Logger interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
	Debug(msg string)
}

// ErrEmptyPrefix is returned by New when no component prefix is given.
var ErrEmptyPrefix = errors.New("logger prefix must not be empty")

const colorReset = "\033[0m"

var level = logrus.InfoLevel

// SetLevel sets the level for loggers created afterwards. Unknown names
// leave the level unchanged and return the parse error.
func SetLevel(name string) error {
	l, err := logrus.ParseLevel(name)
	if err != nil {
		return err
	}
	level = l
	return nil
}

type entryLogger struct {
	entry *logrus.Entry
}

// New returns a logger writing to w with every line tagged by prefix,
// wrapped in the given ANSI colour (may be empty).
func New(prefix, color string, w io.Writer) (Logger, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}

	tag := "[" + prefix + "]"
	if color != "" {
		tag = color + tag + colorReset
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		DisableQuote:     true,
		QuoteEmptyFields: true,
	})
	return &entryLogger{entry: l.WithField("component", tag)}, nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &entryLogger{entry: logrus.NewEntry(l)}
}

func (l *entryLogger) Info(msg string)    { l.entry.Info(msg) }
func (l *entryLogger) Warning(msg string) { l.entry.Warn(msg) }
func (l *entryLogger) Error(msg string)   { l.entry.Error(msg) }
func (l *entryLogger) Debug(msg string)   { l.entry.Debug(msg) }
