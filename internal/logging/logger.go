package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// FileName is the diagnostic log inside the logs directory.
const FileName = "classicquest.log"

// Logger appends leveled diagnostics to .classicquest/logs/classicquest.log
// so failures can be inspected after the TUI closes. The user-facing journey
// lives in the logbook; this file is for debugging.
type Logger struct {
	entry *logrus.Entry
	file  *os.File
}

// New creates (or reuses) the log file in logsDir.
func New(logsDir, level string) (*Logger, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logsDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	l := newLogger(f, level)
	l.file = f
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return newLogger(io.Discard, "error")
}

func newLogger(w io.Writer, level string) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
	return &Logger{entry: logrus.NewEntry(base)}
}

// With returns a child logger tagged with component.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{entry: l.entry.WithField("component", component), file: l.file}
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a debug line. It satisfies the Printf-style logger
// interface the HTTP retry client accepts.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Debugf(strings.TrimRight(format, "\n"), args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.entry.Errorf(format, args...)
}
