package logring

import (
	"fmt"
	"io"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/sirupsen/logrus"
)

// Logger is a runtime.Logger that records into a Buffer.
type Logger struct {
	buf    *Buffer
	fields map[string]interface{}
}

var _ runtime.Logger = (*Logger)(nil)

// NewLogger returns a logger writing to buf.
func NewLogger(buf *Buffer) *Logger {
	return &Logger{buf: buf}
}

// Buffer returns the ring this logger records into.
func (l *Logger) Buffer() *Buffer { return l.buf }

// Debug records a silent info entry. Used for high-frequency traffic such as timer ticks.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.buf.record(l.entry(SeverityInfo, format, v), true)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.buf.record(l.entry(SeverityInfo, format, v), false)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.buf.record(l.entry(SeverityWarning, format, v), false)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.buf.record(l.entry(SeverityError, format, v), false)
}

// Success records a success entry.
func (l *Logger) Success(format string, v ...interface{}) {
	l.buf.record(l.entry(SeveritySuccess, format, v), false)
}

func (l *Logger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}

func (l *Logger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{buf: l.buf, fields: merged}
}

func (l *Logger) Fields() map[string]interface{} {
	return l.fields
}

func (l *Logger) entry(severity Severity, format string, v []interface{}) Entry {
	msg := format
	if len(v) > 0 {
		msg = fmt.Sprintf(format, v...)
	}
	return Entry{Severity: severity, Message: msg, Fields: l.fields}
}

// Succeed records a success entry on logger when it supports it and falls
// back to Info otherwise.
func Succeed(logger runtime.Logger, format string, v ...interface{}) {
	if s, ok := logger.(interface {
		Success(string, ...interface{})
	}); ok {
		s.Success(format, v...)
		return
	}
	logger.Info(format, v...)
}

// NewSink builds the logrus sink entries are forwarded to.
func NewSink(level string, out io.Writer) *logrus.Logger {
	sink := logrus.New()
	sink.SetOutput(out)
	sink.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	sink.SetLevel(lvl)
	return sink
}
