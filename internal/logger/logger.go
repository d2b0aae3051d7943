// Package logger writes structured JSON log lines for ocd-events.
//
// Each entry is one JSON object with a timestamp, level, message and optional
// fields. Loggers derived with With share their parent's writer and add
// their own fields to every entry. The CLI logs to stderr so stdout carries
// only event records.
//
//	log := logger.New(logger.LevelInfo, os.Stderr).With(logger.Fields{"jurisdiction": j})
//	log.Warn("Detail unavailable, using placeholders", logger.Fields{"id": id})
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Fields represents structured log fields
type Fields map[string]interface{}

// LogEntry is the JSON shape of one log line
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
	Error     string `json:"error,omitempty"`
}

// sink is the writer shared by a logger and everything derived from it
type sink struct {
	mu  sync.Mutex
	enc *json.Encoder
	w   io.Writer
}

func (s *sink) write(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(entry); err != nil {
		fmt.Fprintf(s.w, "[%s] %s: %s (encode error: %v)\n", entry.Timestamp, entry.Level, entry.Message, err)
	}
}

// Logger provides structured logging
type Logger struct {
	out      *sink
	minLevel Level
	base     Fields
	now      func() time.Time
}

var defaultLogger = New(LevelInfo, os.Stderr)

// New creates a logger that drops entries below level
func New(level Level, output io.Writer) *Logger {
	enc := json.NewEncoder(output)
	enc.SetEscapeHTML(false)

	return &Logger{
		out:      &sink{enc: enc, w: output},
		minLevel: level,
		now:      time.Now,
	}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return New(LevelError, io.Discard)
}

// ParseLevel converts a case-insensitive level name ("debug", "warn", ...) to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %q", s)
	}
}

// With returns a logger that adds fields to every entry. Per-call fields win
// on key collisions.
func (l *Logger) With(fields Fields) *Logger {
	child := *l
	child.base = merge(l.base, fields)
	return &child
}

// SetDefault replaces the logger behind Debug, Info, Warn and Error
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

func Default() *Logger {
	return defaultLogger
}

func (l *Logger) log(level Level, message string, fields Fields, err error) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := LogEntry{
		Timestamp: l.now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Message:   message,
		Fields:    merge(l.base, fields),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	l.out.write(entry)
}

func merge(base, extra Fields) Fields {
	if len(base) == 0 {
		return extra
	}
	if len(extra) == 0 {
		return base
	}

	out := make(Fields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (l *Logger) Debug(message string, fields Fields) {
	l.log(LevelDebug, message, fields, nil)
}

func (l *Logger) Info(message string, fields Fields) {
	l.log(LevelInfo, message, fields, nil)
}

func (l *Logger) Warn(message string, fields Fields) {
	l.log(LevelWarn, message, fields, nil)
}

// Error logs message with err attached in the "error" key
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(LevelError, message, fields, err)
}

func Debug(message string, fields Fields) {
	defaultLogger.Debug(message, fields)
}

func Info(message string, fields Fields) {
	defaultLogger.Info(message, fields)
}

func Warn(message string, fields Fields) {
	defaultLogger.Warn(message, fields)
}

func Error(message string, fields Fields, err error) {
	defaultLogger.Error(message, fields, err)
}
