// Package logging is the structured logging layer of the result cache:
// a small Logger interface, typed fields and a zap-backed implementation.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
)

// LogLevel is the minimum severity a logger emits
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
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

// Field is one key/value attached to a log entry
type Field struct {
	Key   string
	Value interface{}
}

// Logger is what every component of the cache logs through. Error takes the
// failure separately so it is always rendered under the same key.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

// LogConfig configures NewZapLogger. A nil Output writes to stdout.
type LogConfig struct {
	Level  LogLevel
	Output io.Writer
	Name   string
}

// ParseLevel maps LOG_LEVEL values onto a LogLevel. Unknown values mean info.
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// DefaultLogConfig reads the level from LOG_LEVEL
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: ParseLevel(os.Getenv("LOG_LEVEL"))}
}
