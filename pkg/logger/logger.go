// Package logger provides leveled, component-tagged logging for the SDK.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Level mirrors slog levels with the names used across the codebase.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a level name, defaulting to INFO.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

var (
	mu       sync.Mutex
	levelVar = new(slog.LevelVar)
	base     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
)

// SetLevel changes the minimum level emitted.
func SetLevel(l Level) {
	levelVar.Set(toSlog(l))
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	switch levelVar.Level() {
	case slog.LevelDebug:
		return DEBUG
	case slog.LevelWarn:
		return WARN
	case slog.LevelError:
		return ERROR
	default:
		return INFO
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

func toSlog(l Level) slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func log(level slog.Level, component, msg string, fields map[string]any) {
	mu.Lock()
	l := base
	mu.Unlock()

	args := make([]any, 0, 2+2*len(fields))
	args = append(args, "component", component)
	for k, v := range fields {
		args = append(args, k, v)
	}
	l.Log(context.Background(), level, msg, args...)
}

// DebugC logs a debug message for a component.
func DebugC(component, msg string) { log(slog.LevelDebug, component, msg, nil) }

// DebugCF logs a debug message with structured fields.
func DebugCF(component, msg string, fields map[string]any) {
	log(slog.LevelDebug, component, msg, fields)
}

// InfoC logs an info message for a component.
func InfoC(component, msg string) { log(slog.LevelInfo, component, msg, nil) }

// InfoCF logs an info message with structured fields.
func InfoCF(component, msg string, fields map[string]any) {
	log(slog.LevelInfo, component, msg, fields)
}

// WarnC logs a warning for a component.
func WarnC(component, msg string) { log(slog.LevelWarn, component, msg, nil) }

// WarnCF logs a warning with structured fields.
func WarnCF(component, msg string, fields map[string]any) {
	log(slog.LevelWarn, component, msg, fields)
}

// ErrorC logs an error message for a component.
func ErrorC(component, msg string) { log(slog.LevelError, component, msg, nil) }

// ErrorCF logs an error message with structured fields.
func ErrorCF(component, msg string, fields map[string]any) {
	log(slog.LevelError, component, msg, fields)
}
