package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Logger provides structured logging for the CLI and the injection hook.
type Logger interface {
	// LogDebug logs fine-grained diagnostics (cache hits, per-entry skips)
	LogDebug(ctx context.Context, message string, fields map[string]interface{})

	// LogInfo logs normal operation milestones
	LogInfo(ctx context.Context, message string, fields map[string]interface{})

	// LogWarning logs recoverable conditions, e.g. a skipped entry
	LogWarning(ctx context.Context, message string, fields map[string]interface{})

	// LogError logs failures surfaced to the user
	LogError(ctx context.Context, message string, fields map[string]interface{})
}

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// ParseLevel maps a config string to a LogLevel. Unknown values fall back
// to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarning
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ParseFormat maps a config string to a LogFormat. Unknown values fall
// back to human.
func ParseFormat(s string) LogFormat {
	if strings.EqualFold(s, "json") {
		return LogFormatJSON
	}
	return LogFormatHuman
}

// DefaultLogger writes logs in structured format to stderr via the
// standard log package.
type DefaultLogger struct {
	level  LogLevel
	format LogFormat
}

// NewDefaultLogger creates a logger with the specified config.
func NewDefaultLogger(level LogLevel, format LogFormat) *DefaultLogger {
	return &DefaultLogger{level: level, format: format}
}

// LogDebug logs fine-grained diagnostics.
func (l *DefaultLogger) LogDebug(ctx context.Context, message string, fields map[string]interface{}) {
	l.emit(LogLevelDebug, "debug", message, fields)
}

// LogInfo logs normal operation milestones.
func (l *DefaultLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	l.emit(LogLevelInfo, "info", message, fields)
}

// LogWarning logs recoverable conditions.
func (l *DefaultLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	l.emit(LogLevelWarning, "warning", message, fields)
}

// LogError logs failures surfaced to the user.
func (l *DefaultLogger) LogError(ctx context.Context, message string, fields map[string]interface{}) {
	l.emit(LogLevelError, "error", message, fields)
}

func (l *DefaultLogger) emit(level LogLevel, levelName, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	if l.format == LogFormatJSON {
		record := make(map[string]interface{}, len(fields)+3)
		for k, v := range fields {
			record[k] = v
		}
		record["level"] = levelName
		record["message"] = message
		record["timestamp"] = time.Now().UTC().Format(time.RFC3339)

		data, err := json.Marshal(record)
		if err != nil {
			log.Printf(`{"level":"error","message":"marshal log record: %v"}`, err)
			return
		}
		log.Print(string(data))
		return
	}

	// Human-readable format with deterministic field ordering
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(levelName), message)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	log.Print(b.String())
}

// NopLogger discards all log output. Useful as a test collaborator.
type NopLogger struct{}

func (NopLogger) LogDebug(ctx context.Context, message string, fields map[string]interface{})   {}
func (NopLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{})    {}
func (NopLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {}
func (NopLogger) LogError(ctx context.Context, message string, fields map[string]interface{})   {}
