package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

// Log level constants define the severity hierarchy for filtering log output
const (
	DEBUG LogLevel = iota // DEBUG is the lowest severity level for detailed diagnostics
	INFO                  // INFO is for general informational messages
	WARN                  // WARN is for warning messages that don't prevent operation
	ERROR                 // ERROR is the highest severity for error conditions
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a string to a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured logging with configurable levels
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	logger *log.Logger
	prefix string
}

// New creates a new Logger with the specified level
func New(level LogLevel, prefix string) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(os.Stderr, "", log.LstdFlags),
		prefix: prefix,
	}
}

// NewWithWriter creates a new Logger with custom output writer
func NewWithWriter(level LogLevel, prefix string, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(w, "", log.LstdFlags),
		prefix: prefix,
	}
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// shouldLog checks if a message at the given level should be logged
func (l *Logger) shouldLog(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

// log writes a log message with the given level and fields
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	var sb strings.Builder

	if l.prefix != "" {
		sb.WriteString(l.prefix)
		sb.WriteString(" ")
	}

	sb.WriteString(level.String())
	sb.WriteString(": ")
	sb.WriteString(msg)

	if len(fields) > 0 {
		sb.WriteString(" |")
		for k, v := range fields {
			sb.WriteString(fmt.Sprintf(" %s=%v", k, v))
		}
	}

	l.logger.Println(sb.String())
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.log(DEBUG, msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.log(INFO, msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.log(WARN, msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.log(ERROR, msg, fields)
}

// CacheEvent represents a type of cache-lifecycle event
type CacheEvent string

// Cache event constants identify the events the image cache emits while
// balancing freshness against availability
const (
	EventStaleServe           CacheEvent = "stale_serve"            // EventStaleServe indicates a stale copy was served after a fetch failure
	EventRefreshScheduled     CacheEvent = "refresh_scheduled"      // EventRefreshScheduled indicates a background refresh was queued
	EventRefreshFailed        CacheEvent = "refresh_failed"         // EventRefreshFailed indicates a background refresh did not complete
	EventMappingConflict      CacheEvent = "mapping_conflict"       // EventMappingConflict indicates a filename collision against a different URL
	EventCircuitBreakerChange CacheEvent = "circuit_breaker_change" // EventCircuitBreakerChange indicates a breaker state transition
)

// LogStaleServe logs that a stale cached copy was served because the
// upstream fetch failed (WARN level)
func (l *Logger) LogStaleServe(sourceURL string, age time.Duration, cause error) {
	l.Warn("Serving stale cached copy", map[string]interface{}{
		"event":     EventStaleServe,
		"sourceURL": sourceURL,
		"age":       age.String(),
		"cause":     cause.Error(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// LogRefreshScheduled logs that a background refresh was queued (DEBUG level)
func (l *Logger) LogRefreshScheduled(sourceURL string, age time.Duration) {
	l.Debug("Background refresh scheduled", map[string]interface{}{
		"event":     EventRefreshScheduled,
		"sourceURL": sourceURL,
		"age":       age.String(),
	})
}

// LogRefreshFailed logs a failed background refresh (WARN level)
func (l *Logger) LogRefreshFailed(sourceURL string, err error) {
	l.Warn("Background refresh failed", map[string]interface{}{
		"event":     EventRefreshFailed,
		"sourceURL": sourceURL,
		"error":     err.Error(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// LogMappingConflict logs a mapping conflict loudly (ERROR level).
// A conflict means a different filename was computed for an already
// mapped URL, which is a data-integrity concern.
func (l *Logger) LogMappingConflict(sourceURL, existing, proposed string) {
	l.Error("Mapping conflict detected", map[string]interface{}{
		"event":     EventMappingConflict,
		"sourceURL": sourceURL,
		"existing":  existing,
		"proposed":  proposed,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// LogCircuitBreakerChange logs a circuit breaker state change (WARN level)
func (l *Logger) LogCircuitBreakerChange(oldState, newState string, host string) {
	fields := map[string]interface{}{
		"event":     EventCircuitBreakerChange,
		"oldState":  oldState,
		"newState":  newState,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if host != "" {
		fields["host"] = host
	}
	l.Warn("Circuit breaker state changed", fields)
}
