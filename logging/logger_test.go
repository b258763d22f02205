package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"INFO", INFO},
		{"info", INFO},
		{"WARN", WARN},
		{"warn", WARN},
		{"ERROR", ERROR},
		{"error", ERROR},
		{"invalid", INFO}, // default to INFO
		{"", INFO},        // default to INFO
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLogLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Run("suppresses messages below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(WARN, "[test]", &buf)

		logger.Debug("debug message", nil)
		logger.Info("info message", nil)

		if buf.Len() != 0 {
			t.Errorf("Expected no output below WARN, got %q", buf.String())
		}

		logger.Warn("warn message", nil)
		if !strings.Contains(buf.String(), "warn message") {
			t.Errorf("Expected warn message in output, got %q", buf.String())
		}
	})

	t.Run("SetLevel takes effect immediately", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(ERROR, "", &buf)

		logger.Info("before", nil)
		logger.SetLevel(DEBUG)
		logger.Info("after", nil)

		out := buf.String()
		if strings.Contains(out, "before") {
			t.Errorf("Expected 'before' to be suppressed, got %q", out)
		}
		if !strings.Contains(out, "after") {
			t.Errorf("Expected 'after' in output, got %q", out)
		}
	})
}

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(INFO, "[cache]", &buf)

	logger.Info("entry refreshed", map[string]interface{}{
		"sourceURL": "https://img.example/a.jpg",
	})

	out := buf.String()
	if !strings.Contains(out, "[cache]") {
		t.Errorf("Expected prefix in output, got %q", out)
	}
	if !strings.Contains(out, "sourceURL=https://img.example/a.jpg") {
		t.Errorf("Expected field in output, got %q", out)
	}
}

func TestCacheEventHelpers(t *testing.T) {
	t.Run("LogStaleServe includes event and cause", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(DEBUG, "", &buf)

		logger.LogStaleServe("https://img.example/a.jpg", 2*time.Hour, errors.New("upstream 503"))

		out := buf.String()
		if !strings.Contains(out, string(EventStaleServe)) {
			t.Errorf("Expected stale_serve event, got %q", out)
		}
		if !strings.Contains(out, "upstream 503") {
			t.Errorf("Expected cause in output, got %q", out)
		}
	})

	t.Run("LogMappingConflict logs at ERROR", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(ERROR, "", &buf)

		logger.LogMappingConflict("https://img.example/a.jpg", "abc.jpg", "def.jpg")

		out := buf.String()
		if !strings.Contains(out, "ERROR") {
			t.Errorf("Expected ERROR level, got %q", out)
		}
		if !strings.Contains(out, string(EventMappingConflict)) {
			t.Errorf("Expected mapping_conflict event, got %q", out)
		}
	})

	t.Run("LogCircuitBreakerChange includes host when set", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(DEBUG, "", &buf)

		logger.LogCircuitBreakerChange("CLOSED", "OPEN", "img.example")

		out := buf.String()
		if !strings.Contains(out, "host=img.example") {
			t.Errorf("Expected host field, got %q", out)
		}
	})
}
