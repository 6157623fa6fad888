package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Failed to unmarshal log entry %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("solve finished", Backend("simplex"), CycleTime(50))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != "INFO" {
		t.Errorf("Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "solve finished" {
		t.Errorf("Message = %v, want 'solve finished'", entry.Message)
	}
	if entry.Fields["backend"] != "simplex" {
		t.Errorf("Fields[backend] = %v, want simplex", entry.Fields["backend"])
	}
	if entry.Fields["cycle_time"] != 50.0 {
		t.Errorf("Fields[cycle_time] = %v, want 50", entry.Fields["cycle_time"])
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("Levels = %s, %s; want WARN, ERROR", entries[0].Level, entries[1].Level)
	}
}

func TestJSONLogger_WithSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, InfoLevel)
	child := parent.With(Component("lp"))

	child.Debug("hidden")
	parent.SetLevel(DebugLevel)
	child.Debug("shown", Count(3))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Fields["component"] != "lp" {
		t.Errorf("Fields[component] = %v, want lp", entries[0].Fields["component"])
	}
	if entries[0].Fields["count"] != 3.0 {
		t.Errorf("Fields[count] = %v, want 3", entries[0].Fields["count"])
	}
	if child.GetLevel() != DebugLevel {
		t.Errorf("Child level = %v, want DEBUG", child.GetLevel())
	}
}

func TestJSONLogger_NoFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	NewJSONLogger(&buf, InfoLevel).Info("bare")

	if strings.Contains(buf.String(), "fields") {
		t.Errorf("Entry without fields should omit the key: %s", buf.String())
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	timer := StartTimer(logger, "expand", Operation("expand"))
	timer.End(Network(4, 4))
	StartTimer(logger, "solve").EndError(errors.New("boom"))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != "DEBUG" {
		t.Errorf("End should log at DEBUG, got %s", entries[0].Level)
	}
	if _, ok := entries[0].Fields["latency"]; !ok {
		t.Error("End should record latency")
	}
	if entries[0].Fields["operation"] != "expand" {
		t.Errorf("Fields[operation] = %v", entries[0].Fields["operation"])
	}
	if entries[1].Level != "ERROR" || entries[1].Fields["error"] != "boom" {
		t.Errorf("EndError entry = %+v", entries[1])
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(NopLogger); !ok {
		t.Error("OrNop(nil) should return a NopLogger")
	}
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, InfoLevel)
	if OrNop(l) != Logger(l) {
		t.Error("OrNop should pass a non-nil logger through")
	}
}

func TestDefaultLoggerOverride(t *testing.T) {
	var buf bytes.Buffer
	custom := NewJSONLogger(&buf, DebugLevel)
	SetDefaultLogger(custom)
	t.Cleanup(func() { SetDefaultLogger(nil) })

	DefaultLogger().Info("routed")
	if !strings.Contains(buf.String(), "routed") {
		t.Errorf("Default logger override not used: %q", buf.String())
	}
}
