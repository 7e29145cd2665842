package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setupTestLogger creates a temp log file and initializes the logger with it.
func setupTestLogger(t *testing.T) string {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	logPath := filepath.Join(t.TempDir(), "test.log")
	if err := Init(logPath); err != nil {
		t.Fatalf("Failed to init logger: %v", err)
	}
	return logPath
}

func TestInit_WritesToFile(t *testing.T) {
	logPath := setupTestLogger(t)

	Info("room %s loaded", "!abc:example.org")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "room !abc:example.org loaded") {
		t.Errorf("log file missing message, got:\n%s", content)
	}
}

func TestDebug_RespectsLevel(t *testing.T) {
	logPath := setupTestLogger(t)

	Debug("hidden-debug-line")
	SetDebug(true)
	Debug("visible-debug-line")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden-debug-line") {
		t.Error("debug line written while debug disabled")
	}
	if !strings.Contains(string(content), "visible-debug-line") {
		t.Error("debug line missing after SetDebug(true)")
	}
}

func TestInitWriter(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	InitWriter(&buf)
	Warn("kick failed: %v", "forbidden")

	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected WARN level in output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "kick failed: forbidden") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}

func TestLogBeforeInit_NoPanic(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Error("dropped %d", 1)
	Close()
}

func TestInit_BadPath(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	err := Init(filepath.Join(t.TempDir(), "missing", "dir", "test.log"))
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
