package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInitializeAndLog(t *testing.T) {
	dir := t.TempDir()

	if err := InitializeLogger(dir, "DEBUG"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !IsLoggerInitialized() {
		t.Error("Logger not marked initialized")
	}

	LogInfoEvent("hello %s", "world")
	LogDebugEvent("debug line")
	LogErrorEvent("error line")

	// The writer is asynchronous; give it a moment then shut down to flush.
	time.Sleep(50 * time.Millisecond)
	ShutdownLogger()

	contents, err := os.ReadFile(filepath.Join(dir, "system.log"))
	if err != nil {
		t.Fatalf("Log file missing: %v", err)
	}
	if !strings.Contains(string(contents), "hello world") {
		t.Error("Info line not written")
	}
	if !strings.Contains(string(contents), "[DBG] debug line") {
		t.Error("Debug line not written at DEBUG level")
	}
}

func TestSeverityFiltering(t *testing.T) {
	dir := t.TempDir()

	if err := InitializeLogger(dir, "ERROR"); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	LogInfoEvent("filtered info")
	LogErrorEvent("kept error")

	time.Sleep(50 * time.Millisecond)
	ShutdownLogger()

	contents, _ := os.ReadFile(filepath.Join(dir, "system.log"))
	if strings.Contains(string(contents), "filtered info") {
		t.Error("Info line written despite ERROR level")
	}
	if !strings.Contains(string(contents), "kept error") {
		t.Error("Error line missing")
	}
}

func TestLoggingWhenUninitializedIsSafe(t *testing.T) {
	ShutdownLogger()
	LogInfoEvent("dropped without panic")
}
