package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfigurationFromFile("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerPort != DefaultServerPort {
		t.Errorf("ServerPort = %d", cfg.ServerPort)
	}
	if cfg.MaximumConnectionCount != DefaultMaximumConnectionCount {
		t.Errorf("MaximumConnectionCount = %d", cfg.MaximumConnectionCount)
	}
	if cfg.ScanResultLimit != DefaultScanResultLimit {
		t.Errorf("ScanResultLimit = %d", cfg.ScanResultLimit)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	contents := `{"server_port": 9090, "log_severity_level": "DEBUG"}`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigurationFromFile(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d", cfg.ServerPort)
	}
	if cfg.LogSeverityLevel != "DEBUG" {
		t.Errorf("LogSeverityLevel = %q", cfg.LogSeverityLevel)
	}
	// Untouched fields keep their defaults.
	if cfg.AdminPort != DefaultAdminPort {
		t.Errorf("AdminPort = %d", cfg.AdminPort)
	}
}

func TestMissingFileFails(t *testing.T) {
	if _, err := LoadConfigurationFromFile("./does_not_exist.json"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestTemplateParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.json")
	if err := os.WriteFile(path, []byte(ConfigurationTemplate), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigurationFromFile(path); err != nil {
		t.Errorf("Template does not parse: %v", err)
	}
}
