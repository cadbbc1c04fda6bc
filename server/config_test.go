package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_MergesOverDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "listen: \":9000\"\nlog_level: debug\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.DBPath != "hourmaster.db" || cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadConfig_ProviderTimeoutString(t *testing.T) {
	// WHAT: The provider timeout is written as a human-readable duration.
	cfg, err := LoadConfig(writeConfig(t, "provider:\n  base_url: \"http://localhost:1\"\n  timeout: 45s\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Timeout != 45*time.Second {
		t.Errorf("timeout = %v, want 45s", cfg.Provider.Timeout)
	}
	if cfg.Provider.BaseURL != "http://localhost:1" {
		t.Errorf("base_url = %q", cfg.Provider.BaseURL)
	}

	// A provider block without a timeout keeps the default.
	cfg, err = LoadConfig(writeConfig(t, "provider:\n  base_url: \"http://localhost:2\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want default 30s", cfg.Provider.Timeout)
	}

	if _, err := LoadConfig(writeConfig(t, "provider:\n  timeout: soon\n")); err == nil {
		t.Error("unparseable duration should fail")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "log_level: chatty\n")); err == nil {
		t.Error("unsupported log level should fail validation")
	}
	if _, err := LoadConfig(writeConfig(t, "listen: [\n")); err == nil {
		t.Error("malformed YAML should fail")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	cfg.Listen = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty listen should fail")
	}
}
