package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Execution.DefaultTimeout != 30*time.Second {
		t.Errorf("expected 30s default timeout, got %s", cfg.Execution.DefaultTimeout)
	}
	if cfg.Execution.MaxBuffer != 10<<20 {
		t.Errorf("expected 10MB buffer, got %d", cfg.Execution.MaxBuffer)
	}
	if cfg.Analysis.EnableAI {
		t.Error("AI must be off by default")
	}
	if cfg.Storage.Enabled {
		t.Error("storage must be off by default")
	}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("unexpected address: %s", cfg.Address())
	}
	if cfg.Security.RateLimitRPS != 10 || cfg.Security.RateLimitBurst != 20 {
		t.Errorf("unexpected rate limit defaults: rps=%v burst=%d",
			cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
execution:
  default_timeout: 10s
  history_size: 25
storage:
  enabled: true
  dir: /tmp/scriptflow-test
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Execution.DefaultTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.Execution.DefaultTimeout)
	}
	if cfg.Execution.HistorySize != 25 {
		t.Errorf("expected history size 25, got %d", cfg.Execution.HistorySize)
	}
	// Unset sections keep their defaults.
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("expected default metrics path, got %q", cfg.Metrics.Path)
	}
	if !cfg.Storage.Enabled || cfg.Storage.Dir != "/tmp/scriptflow-test" {
		t.Errorf("storage overrides not applied: %+v", cfg.Storage)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"default timeout above max", func(c *Config) {
			c.Execution.DefaultTimeout = 10 * time.Minute
		}, true},
		{"buffer too small", func(c *Config) { c.Execution.MaxBuffer = 100 }, true},
		{"history size zero", func(c *Config) { c.Execution.HistorySize = 0 }, true},
		{"storage enabled without dir", func(c *Config) {
			c.Storage.Enabled = true
			c.Storage.Dir = ""
		}, true},
		{"negative rate limit", func(c *Config) { c.Security.RateLimitRPS = -1 }, true},
		{"rate limiting disabled", func(c *Config) { c.Security.RateLimitRPS = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
