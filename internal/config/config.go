// Package config loads the application configuration from YAML with
// validated defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Execution ExecutionConfig `yaml:"execution"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Security  SecurityConfig  `yaml:"security"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBody  int64         `yaml:"max_request_body_bytes"`
}

type ExecutionConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	MaxTimeout     time.Duration `yaml:"max_timeout"`
	MaxBuffer      int           `yaml:"max_buffer_bytes"`
	HistorySize    int           `yaml:"history_size"`
}

type AnalysisConfig struct {
	EnableAI bool   `yaml:"enable_ai"`
	Provider string `yaml:"provider"` // anthropic or openai; empty uses env detection
	Model    string `yaml:"model"`
	// API keys come from the provider's environment variable, never from the
	// config file.
}

type StorageConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	BufferSize int    `yaml:"buffer_size"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SecurityConfig struct {
	APIKeyHeader   string   `yaml:"api_key_header"`
	AllowedKeys    []string `yaml:"allowed_keys"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`   // 0 disables rate limiting
	RateLimitBurst int      `yaml:"rate_limit_burst"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path comes from CLI flag or hardcoded default
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults for all configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    330 * time.Second, // > max execution timeout + overhead
			ShutdownTimeout: 30 * time.Second,
			MaxRequestBody:  1 << 20, // 1MB
		},
		Execution: ExecutionConfig{
			DefaultTimeout: 30 * time.Second,
			MaxTimeout:     300 * time.Second,
			MaxBuffer:      10 << 20,
			HistorySize:    100,
		},
		Analysis: AnalysisConfig{
			EnableAI: false,
		},
		Storage: StorageConfig{
			Enabled:    false,
			Dir:        "data",
			BufferSize: 1000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Security: SecurityConfig{
			APIKeyHeader:   "X-API-Key",
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Execution.DefaultTimeout > c.Execution.MaxTimeout {
		return fmt.Errorf("execution.default_timeout (%s) must be <= max_timeout (%s)",
			c.Execution.DefaultTimeout, c.Execution.MaxTimeout)
	}
	if c.Execution.MaxBuffer < 1024 {
		return fmt.Errorf("execution.max_buffer_bytes must be >= 1024")
	}
	if c.Execution.HistorySize < 1 {
		return fmt.Errorf("execution.history_size must be >= 1")
	}
	if c.Storage.Enabled && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required when storage is enabled")
	}
	if c.Security.RateLimitRPS < 0 {
		return fmt.Errorf("security.rate_limit_rps must be >= 0")
	}
	return nil
}

// Address returns the listen address string.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
