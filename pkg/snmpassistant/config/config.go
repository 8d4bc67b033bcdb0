// Package config provides YAML configuration loading for the SNMP assistant.
//
// A single YAML file is decoded over the built-in defaults, then a few
// environment variables override it, and the result is validated.
//
//	SNMP_ASSISTANT_CONFIG → path of the YAML file (when -config is empty)
//	OPENAI_API_KEY        → llm.api_key
//	OPENAI_MODEL          → llm.model
//	OPENAI_BASE_URL       → llm.base_url
//	MIB_DIRECTORY         → mib.directory
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/translator"
	"github.com/vpbank/snmp_assistant/pkg/snmpassistant/validation"
)

// ─────────────────────────────────────────────────────────────────────────────
// Schema
// ─────────────────────────────────────────────────────────────────────────────

// Config is the full runtime configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	SNMP    SNMPConfig    `yaml:"snmp"`
	LLM     LLMConfig     `yaml:"llm"`
	MIB     MIBConfig     `yaml:"mib"`
	History HistoryConfig `yaml:"history"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Listen string `yaml:"listen" validate:"required,hostname_port"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled              bool `yaml:"enabled"`
	TTLSeconds           int  `yaml:"ttl_seconds" validate:"gte=1"`
	SweepIntervalSeconds int  `yaml:"sweep_interval_seconds" validate:"gte=1"`
}

// SNMPConfig holds the defaults applied to queries and the session pool
// settings.
type SNMPConfig struct {
	DefaultCommunity string     `yaml:"default_community" validate:"required"`
	DefaultVersion   string     `yaml:"default_version" validate:"oneof=1 2c"`
	DefaultPort      int        `yaml:"default_port" validate:"gte=1,lte=65535"`
	Timeout          int        `yaml:"timeout" validate:"gte=1"` // seconds
	Retries          int        `yaml:"retries" validate:"gte=0"`
	Pool             PoolConfig `yaml:"pool"`
}

// PoolConfig configures poller.ConnectionPool.
type PoolConfig struct {
	MaxIdlePerDevice       int `yaml:"max_idle_per_device" validate:"gte=0"`
	IdleTimeoutSeconds     int `yaml:"idle_timeout_seconds" validate:"gte=0"`
	MaxConcurrentPerDevice int `yaml:"max_concurrent_per_device" validate:"gte=1"`
}

// LLMConfig configures the language model client and its retry policy.
type LLMConfig struct {
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url" validate:"omitempty,url"`
	Model            string  `yaml:"model" validate:"required"`
	Temperature      float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens        int     `yaml:"max_tokens" validate:"gte=1"`
	SystemPrompt     string  `yaml:"system_prompt"`
	MaxRetries       int     `yaml:"max_retries" validate:"gte=0,lte=10"`
	RetryBaseDelayMs int     `yaml:"retry_base_delay_ms" validate:"gte=0"`
}

// MIBConfig locates MIB files and extra name tables.
type MIBConfig struct {
	// Directory receives copies of uploaded MIB files.
	Directory string `yaml:"directory" validate:"required"`

	// NamesDirectory holds YAML name tables ("MIB::name: oid"). Optional.
	NamesDirectory string `yaml:"names_directory"`
}

// HistoryConfig configures the JSON-lines query history. An empty FilePath
// disables it.
type HistoryConfig struct {
	FilePath   string `yaml:"file_path"`
	MaxBytes   int64  `yaml:"max_bytes" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	Pretty     bool   `yaml:"pretty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Defaults
// ─────────────────────────────────────────────────────────────────────────────

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8000"},
		Cache: CacheConfig{
			Enabled:              true,
			TTLSeconds:           3600,
			SweepIntervalSeconds: 60,
		},
		SNMP: SNMPConfig{
			DefaultCommunity: "public",
			DefaultVersion:   "2c",
			DefaultPort:      161,
			Timeout:          5,
			Retries:          3,
			Pool: PoolConfig{
				MaxIdlePerDevice:       2,
				IdleTimeoutSeconds:     30,
				MaxConcurrentPerDevice: 4,
			},
		},
		LLM: LLMConfig{
			Model:            "gpt-4",
			Temperature:      0.1,
			MaxTokens:        2000,
			SystemPrompt:     translator.DefaultSystemPrompt,
			MaxRetries:       3,
			RetryBaseDelayMs: 1000,
		},
		MIB:     MIBConfig{Directory: "./mibs"},
		History: HistoryConfig{MaxBackups: 5},
	}
}

// CacheTTL returns the response cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// CacheSweepInterval returns the minimum time between cache sweeps.
func (c *Config) CacheSweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepIntervalSeconds) * time.Second
}

// SNMPTimeout returns the default per-request SNMP timeout.
func (c *Config) SNMPTimeout() time.Duration {
	return time.Duration(c.SNMP.Timeout) * time.Second
}

// PoolIdleTimeout returns how long an idle SNMP session is kept.
func (c *Config) PoolIdleTimeout() time.Duration {
	return time.Duration(c.SNMP.Pool.IdleTimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the unit of LLM retry backoff.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.LLM.RetryBaseDelayMs) * time.Millisecond
}

// ─────────────────────────────────────────────────────────────────────────────
// Load
// ─────────────────────────────────────────────────────────────────────────────

// Load returns the validated configuration. path falls back to
// SNMP_ASSISTANT_CONFIG; when both are empty only defaults and environment
// overrides apply.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	if path == "" {
		path = os.Getenv("SNMP_ASSISTANT_CONFIG")
	}

	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		logger.Debug("config: loaded file", "file", path)
	}

	applyEnv(cfg)

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LLM.APIKey = envOr("OPENAI_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = envOr("OPENAI_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = envOr("OPENAI_BASE_URL", cfg.LLM.BaseURL)
	cfg.MIB.Directory = envOr("MIB_DIRECTORY", cfg.MIB.Directory)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ─────────────────────────────────────────────────────────────────────────────
// no-op logger writer
// ─────────────────────────────────────────────────────────────────────────────

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
