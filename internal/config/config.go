// Package config loads and validates sherlock configuration.
//
// DESIGN: Configuration is resolved once at startup and then shared
// read-only by every component:
//  1. Start from Default()
//  2. Overlay the YAML file (with ${VAR} / ${VAR:-default} substitution)
//  3. Apply environment overrides (SHERLOCK_PORT, SHERLOCK_<NAME>_BASE_URL)
//  4. Apply CLI overrides (WithOverrides)
//  5. Validate
//
// A missing config file is not an error: defaults are used.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Proxy     ProxyConfig     `yaml:"proxy"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Providers ProvidersConfig `yaml:"providers"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProxyConfig configures the inbound listener and the upstream client.
type ProxyConfig struct {
	Port              int           `yaml:"port"`
	BindAddress       string        `yaml:"bind_address"`
	UpstreamTimeout   time.Duration `yaml:"upstream_timeout"` // 0 disables the timeout
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
}

// PipelineConfig sizes the event queues.
type PipelineConfig struct {
	EventQueueSize   int `yaml:"event_queue_size"`
	ArchiveQueueSize int `yaml:"archive_queue_size"`
}

// DashboardConfig configures the live terminal view.
type DashboardConfig struct {
	Enabled             bool   `yaml:"enabled"`
	TokenLimit          uint64 `yaml:"token_limit"`
	MaxLogEntries       int    `yaml:"max_log_entries"`
	RefreshRateHz       int    `yaml:"refresh_rate_hz"`
	PromptPreviewLength int    `yaml:"prompt_preview_length"`
}

// RefreshInterval converts the refresh rate into a tick interval.
func (d DashboardConfig) RefreshInterval() time.Duration {
	if d.RefreshRateHz <= 0 {
		return time.Second / DefaultRefreshRateHz
	}
	return time.Second / time.Duration(d.RefreshRateHz)
}

// ArchiveConfig configures persistence of captured requests.
type ArchiveConfig struct {
	Enabled    bool        `yaml:"enabled"`
	Directory  string      `yaml:"directory"`
	Formats    []string    `yaml:"formats"` // markdown, json, jsonl, sqlite, redis
	SQLitePath string      `yaml:"sqlite_path,omitempty"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis stream sink.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// AdminConfig configures the loopback admin server.
type AdminConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	Output string `yaml:"output"` // stderr, stdout, none, or a file path
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Proxy: ProxyConfig{
			Port:              DefaultPort,
			BindAddress:       DefaultBindAddress,
			UpstreamTimeout:   DefaultUpstreamTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			MaxBodyBytes:      MaxRequestBodySize,
		},
		Pipeline: PipelineConfig{
			EventQueueSize:   DefaultEventQueueSize,
			ArchiveQueueSize: DefaultArchiveQueueSize,
		},
		Dashboard: DashboardConfig{
			Enabled:             true,
			TokenLimit:          DefaultTokenLimit,
			MaxLogEntries:       DefaultMaxLogEntries,
			RefreshRateHz:       DefaultRefreshRateHz,
			PromptPreviewLength: DefaultPromptPreviewLength,
		},
		Providers: DefaultProviders(),
		Archive: ArchiveConfig{
			Enabled:    true,
			Directory:  DefaultArchiveDirectory,
			Formats:    DefaultArchiveFormats(),
			SQLitePath: filepath.Join(DefaultHomeDir, "requests.db"),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Stream: DefaultRedisStream,
				MaxLen: DefaultRedisMaxLen,
			},
		},
		Admin: AdminConfig{
			Enabled: false,
			Port:    DefaultAdminPort,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load reads the config at path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(ExpandTilde(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
			// defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		}
	}

	if v := os.Getenv("SHERLOCK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SHERLOCK_PORT %q: %w", v, err)
		}
		cfg.Proxy.Port = port
	}
	cfg.Providers.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithOverrides returns a copy with CLI flag values applied. Zero means unset.
func (c *Config) WithOverrides(port int, tokenLimit uint64) *Config {
	out := *c
	out.Providers = append(ProvidersConfig(nil), c.Providers...)
	out.Archive.Formats = append([]string(nil), c.Archive.Formats...)
	if port != 0 {
		out.Proxy.Port = port
	}
	if tokenLimit != 0 {
		out.Dashboard.TokenLimit = tokenLimit
	}
	return &out
}

// ListenAddr is the host:port the proxy binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Proxy.BindAddress, strconv.Itoa(c.Proxy.Port))
}

// ProxyURL is the URL handed to client tools through their env vars.
func (c *Config) ProxyURL() string {
	host := c.Proxy.BindAddress
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = DefaultBindAddress
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Proxy.Port))
}

// AdminAddr is the loopback address of the admin server.
func (c *Config) AdminAddr() string {
	return net.JoinHostPort(DefaultBindAddress, strconv.Itoa(c.Admin.Port))
}

// Validate checks value ranges and provider consistency.
func (c *Config) Validate() error {
	var problems []string

	if c.Proxy.Port < 0 || c.Proxy.Port > 65535 {
		problems = append(problems, fmt.Sprintf("proxy.port %d out of range", c.Proxy.Port))
	}
	if c.Proxy.UpstreamTimeout < 0 {
		problems = append(problems, "proxy.upstream_timeout must not be negative")
	}
	if c.Proxy.MaxBodyBytes <= 0 {
		problems = append(problems, "proxy.max_body_bytes must be positive")
	}
	if c.Pipeline.EventQueueSize <= 0 {
		problems = append(problems, "pipeline.event_queue_size must be positive")
	}
	if c.Pipeline.ArchiveQueueSize <= 0 {
		problems = append(problems, "pipeline.archive_queue_size must be positive")
	}
	if c.Dashboard.MaxLogEntries <= 0 {
		problems = append(problems, "dashboard.max_log_entries must be positive")
	}
	if c.Dashboard.TokenLimit == 0 {
		problems = append(problems, "dashboard.token_limit must be positive")
	}
	if c.Admin.Enabled && (c.Admin.Port <= 0 || c.Admin.Port > 65535) {
		problems = append(problems, fmt.Sprintf("admin.port %d out of range", c.Admin.Port))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return c.Providers.Validate()
}

// ValidationError lists every out-of-range setting.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// SaveDefault writes the default configuration to path, creating parent dirs.
func SaveDefault(path string) error {
	path = ExpandTilde(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	header := []byte("# sherlock configuration\n# Values support ${VAR} and ${VAR:-default} substitution.\n\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ExpandTilde replaces a leading ~ with the user's home directory.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::(-[^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} with environment values.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		defaultValue := ""
		if len(sub) > 2 && sub[2] != "" {
			defaultValue = strings.TrimPrefix(sub[2], "-")
		}
		if value := os.Getenv(sub[1]); value != "" {
			return value
		}
		return defaultValue
	})
}
