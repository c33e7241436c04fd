// Package config loads the server configuration from defaults, an optional
// YAML file and MCP_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/mcp-resources/logging"
)

// DefaultFile is read when no path is given. Its absence is not an error.
const DefaultFile = "mcp-server.yaml"

// Config is the top-level mcp-server.yaml structure.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Resources ResourcesConfig `yaml:"resources"`
	Status    StatusConfig    `yaml:"status"`
	Watch     WatchConfig     `yaml:"watch"`
	Limits    LimitsConfig    `yaml:"limits"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig is the identity reported by initialize.
type ServerConfig struct {
	Name    string `yaml:"name" env:"MCP_SERVER_NAME"`
	Version string `yaml:"version" env:"MCP_SERVER_VERSION"`
}

// LogConfig controls the diagnostic log file.
type LogConfig struct {
	File  string `yaml:"file" env:"MCP_LOG_FILE"`
	Level string `yaml:"level" env:"MCP_LOG_LEVEL"`
}

// ResourcesConfig locates the data behind the built-in resources.
type ResourcesConfig struct {
	Root    string `yaml:"root" env:"MCP_ROOT"`
	ModFile string `yaml:"mod_file" env:"MCP_MOD_FILE"`
	// EnvDenyWords are added to the built-in password/secret/key/token filter.
	// In the environment, words are separated by ';'.
	EnvDenyWords []string `yaml:"env_deny_words,omitempty" env:"MCP_ENV_DENY_WORDS"`
}

// StatusConfig controls the simulated resource status.
type StatusConfig struct {
	Enabled  bool          `yaml:"enabled" env:"MCP_STATUS_ENABLED,strict"`
	Interval time.Duration `yaml:"interval" env:"MCP_STATUS_INTERVAL,strict"`
}

// WatchConfig controls change notifications for file resources.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" env:"MCP_WATCH_ENABLED,strict"`
	Debounce time.Duration `yaml:"debounce" env:"MCP_WATCH_DEBOUNCE,strict"`
}

// LimitsConfig bounds request handling. Zero disables a limit.
type LimitsConfig struct {
	Rate           int           `yaml:"rate" env:"MCP_RATE_LIMIT,strict"`
	Burst          int           `yaml:"burst" env:"MCP_RATE_BURST,strict"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"MCP_REQUEST_TIMEOUT,strict"`
	MaxParamBytes  int64         `yaml:"max_param_bytes" env:"MCP_MAX_PARAM_BYTES,strict"`
}

// TelemetryConfig enables OpenTelemetry export to the log file.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_TELEMETRY_ENABLED,strict"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "mcp-resources",
			Version: "1.0.0",
		},
		Log: LogConfig{
			File:  "mcp-server.log",
			Level: "info",
		},
		Resources: ResourcesConfig{
			Root:    ".",
			ModFile: "go.mod",
		},
		Status: StatusConfig{
			Enabled:  true,
			Interval: 5 * time.Second,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 200 * time.Millisecond,
		},
		Limits: LimitsConfig{
			MaxParamBytes: 64 * 1024,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path reads DefaultFile if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	case !explicit && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with any MCP_* variables that are set.
func ApplyEnv(cfg *Config) error {
	err := envdecode.Decode(cfg)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

// Validate checks that a Config has all required fields and valid values.
func Validate(cfg *Config) error {
	if cfg.Server.Name == "" {
		return fmt.Errorf("missing required field: server.name")
	}
	if cfg.Server.Version == "" {
		return fmt.Errorf("missing required field: server.version")
	}
	if cfg.Log.File == "" {
		return fmt.Errorf("missing required field: log.file")
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Status.Enabled && cfg.Status.Interval < 100*time.Millisecond {
		return fmt.Errorf("status.interval must be at least 100ms, got %s", cfg.Status.Interval)
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	if cfg.Limits.Rate < 0 || cfg.Limits.Burst < 0 {
		return fmt.Errorf("limits.rate and limits.burst must not be negative")
	}
	if cfg.Limits.RequestTimeout < 0 {
		return fmt.Errorf("limits.request_timeout must not be negative, got %s", cfg.Limits.RequestTimeout)
	}
	if cfg.Limits.MaxParamBytes < 0 {
		return fmt.Errorf("limits.max_param_bytes must not be negative, got %d", cfg.Limits.MaxParamBytes)
	}
	return nil
}
