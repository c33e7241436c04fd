package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp-server.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	if cfg.Server != want.Server {
		t.Errorf("server = %+v, want %+v", cfg.Server, want.Server)
	}
	if cfg.Log.File != "mcp-server.log" {
		t.Errorf("log.file = %q, want %q", cfg.Log.File, "mcp-server.log")
	}
	if cfg.Limits.RequestTimeout != 0 {
		t.Errorf("limits.request_timeout = %s, want 0 (handlers run to completion)", cfg.Limits.RequestTimeout)
	}
	if cfg.Status.Interval != 5*time.Second {
		t.Errorf("status.interval = %v, want 5s", cfg.Status.Interval)
	}
}

func TestLoadValidConfig(t *testing.T) {
	yaml := `
server:
  name: inventory
log:
  file: /var/log/inventory.log
  level: debug
resources:
  root: /srv/data
  env_deny_words: [internal, private]
status:
  interval: 2s
limits:
  rate: 20
  burst: 40
  request_timeout: 10s
`
	cfg, err := Load(writeTempFile(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Name != "inventory" {
		t.Errorf("server.name = %q, want %q", cfg.Server.Name, "inventory")
	}
	if cfg.Server.Version != "1.0.0" {
		t.Errorf("server.version = %q, want default %q", cfg.Server.Version, "1.0.0")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Resources.Root != "/srv/data" {
		t.Errorf("resources.root = %q", cfg.Resources.Root)
	}
	if strings.Join(cfg.Resources.EnvDenyWords, ",") != "internal,private" {
		t.Errorf("env_deny_words = %v", cfg.Resources.EnvDenyWords)
	}
	if cfg.Status.Interval != 2*time.Second {
		t.Errorf("status.interval = %v, want 2s", cfg.Status.Interval)
	}
	if !cfg.Status.Enabled {
		t.Error("status.enabled should keep its default")
	}
	if cfg.Limits.Rate != 20 || cfg.Limits.Burst != 40 || cfg.Limits.RequestTimeout != 10*time.Second {
		t.Errorf("limits = %+v", cfg.Limits)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeTempFile(t, "{{invalid yaml"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("error = %q, want parsing config", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MCP_SERVER_NAME", "from-env")
	t.Setenv("MCP_LOG_LEVEL", "warn")
	t.Setenv("MCP_STATUS_INTERVAL", "750ms")
	t.Setenv("MCP_ENV_DENY_WORDS", "cookie;session")
	t.Setenv("MCP_TELEMETRY_ENABLED", "true")

	cfg, err := Load(writeTempFile(t, "server:\n  name: from-file\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Name != "from-env" {
		t.Errorf("server.name = %q, want from-env", cfg.Server.Name)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Status.Interval != 750*time.Millisecond {
		t.Errorf("status.interval = %v, want 750ms", cfg.Status.Interval)
	}
	if strings.Join(cfg.Resources.EnvDenyWords, ",") != "cookie,session" {
		t.Errorf("env_deny_words = %v", cfg.Resources.EnvDenyWords)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("telemetry.enabled = false, want true")
	}
}

func TestLoadEnvInvalidValue(t *testing.T) {
	t.Setenv("MCP_STATUS_INTERVAL", "soon")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing name", mutate: func(c *Config) { c.Server.Name = "" }, want: "server.name"},
		{name: "missing version", mutate: func(c *Config) { c.Server.Version = "" }, want: "server.version"},
		{name: "missing log file", mutate: func(c *Config) { c.Log.File = "" }, want: "log.file"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, want: "log.level"},
		{name: "fast status", mutate: func(c *Config) { c.Status.Interval = time.Millisecond }, want: "status.interval"},
		{name: "negative rate", mutate: func(c *Config) { c.Limits.Rate = -1 }, want: "limits.rate"},
		{name: "negative timeout", mutate: func(c *Config) { c.Limits.RequestTimeout = -time.Second }, want: "limits.request_timeout"},
		{name: "negative size", mutate: func(c *Config) { c.Limits.MaxParamBytes = -1 }, want: "limits.max_param_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}

	t.Run("disabled status skips interval check", func(t *testing.T) {
		cfg := Default()
		cfg.Status.Enabled = false
		cfg.Status.Interval = 0
		if err := Validate(cfg); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		if err := Validate(Default()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
