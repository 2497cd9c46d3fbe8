package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shellboard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Execution.MaxOutputBytes != 10*1024*1024 {
		t.Errorf("max output = %d", cfg.Execution.MaxOutputBytes)
	}
	if cfg.Auth.JWTSecret != "" {
		t.Error("default must not invent a JWT secret")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
auth:
  jwt_secret: test-secret
  session_ttl: 2h
execution:
  timeout: 30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host default lost: %q", cfg.Server.Host)
	}
	if cfg.Auth.JWTSecret != "test-secret" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
	if got := Duration(cfg.Execution.Timeout, 0); got != 30*time.Second {
		t.Errorf("timeout = %v", got)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_PANEL_SECRET", "from-env")
	path := writeConfig(t, `
auth:
  jwt_secret: ${TEST_PANEL_SECRET}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("jwt secret = %q, want expansion", cfg.Auth.JWTSecret)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("missing jwt_secret accepted")
	}

	cfg.Auth.JWTSecret = "s"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("port 0 accepted")
	}
	cfg.Server.Port = 8080

	cfg.Execution.Timeout = "not-a-duration"
	if err := cfg.Validate(); err == nil {
		t.Error("bad duration accepted")
	}
	cfg.Execution.Timeout = "5m"

	cfg.Server.TLS.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("tls without cert accepted")
	}
}

func TestDurationFallback(t *testing.T) {
	if got := Duration("", time.Minute); got != time.Minute {
		t.Errorf("empty: %v", got)
	}
	if got := Duration("bogus", time.Minute); got != time.Minute {
		t.Errorf("invalid: %v", got)
	}
	if got := Duration("90s", time.Minute); got != 90*time.Second {
		t.Errorf("parsed: %v", got)
	}
}
