// Package config defines the panel's YAML configuration file and its
// defaults. Environment variables referenced as ${VAR_NAME} in the file are
// expanded before parsing, so secrets can stay out of the file itself.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Paths     PathsConfig     `yaml:"paths"`
	Execution ExecutionConfig `yaml:"execution"`
	Logging   LoggingConfig   `yaml:"logging"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	CORS            CORSConfig `yaml:"cors"`
	TLS             TLSConfig  `yaml:"tls"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
	Methods []string `yaml:"methods"`
}

// TLSConfig controls TLS termination at the server level.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// AuthConfig controls authentication. JWTSecret has no default and the
// server refuses to start without one.
type AuthConfig struct {
	JWTSecret  string          `yaml:"jwt_secret"`
	SessionTTL string          `yaml:"session_ttl"`
	LoginRate  LoginRateConfig `yaml:"login_rate"`
}

// LoginRateConfig throttles the login endpoint per client IP.
type LoginRateConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
}

// PathsConfig locates the panel's working directories.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir"`
	ScriptsDir string `yaml:"scripts_dir"`
	LogsDir    string `yaml:"logs_dir"`
	EnvDir     string `yaml:"env_dir"`
}

// ExecutionConfig bounds subprocess executions.
type ExecutionConfig struct {
	Timeout        string `yaml:"timeout"`
	MaxOutputBytes int64  `yaml:"max_output_bytes"`
	Shell          string `yaml:"shell"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Transport string `yaml:"transport"`
}

// Default returns a Config with every field that has a sensible default
// filled in. JWTSecret is deliberately left empty.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: "10s",
			CORS: CORSConfig{
				Origins: []string{"*"},
				Methods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			},
		},
		Auth: AuthConfig{
			SessionTTL: "24h",
			LoginRate:  LoginRateConfig{Requests: 10, Window: "1m"},
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ScriptsDir: "data/scripts",
			LogsDir:    "data/logs",
		},
		Execution: ExecutionConfig{
			Timeout:        "5m",
			MaxOutputBytes: 10 * 1024 * 1024,
			Shell:          "/bin/sh",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		MCP:     MCPConfig{Transport: "stdio"},
	}
}

// Load reads path, expands ${VAR_NAME} references, and parses the result
// over the defaults. A missing file is not an error when path is empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	content := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the invariants the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (set it in the config file or via SHELLBOARD_JWT_SECRET)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return errors.New("server.tls requires cert_file and key_file")
	}
	for _, d := range []struct{ name, val string }{
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"auth.session_ttl", c.Auth.SessionTTL},
		{"auth.login_rate.window", c.Auth.LoginRate.Window},
		{"execution.timeout", c.Execution.Timeout},
	} {
		if d.val == "" {
			continue
		}
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// Duration parses s, falling back to def when s is empty or invalid.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
