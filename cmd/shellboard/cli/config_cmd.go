package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage Shellboard configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default shellboard.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")

	return cmd
}

const defaultConfigFile = `# Shellboard configuration

server:
  host: 0.0.0.0
  port: 8080
  shutdown_timeout: 10s
  cors:
    origins:
      - "*"
  tls:
    enabled: false
    # cert_file: /etc/shellboard/tls.crt
    # key_file: /etc/shellboard/tls.key

auth:
  # Required. Keep it out of the file with ${SHELLBOARD_JWT_SECRET}.
  jwt_secret: ${SHELLBOARD_JWT_SECRET}
  session_ttl: 24h
  login_rate:
    requests: 10
    window: 1m

paths:
  data_dir: data
  scripts_dir: data/scripts
  logs_dir: data/logs

execution:
  timeout: 5m
  max_output_bytes: 10485760
  shell: /bin/sh

logging:
  level: info
  format: text
`

func runConfigInit(force bool) error {
	path := "shellboard.yaml"

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(defaultConfigFile), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println("Set SHELLBOARD_JWT_SECRET before starting the server.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	return cmd
}

func runConfigShow() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Auth.JWTSecret != "" {
		cfg.Auth.JWTSecret = "****"
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	fmt.Print(string(out))
	return nil
}
