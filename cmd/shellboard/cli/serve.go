package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/config"
	"github.com/shellboard/shellboard/internal/engine"
	"github.com/shellboard/shellboard/internal/registry"
	"github.com/shellboard/shellboard/internal/restore"
	"github.com/shellboard/shellboard/internal/server"
	"github.com/shellboard/shellboard/internal/service"
	"github.com/shellboard/shellboard/internal/store"
)

const banner = `
 ___ _  _ ___ _    _    ___  ___   _   ___ ___
/ __| || | __| |  | |  | _ )/ _ \ /_\ | _ \   \
\__ \ __ | _|| |__| |__| _ \ (_) / _ \|   / |) |
|___/_||_|___|____|____|___/\___/_/ \_\_|_\___/
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Shellboard API server",
		Long:  "Start the HTTP server that exposes the control panel REST API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (overrides config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}
	if dev {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)

	// 1. Open the SQLite store and run migrations.
	st, err := store.NewStore(cfg.Paths.DataDir)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "path", cfg.Paths.DataDir)

	rec := audit.NewRecorder(st, logger)

	// 2. Seed the bootstrap admin so a fresh install is reachable.
	seeded, err := service.SeedBootstrapAdmin(context.Background(), st)
	if err != nil {
		return fmt.Errorf("seed bootstrap admin: %w", err)
	}
	if seeded {
		logger.Warn("created bootstrap admin account; change its password", "email", service.BootstrapAdminEmail)
	}

	// 3. Auth, execution engine, script registry, restorer.
	sessionTTL := config.Duration(cfg.Auth.SessionTTL, 24*time.Hour)
	authSvc := service.NewAuthService(st, rec, cfg.Auth.JWTSecret, sessionTTL)

	eng, err := engine.New(engine.Config{
		ScriptsDir: cfg.Paths.ScriptsDir,
		LogsDir:    cfg.Paths.LogsDir,
		EnvDir:     cfg.Paths.EnvDir,
		Timeout:    config.Duration(cfg.Execution.Timeout, engine.DefaultTimeout),
		MaxOutput:  cfg.Execution.MaxOutputBytes,
		Shell:      cfg.Execution.Shell,
	}, st, rec, logger)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	reg, err := registry.New(eng.ScriptsDir(), st, rec, logger)
	if err != nil {
		return fmt.Errorf("init script registry: %w", err)
	}

	restorer := restore.New(st, rec, logger)

	// 4. Build and start the HTTP server.
	srvCfg := server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second),
		CORSOrigins:     cfg.Server.CORS.Origins,
		LoginRateLimit:  cfg.Auth.LoginRate.Requests,
		LoginRateWindow: config.Duration(cfg.Auth.LoginRate.Window, time.Minute),
	}
	if cfg.Server.TLS.Enabled {
		srvCfg.TLSCertFile = cfg.Server.TLS.CertFile
		srvCfg.TLSKeyFile = cfg.Server.TLS.KeyFile
	}

	srv := server.New(srvCfg, server.Deps{
		Store:    st,
		Auth:     authSvc,
		Engine:   eng,
		Registry: reg,
		Restorer: restorer,
		Audit:    rec,
	}, logger)

	scheme := "http"
	if cfg.Server.TLS.Enabled {
		scheme = "https"
	}
	fmt.Printf("→ Shellboard\n")
	fmt.Printf("→ Listening on %s://%s:%d\n", scheme, cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ OpenAPI:    %s://%s:%d/openapi.json\n", scheme, cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("→ Health:     %s://%s:%d/healthz\n", scheme, cfg.Server.Host, cfg.Server.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

// loadConfig parses the YAML config located by viper and applies the
// SHELLBOARD_JWT_SECRET fallback for installs that keep the secret out of
// the file entirely.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = os.Getenv("SHELLBOARD_JWT_SECRET")
	}
	return cfg, nil
}

func newLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
