package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/config"
	"github.com/shellboard/shellboard/internal/engine"
	smcp "github.com/shellboard/shellboard/internal/mcp"
	"github.com/shellboard/shellboard/internal/registry"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes panel operations
as tools for AI agents. Supports stdio (default) and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with Claude Desktop or other MCP clients.

In HTTP mode, the server listens on the specified port for streaming
connections.`,
		Example: `  shellboard mcp                               # stdio mode
  shellboard mcp --transport http --port 3001  # HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rec := audit.NewRecorder(st, logger)

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

	mcpSrv := smcp.NewMCPServer(st, eng, reg, logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		addr := fmt.Sprintf(":%d", port)
		logger.Info("starting MCP HTTP server", "addr", addr)
		return mcpSrv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
