package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dbgateway/gateway/internal/config"
	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/gateway"
	fmcp "github.com/dbgateway/gateway/internal/mcp"
	registryPkg "github.com/dbgateway/gateway/internal/registry"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
		dataDir   string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes database operations
as tools for AI agents like Claude. Supports stdio (default) and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with Claude Desktop or other MCP clients.

In HTTP mode, the server listens on the specified port for SSE connections.`,
		Example: `  gateway mcp                            # stdio mode (for Claude Desktop)
  gateway mcp --transport http --port 3001  # HTTP SSE mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port, dataDir)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory for SQLite config (default: ~/.gateway)")

	return cmd
}

func runMCP(transport string, port int, dataDir string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Initialize config store
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = home + "/.gateway"
	}
	store, err := config.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("init config store: %w", err)
	}
	defer store.Close()

	// Initialize connector registry (every dialect key, teacher's and
	// spec.md's, under both its connector.Registry driver name and its
	// registry.Clients dialect key — see newRegistry).
	registry := newRegistry()

	// Connect all active services
	services, err := store.ListServices(context.Background())
	if err != nil {
		logger.Warn("failed to load services", "error", err)
	}
	for _, svc := range services {
		if !svc.IsActive {
			continue
		}
		cfg := connector.ConnectionConfig{
			Driver:          svc.Driver,
			DSN:             svc.DSN,
			PrivateKeyPath:  svc.PrivateKeyPath,
			SchemaName:      svc.Schema,
			MaxOpenConns:    svc.Pool.MaxOpenConns,
			MaxIdleConns:    svc.Pool.MaxIdleConns,
			ConnMaxLifetime: svc.Pool.ConnMaxLifetime,
			ConnMaxIdleTime: svc.Pool.ConnMaxIdleTime,
		}
		if err := registry.Connect(svc.Name, cfg); err != nil {
			logger.Error("failed to connect service", "service", svc.Name, "error", err)
		} else {
			logger.Info("connected service", "service", svc.Name, "driver", svc.Driver)
		}
	}
	defer registry.CloseAll()

	// Create MCP server
	serversRegistry := registryPkg.New(filepath.Join(dataDir, "servers.json"), vaultSecret())
	gw := gateway.New(serversRegistry, registry)
	mcpSrv := fmcp.NewMCPServer(registry, store, gw, logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		addr := fmt.Sprintf(":%d", port)
		jwtSecret := viper.GetString("auth.jwt_secret")
		if jwtSecret == "" {
			jwtSecret = "gateway-dev-secret-change-me"
		}
		logger.Info("starting MCP HTTP server", "addr", addr)
		return mcpSrv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
