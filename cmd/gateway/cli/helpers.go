package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dbgateway/gateway/internal/config"
	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/connector/cassandra"
	"github.com/dbgateway/gateway/internal/connector/mssql"
	"github.com/dbgateway/gateway/internal/connector/mysql"
	"github.com/dbgateway/gateway/internal/connector/postgres"
	"github.com/dbgateway/gateway/internal/connector/redshift"
	"github.com/dbgateway/gateway/internal/connector/snowflake"
	"github.com/dbgateway/gateway/internal/connector/sqlite"
	"github.com/dbgateway/gateway/internal/registry"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// GATEWAY_DATA_DIR env var, or ~/.gateway as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("GATEWAY_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.gateway"
}

// openConfigStore opens the SQLite config store, defaulting to ~/.gateway
// if no data dir was specified.
func openConfigStore() (*config.Store, error) {
	return config.NewStore(resolveDataDir())
}

// newRegistry creates a connector registry with all supported database
// drivers registered under the client keys servers.json descriptors use
// (registry.Clients), plus the bare driver name for callers that already
// hold one (e.g. connector.Connector.DriverName() round-trips).
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()

	registry.RegisterDriver("postgres", func() connector.Connector { return postgres.New() })
	registry.RegisterDriver("postgresql", func() connector.Connector { return postgres.New() })
	registry.RegisterDriver("redshift", func() connector.Connector { return redshift.New() })
	registry.RegisterDriver("mysql", func() connector.Connector { return mysql.New() })
	registry.RegisterDriver("mariadb", func() connector.Connector { return mysql.New() })
	registry.RegisterDriver("mssql", func() connector.Connector { return mssql.New() })
	registry.RegisterDriver("sqlserver", func() connector.Connector { return mssql.New() })
	registry.RegisterDriver("snowflake", func() connector.Connector { return snowflake.New() })
	registry.RegisterDriver("sqlite", func() connector.Connector { return sqlite.New() })
	registry.RegisterDriver("cassandra", func() connector.Connector { return cassandra.New() })

	return registry
}

// serverRegistryPath returns the path to the server descriptor document
// (spec.md §6's sqlectron.json-shaped file), under the data directory.
func serverRegistryPath() string {
	return filepath.Join(resolveDataDir(), "servers.json")
}

// vaultSecret returns the passphrase used to encrypt/decrypt server
// descriptor secrets at rest, from GATEWAY_VAULT_SECRET or a fixed
// development fallback (mirrors runServe's jwtSecret fallback).
func vaultSecret() string {
	if s := os.Getenv("GATEWAY_VAULT_SECRET"); s != "" {
		return s
	}
	return "gateway-dev-vault-secret-change-me"
}

// openServerRegistry opens the persisted server descriptor registry.
func openServerRegistry() *registry.Registry {
	return registry.New(serverRegistryPath(), vaultSecret())
}

// --- PID file management ---

func pidFilePath() string {
	return filepath.Join(resolveDataDir(), "gateway.pid")
}

func writePID(pid int) error {
	dir := resolveDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePID() {
	os.Remove(pidFilePath())
}

func logFilePath() string {
	return filepath.Join(resolveDataDir(), "gateway.log")
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
