package session

import (
	"fmt"
	"net/url"

	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/registry"
)

// buildDSN renders a connector.ConnectionConfig DSN for d's dialect,
// addressing host/port exactly as given (the caller rewrites these to the
// tunnel's loopback address first when an SSH tunnel is active).
func buildDSN(d registry.Descriptor, host string, port int) (string, error) {
	switch d.Client {
	case "postgresql", "redshift":
		sslmode := "disable"
		if d.SSL {
			sslmode = "require"
		}
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			url.PathEscape(d.User), url.PathEscape(d.Password), host, port, d.Database, sslmode)
		return connector.SanitizeDSN("postgres", dsn), nil

	case "mysql", "mariadb":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", d.User, d.Password, host, port, d.Database)
		if d.SSL {
			dsn += "?tls=true"
		}
		return connector.SanitizeDSN("mysql", dsn), nil

	case "sqlserver":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			url.PathEscape(d.User), url.PathEscape(d.Password), host, port, d.Database)
		return connector.SanitizeDSN("mssql", dsn), nil

	case "sqlite":
		if d.Database == "" {
			return ":memory:", nil
		}
		return d.Database, nil

	case "cassandra":
		dsn := fmt.Sprintf("%s:%d", host, port)
		if d.Database != "" {
			dsn += "/" + d.Database
		}
		return dsn, nil

	default:
		return "", fmt.Errorf("session: unsupported dialect %q", d.Client)
	}
}
