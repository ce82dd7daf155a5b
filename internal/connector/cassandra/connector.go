// Package cassandra implements connector.Connector against Cassandra (and
// compatible CQL services such as ScyllaDB) via github.com/gocql/gocql.
//
// Cassandra has no single TCP endpoint with a SQL-over-wire handle, so it
// does not produce a *sqlx.DB: DB() returns nil, and operations that would
// otherwise run through the adapter's shared DB()-based query path are
// special-cased there on dialect key. Session exposes the underlying
// *gocql.Session for that purpose.
package cassandra

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocql/gocql"
	"github.com/jmoiron/sqlx"

	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/gwerrors"
	"github.com/dbgateway/gateway/internal/model"
)

// CassandraConnector implements connector.Connector for Cassandra clusters.
type CassandraConnector struct {
	session  *gocql.Session
	keyspace string
	// schemaV2 is true for clusters old enough to expose schema metadata
	// through system.schema_columnfamilies/schema_columns instead of the
	// system_schema keyspace introduced in Cassandra 3.0.
	schemaV2 bool
}

// New creates a new CassandraConnector.
func New() connector.Connector {
	return &CassandraConnector{}
}

// Session returns the underlying gocql session, for Cassandra-specific
// query paths that cannot go through the database/sql-shaped DB().
func (c *CassandraConnector) Session() *gocql.Session { return c.session }

// Connect establishes a session against the cluster described by cfg.DSN, a
// comma-separated list of "host" or "host:port" contact points, optionally
// followed by "/keyspace" (e.g. "10.0.0.1,10.0.0.2:9042/analytics").
func (c *CassandraConnector) Connect(cfg connector.ConnectionConfig) error {
	hosts, keyspace, err := parseDSN(cfg.DSN)
	if err != nil {
		return fmt.Errorf("cassandra connect: %w", err)
	}
	if cfg.SchemaName != "" {
		keyspace = cfg.SchemaName
	}

	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	if cfg.ConnMaxLifetime > 0 {
		cluster.Timeout = cfg.ConnMaxLifetime
	}
	if cfg.MaxOpenConns > 0 {
		cluster.NumConns = cfg.MaxOpenConns
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("cassandra connect: %w", err)
	}

	c.session = session
	c.keyspace = keyspace
	c.schemaV2 = !hasSystemSchemaKeyspace(session)
	return nil
}

// Disconnect closes the session.
func (c *CassandraConnector) Disconnect() error {
	if c.session != nil {
		c.session.Close()
	}
	return nil
}

// Ping verifies the session is alive by issuing a lightweight query against
// the always-present system.local table.
func (c *CassandraConnector) Ping(ctx context.Context) error {
	return c.session.Query("SELECT key FROM system.local").WithContext(ctx).Exec()
}

// DB always returns nil; Cassandra has no database/sql driver. Callers that
// need to run CQL must go through Session() instead.
func (c *CassandraConnector) DB() *sqlx.DB { return nil }

// DriverName returns the driver identifier for Cassandra.
func (c *CassandraConnector) DriverName() string { return "cassandra" }

// QuoteIdentifier quotes a CQL identifier with double quotes, escaping any
// embedded quote. Unquoted identifiers are folded to lower case by CQL, so
// quoting is only required for identifiers containing upper case letters or
// reserved words; quoting unconditionally is always safe.
func (c *CassandraConnector) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SupportsReturning reports that CQL has no RETURNING clause.
func (c *CassandraConnector) SupportsReturning() bool { return false }

// SupportsUpsert reports that CQL INSERT is always an upsert by partition key.
func (c *CassandraConnector) SupportsUpsert() bool { return true }

// ParameterPlaceholder returns CQL's positional placeholder. CQL ignores the index.
func (c *CassandraConnector) ParameterPlaceholder(_ int) string { return "?" }

// CallProcedure is not supported: Cassandra has no stored procedures.
func (c *CassandraConnector) CallProcedure(ctx context.Context, name string, params map[string]interface{}) ([]map[string]interface{}, error) {
	return nil, gwerrors.NewNotSupportedError("CallProcedure", "cassandra")
}

// GetStoredProcedures always returns an empty slice: Cassandra has no
// stored procedures or user-defined functions exposed through this path
// (UDFs/UDAs live in system_schema.functions and are out of scope).
func (c *CassandraConnector) GetStoredProcedures(ctx context.Context) ([]model.StoredProcedure, error) {
	return []model.StoredProcedure{}, nil
}

// hasSystemSchemaKeyspace reports whether the cluster exposes the 3.0+
// system_schema keyspace, used to pick the introspection query family.
func hasSystemSchemaKeyspace(session *gocql.Session) bool {
	var name string
	err := session.Query(
		"SELECT keyspace_name FROM system_schema.keyspaces WHERE keyspace_name = ?", "system_schema",
	).Scan(&name)
	return err == nil
}

// parseDSN splits a "host1,host2:port/keyspace" DSN into contact points and
// an optional keyspace.
func parseDSN(dsn string) ([]string, string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, "", fmt.Errorf("empty DSN")
	}

	hostsPart := dsn
	keyspace := ""
	if idx := strings.IndexByte(dsn, '/'); idx >= 0 {
		hostsPart = dsn[:idx]
		keyspace = dsn[idx+1:]
	}

	var hosts []string
	for _, h := range strings.Split(hostsPart, ",") {
		h = strings.TrimSpace(h)
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		return nil, "", fmt.Errorf("no contact points in DSN %q", dsn)
	}
	return hosts, keyspace, nil
}
