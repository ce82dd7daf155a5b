// Package redshift implements connector.Connector for Amazon Redshift.
// Redshift speaks the PostgreSQL wire protocol and shares its catalog
// views closely enough that the connector is a thin wrapper around
// postgres.PostgresConnector, overriding only the identity reported to the
// rest of the gateway (dialect key, used to route catalog/DDL queries that
// differ between the two: Redshift has no triggers and restricts
// pg_get_functiondef to superusers, both handled by the adapter package's
// dialect table rather than here).
package redshift

import (
	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/connector/postgres"
)

// RedshiftConnector implements connector.Connector for Redshift clusters.
type RedshiftConnector struct {
	connector.Connector
}

// New creates a new RedshiftConnector, backed by a PostgresConnector.
func New() connector.Connector {
	return &RedshiftConnector{Connector: postgres.New()}
}

// DriverName returns the driver identifier for Redshift, distinguishing it
// from plain PostgreSQL so the adapter package selects Redshift's dialect
// and catalog query set.
func (c *RedshiftConnector) DriverName() string { return "redshift" }
