package adapter

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/dbgateway/gateway/internal/gwerrors"
)

// cassandraSession is implemented by connector.Connector values that have no
// database/sql handle (DB() returns nil) but expose the driver session
// directly, so the adapter can still run the handful of operations that
// would otherwise go through conn.DB().
type cassandraSession interface {
	Session() *gocql.Session
}

// cqlSession returns the underlying gocql session for a Cassandra
// connector, or an error if conn doesn't implement cassandraSession (a
// programmer error: only the cassandra package's connector is registered
// under the "cassandra" dialect key).
func (a *Adapter) cqlSession() (*gocql.Session, error) {
	cs, ok := a.conn.(cassandraSession)
	if !ok {
		return nil, fmt.Errorf("adapter: connector for dialect %q has no CQL session", a.dialect.Key)
	}
	return cs.Session(), nil
}

// cqlScanStrings runs a single-column CQL query and returns its results,
// the Cassandra equivalent of scanStrings for dialects with a *sqlx.DB.
func (a *Adapter) cqlScanStrings(ctx context.Context, query string) ([]string, error) {
	session, err := a.cqlSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(query).WithContext(ctx).Iter()
	out := []string{}
	var value string
	for iter.Scan(&value) {
		out = append(out, value)
	}
	if err := iter.Close(); err != nil {
		return nil, gwerrors.NewQueryError(0, err)
	}
	return out, nil
}

// cqlTruncateAllTables truncates every table in the connected keyspace.
func (a *Adapter) cqlTruncateAllTables(ctx context.Context) error {
	session, err := a.cqlSession()
	if err != nil {
		return err
	}

	tables, err := a.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, table := range tables {
		stmt := a.dialect.TruncateStmt(a.WrapIdentifier(table))
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return gwerrors.NewQueryError(0, fmt.Errorf("truncate %s: %w", table, err))
		}
	}
	return nil
}

// cqlRunSelect runs a CQL SELECT and shapes it into a NormalizedResult.
// gocql reports column names and Go-typed values through Iter.Columns and
// Iter.RowData instead of database/sql's Rows.Scan(&interface{}) pattern.
func (a *Adapter) cqlRunSelect(ctx context.Context, text string) (NormalizedResult, error) {
	session, err := a.cqlSession()
	if err != nil {
		return NormalizedResult{}, err
	}

	iter := session.Query(text).WithContext(ctx).Iter()
	columnInfo := iter.Columns()
	names := make([]string, len(columnInfo))
	for i, c := range columnInfo {
		names[i] = c.Name
	}

	var out [][]interface{}
	rowData, rdErr := iter.RowData()
	if rdErr == nil {
		for iter.Scan(rowData.Values...) {
			row := make([]interface{}, len(rowData.Values))
			for i, v := range rowData.Values {
				row[i] = derefCQLValue(v)
			}
			out = append(out, row)
		}
	}
	if err := iter.Close(); err != nil {
		if ctx.Err() != nil {
			return NormalizedResult{}, gwerrors.NewCanceledError(err)
		}
		return NormalizedResult{}, gwerrors.NewQueryError(0, err)
	}

	return NormalizedResult{Columns: names, Rows: out}, nil
}

// cqlRunExec runs a CQL statement with no result rows (INSERT/UPDATE/
// DELETE/DDL). CQL reports no rows-affected count; RowsAffected stays 0.
func (a *Adapter) cqlRunExec(ctx context.Context, text string) (NormalizedResult, error) {
	session, err := a.cqlSession()
	if err != nil {
		return NormalizedResult{}, err
	}
	if err := session.Query(text).WithContext(ctx).Exec(); err != nil {
		if ctx.Err() != nil {
			return NormalizedResult{}, gwerrors.NewCanceledError(err)
		}
		return NormalizedResult{}, gwerrors.NewQueryError(0, err)
	}
	return NormalizedResult{}, nil
}

// derefCQLValue unwraps the pointer gocql's RowData allocates per column
// back to the underlying value, so NormalizedResult.Rows holds plain values
// the same way database/sql-backed dialects do.
func derefCQLValue(v interface{}) interface{} {
	switch p := v.(type) {
	case *string:
		return *p
	case *int:
		return *p
	case *int32:
		return *p
	case *int64:
		return *p
	case *float32:
		return *p
	case *float64:
		return *p
	case *bool:
		return *p
	case *[]byte:
		return *p
	default:
		return v
	}
}
