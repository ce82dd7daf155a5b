// Package adapter implements the uniform introspection/query contract that
// sits above internal/connector.Connector: the same operation names work
// against every dialect, with the SQL-text differences collapsed into a
// small per-dialect Dialect value instead of a type switch at every call
// site.
package adapter

import "fmt"

// Dialect captures the handful of SQL-text differences the uniform
// contract needs beyond what connector.Connector already exposes
// (QuoteIdentifier, ParameterPlaceholder, SupportsReturning).
type Dialect struct {
	Key string // matches connector.Connector.DriverName()

	// ListDatabases/ListSchemas/ListTableTriggers/CreateScript queries are
	// looked up from the package-level catalogQueries table by Key.

	// TruncateStmt renders a TRUNCATE (or dialect equivalent) statement for
	// a single already-quoted table name.
	TruncateStmt func(quotedTable string) string

	// SelectTop renders a "first N rows" query for an already-quoted table
	// name and already-quoted, comma-joined column list ("*" if empty).
	SelectTop func(quotedTable, columns string, limit int) string
}

var dialects = map[string]Dialect{
	"postgres": {
		Key:          "postgres",
		TruncateStmt: func(t string) string { return fmt.Sprintf("TRUNCATE TABLE %s CASCADE", t) },
		SelectTop: func(t, cols string, limit int) string {
			return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", cols, t, limit)
		},
	},
	"redshift": {
		Key:          "redshift",
		TruncateStmt: func(t string) string { return fmt.Sprintf("TRUNCATE TABLE %s", t) },
		SelectTop: func(t, cols string, limit int) string {
			return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", cols, t, limit)
		},
	},
	"mysql": {
		Key:          "mysql",
		TruncateStmt: func(t string) string { return fmt.Sprintf("TRUNCATE TABLE %s", t) },
		SelectTop: func(t, cols string, limit int) string {
			return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", cols, t, limit)
		},
	},
	"mssql": {
		Key:          "mssql",
		TruncateStmt: func(t string) string { return fmt.Sprintf("TRUNCATE TABLE %s", t) },
		SelectTop: func(t, cols string, limit int) string {
			return fmt.Sprintf("SELECT TOP %d %s FROM %s", limit, cols, t)
		},
	},
	"sqlite": {
		Key: "sqlite",
		// SQLite has no TRUNCATE; DELETE FROM is the dialect equivalent and
		// also resets rowid-based autoincrement counters when followed by
		// a sqlite_sequence cleanup, which TruncateAllTables performs.
		TruncateStmt: func(t string) string { return fmt.Sprintf("DELETE FROM %s", t) },
		SelectTop: func(t, cols string, limit int) string {
			return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", cols, t, limit)
		},
	},
	"cassandra": {
		Key:          "cassandra",
		TruncateStmt: func(t string) string { return fmt.Sprintf("TRUNCATE %s", t) },
		SelectTop: func(t, cols string, limit int) string {
			return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", cols, t, limit)
		},
	},
}

// ForKey returns the Dialect registered under key, and whether it was found.
func ForKey(key string) (Dialect, bool) {
	d, ok := dialects[key]
	return d, ok
}
