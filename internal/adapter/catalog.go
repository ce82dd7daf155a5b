package adapter

// catalogQueries holds the few raw, dialect-specific SQL statements the
// uniform contract needs beyond what connector.Connector's IntrospectSchema/
// IntrospectTable/GetStoredProcedures already derive generically. Grounded
// on the same information_schema/catalog style the teacher's own
// introspect.go files use per dialect.
type catalogQueries struct {
	ListDatabases  string
	ListSchemas    string
	ListTriggers   string // parameterized by table name
	TableCreateSQL string // MySQL: SHOW CREATE TABLE; SQLite: sqlite_master.sql; empty elsewhere (DDL is reconstructed from column metadata)
	ViewCreateSQL  string
	RoutineDDLSQL  string
}

var catalogs = map[string]catalogQueries{
	"postgres": {
		ListDatabases: `SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname`,
		ListSchemas:   `SELECT schema_name FROM information_schema.schemata WHERE schema_name NOT IN ('pg_catalog', 'information_schema') ORDER BY schema_name`,
		ListTriggers: `SELECT trigger_name, event_manipulation, action_timing, action_statement
			FROM information_schema.triggers
			WHERE event_object_table = $1
			ORDER BY trigger_name`,
		ViewCreateSQL: `SELECT view_definition FROM information_schema.views WHERE table_name = $1`,
		RoutineDDLSQL: `SELECT pg_get_functiondef(p.oid)
			FROM pg_proc p
			JOIN pg_namespace n ON p.pronamespace = n.oid
			WHERE p.proname = $1 AND n.nspname = 'public'`,
	},
	"redshift": {
		ListDatabases: `SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname`,
		ListSchemas:   `SELECT schema_name FROM information_schema.schemata WHERE schema_name NOT IN ('pg_catalog', 'information_schema') ORDER BY schema_name`,
		ViewCreateSQL: `SELECT view_definition FROM information_schema.views WHERE table_name = $1`,
		// Redshift has no triggers and no pg_get_functiondef; RoutineDDLSQL
		// left empty so the adapter falls back to a reconstructed signature.
	},
	"mysql": {
		ListDatabases: `SHOW DATABASES`,
		ListSchemas:   `SHOW DATABASES`,
		ListTriggers: `SELECT TRIGGER_NAME, EVENT_MANIPULATION, ACTION_TIMING, ACTION_STATEMENT
			FROM information_schema.triggers
			WHERE EVENT_OBJECT_TABLE = ? AND TRIGGER_SCHEMA = DATABASE()
			ORDER BY TRIGGER_NAME`,
		TableCreateSQL: `SHOW CREATE TABLE`, // special-cased: identifier appended, not parameterized
		ViewCreateSQL:  `SHOW CREATE VIEW`,   // special-cased
		RoutineDDLSQL:  `SHOW CREATE PROCEDURE`,
	},
	"mssql": {
		ListDatabases: `SELECT name FROM sys.databases ORDER BY name`,
		ListSchemas:   `SELECT schema_name FROM information_schema.schemata ORDER BY schema_name`,
		ListTriggers: `SELECT tr.name, 'UPDATE', 'AFTER', m.definition
			FROM sys.triggers tr
			JOIN sys.sql_modules m ON tr.object_id = m.object_id
			JOIN sys.tables t ON tr.parent_id = t.object_id
			WHERE t.name = @p1
			ORDER BY tr.name`,
		ViewCreateSQL: `SELECT m.definition FROM sys.sql_modules m
			JOIN sys.views v ON m.object_id = v.object_id
			WHERE v.name = @p1`,
		RoutineDDLSQL: `SELECT m.definition FROM sys.sql_modules m
			JOIN sys.objects o ON m.object_id = o.object_id
			WHERE o.name = @p1`,
	},
	"sqlite": {
		ListDatabases: `PRAGMA database_list`,
		ListTriggers:  `SELECT name, sql FROM sqlite_master WHERE type = 'trigger' AND tbl_name = ? ORDER BY name`,
		TableCreateSQL: `SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`,
		ViewCreateSQL:  `SELECT sql FROM sqlite_master WHERE type = 'view' AND name = ?`,
	},
	"cassandra": {
		// Keyspaces stand in for both "databases" and "schemas" in CQL;
		// the detection of system_schema (v3+) vs system (v2) keyspace
		// names happens in the cassandra connector package itself.
		ListDatabases: `SELECT keyspace_name FROM system_schema.keyspaces`,
		ListSchemas:   `SELECT keyspace_name FROM system_schema.keyspaces`,
	},
}

func catalogFor(dialectKey string) catalogQueries {
	return catalogs[dialectKey]
}
