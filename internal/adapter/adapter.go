package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/gwerrors"
	"github.com/dbgateway/gateway/internal/model"
	"github.com/dbgateway/gateway/internal/statement"
)

// VersionInfo reports a server's reported engine version, split into a
// sortable numeric form so two versions can be compared without parsing
// the raw string twice.
type VersionInfo struct {
	Raw   string
	Major int
	Minor int
	Patch int

	// depth is how many dot-separated components parseVersion actually
	// found in Raw (1, 2, or 3). A VersionInfo built directly as a struct
	// literal (depth left at its zero value) is treated as fully specified
	// — only values parseVersion produces from a short string like "8"
	// compare as a prefix.
	depth int
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, comparing Major, then Minor, then Patch in order, but only up to
// whichever of the two has fewer components: two versions equal up to the
// shorter one's depth compare equal, so cmp("8.0.2", "8") = 0.
func (v VersionInfo) Compare(other VersionInfo) int {
	depth := v.effectiveDepth()
	if od := other.effectiveDepth(); od < depth {
		depth = od
	}

	if depth >= 1 {
		if c := compareInt(v.Major, other.Major); c != 0 {
			return c
		}
	}
	if depth >= 2 {
		if c := compareInt(v.Minor, other.Minor); c != 0 {
			return c
		}
	}
	if depth >= 3 {
		if c := compareInt(v.Patch, other.Patch); c != 0 {
			return c
		}
	}
	return 0
}

func (v VersionInfo) effectiveDepth() int {
	if v.depth <= 0 {
		return 3
	}
	return v.depth
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// NormalizedResult is one statement's outcome from Query/ExecuteQuery,
// shaped the same way regardless of dialect: a SELECT populates Columns/
// Rows, a DML statement populates RowsAffected, and either may populate
// LastInsertID when the dialect reports one.
type NormalizedResult struct {
	StatementType statement.Type
	Columns       []string
	Rows          [][]interface{}
	RowsAffected  int64
	LastInsertID  int64
}

// Adapter wraps a connected connector.Connector with the uniform
// introspection/query contract spec.md §4.5 describes, resolving the
// handful of dialect-specific SQL differences through the package's
// Dialect/catalogQueries tables instead of a type switch per call.
type Adapter struct {
	conn    connector.Connector
	dialect Dialect
	catalog catalogQueries
}

// New wraps an already-Connected connector.Connector. The dialect key is
// taken from conn.DriverName(); an unrecognized key is a programmer error
// (every registered connector has a matching Dialect entry).
func New(conn connector.Connector) (*Adapter, error) {
	key := conn.DriverName()
	d, ok := ForKey(key)
	if !ok {
		return nil, fmt.Errorf("adapter: no dialect registered for driver %q", key)
	}
	return &Adapter{conn: conn, dialect: d, catalog: catalogFor(key)}, nil
}

// WrapIdentifier quotes name per the dialect's identifier quoting rule.
// It delegates to connector.Connector.QuoteIdentifier, which always wraps
// the name and doubles any embedded quote character, so an already-quoted
// identifier is escaped and wrapped a second time.
func (a *Adapter) WrapIdentifier(name string) string {
	return a.conn.QuoteIdentifier(name)
}

// ListTables returns the base tables visible to the connection.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	schema, err := a.conn.IntrospectSchema(ctx)
	if err != nil {
		return nil, gwerrors.NewConnectError(a.dialect.Key, err)
	}
	names := make([]string, 0, len(schema.Tables))
	for _, t := range schema.Tables {
		names = append(names, t.Name)
	}
	return names, nil
}

// ListViews returns the views visible to the connection.
func (a *Adapter) ListViews(ctx context.Context) ([]string, error) {
	schema, err := a.conn.IntrospectSchema(ctx)
	if err != nil {
		return nil, gwerrors.NewConnectError(a.dialect.Key, err)
	}
	names := make([]string, 0, len(schema.Views))
	for _, v := range schema.Views {
		names = append(names, v.Name)
	}
	return names, nil
}

// ListRoutines returns the stored procedures and functions visible to the
// connection.
func (a *Adapter) ListRoutines(ctx context.Context) ([]model.StoredProcedure, error) {
	procs, err := a.conn.GetStoredProcedures(ctx)
	if err != nil {
		return nil, gwerrors.NewConnectError(a.dialect.Key, err)
	}
	return procs, nil
}

// ListTableColumns returns the column definitions of a single table.
func (a *Adapter) ListTableColumns(ctx context.Context, table string) ([]model.Column, error) {
	schema, err := a.conn.IntrospectTable(ctx, table)
	if err != nil {
		return nil, gwerrors.NewConnectError(a.dialect.Key, err)
	}
	return schema.Columns, nil
}

// ListTableIndexes returns the indexes defined on a single table.
func (a *Adapter) ListTableIndexes(ctx context.Context, table string) ([]model.Index, error) {
	schema, err := a.conn.IntrospectTable(ctx, table)
	if err != nil {
		return nil, gwerrors.NewConnectError(a.dialect.Key, err)
	}
	return schema.Indexes, nil
}

// GetTableKeys returns the primary key column names of a single table.
func (a *Adapter) GetTableKeys(ctx context.Context, table string) ([]string, error) {
	schema, err := a.conn.IntrospectTable(ctx, table)
	if err != nil {
		return nil, gwerrors.NewConnectError(a.dialect.Key, err)
	}
	return schema.PrimaryKey, nil
}

// GetTableReferences returns the foreign key constraints of a single
// table.
func (a *Adapter) GetTableReferences(ctx context.Context, table string) ([]model.ForeignKey, error) {
	schema, err := a.conn.IntrospectTable(ctx, table)
	if err != nil {
		return nil, gwerrors.NewConnectError(a.dialect.Key, err)
	}
	return schema.ForeignKeys, nil
}

// triggerRow mirrors one row of the ListTriggers catalog query.
type triggerRow struct {
	Name      string `db:"name"`
	Event     string `db:"event"`
	Timing    string `db:"timing"`
	Statement string `db:"statement"`
}

// ListTableTriggers returns the triggers defined on a single table.
// Redshift and Cassandra have no trigger catalog and always return an
// empty slice, per spec.md §4.5's dialect table.
func (a *Adapter) ListTableTriggers(ctx context.Context, table string) ([]model.Trigger, error) {
	if a.catalog.ListTriggers == "" {
		return []model.Trigger{}, nil
	}

	rows, err := a.conn.DB().QueryContext(ctx, a.catalog.ListTriggers, table)
	if err != nil {
		return nil, gwerrors.NewQueryError(0, err)
	}
	defer rows.Close()

	var out []model.Trigger
	for rows.Next() {
		var name, event, timing, stmt string
		switch a.dialect.Key {
		case "sqlite":
			if err := rows.Scan(&name, &stmt); err != nil {
				return nil, gwerrors.NewQueryError(0, err)
			}
			out = append(out, model.Trigger{Name: name, Statement: stmt})
			continue
		default:
			if err := rows.Scan(&name, &event, &timing, &stmt); err != nil {
				return nil, gwerrors.NewQueryError(0, err)
			}
			out = append(out, model.Trigger{Name: name, Event: event, Timing: timing, Statement: stmt})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, gwerrors.NewQueryError(0, err)
	}
	if out == nil {
		out = []model.Trigger{}
	}
	return out, nil
}

// ListDatabases returns the databases (or, for Cassandra, keyspaces)
// visible to the connection.
func (a *Adapter) ListDatabases(ctx context.Context) ([]string, error) {
	// SQLite has no multi-database catalog query comparable to the other
	// dialects: PRAGMA database_list reports the (seq, name, file) triples
	// of the databases attached to *this* connection (normally just
	// "main"), which is its closest analogue.
	if a.dialect.Key == "sqlite" {
		return a.scanStringsColumn(ctx, a.catalog.ListDatabases, "name")
	}
	if a.dialect.Key == "cassandra" {
		return a.cqlScanStrings(ctx, a.catalog.ListDatabases)
	}
	return a.scanStrings(ctx, a.catalog.ListDatabases)
}

// ListSchemas returns the schemas visible within the current database.
// SQLite and MySQL have no separate schema concept from database, and
// return the same result as ListDatabases.
func (a *Adapter) ListSchemas(ctx context.Context) ([]string, error) {
	if a.catalog.ListSchemas == "" {
		return a.ListDatabases(ctx)
	}
	if a.dialect.Key == "cassandra" {
		return a.cqlScanStrings(ctx, a.catalog.ListSchemas)
	}
	return a.scanStrings(ctx, a.catalog.ListSchemas)
}

// scanStrings runs a single-column query and returns its results.
func (a *Adapter) scanStrings(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return []string{}, nil
	}
	rows, err := a.conn.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, gwerrors.NewQueryError(0, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, gwerrors.NewQueryError(0, err)
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

// scanStringsColumn runs a query and returns the values of one named
// column, for catalog queries (like PRAGMA database_list) that return
// more than one column.
func (a *Adapter) scanStringsColumn(ctx context.Context, query, columnName string) ([]string, error) {
	if query == "" {
		return []string{}, nil
	}
	rows, err := a.conn.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, gwerrors.NewQueryError(0, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, gwerrors.NewQueryError(0, err)
	}
	colIndex := -1
	for i, c := range cols {
		if c == columnName {
			colIndex = i
			break
		}
	}
	if colIndex < 0 {
		return nil, fmt.Errorf("adapter: column %q not found in result", columnName)
	}

	out := []string{}
	dest := make([]interface{}, len(cols))
	holder := make([]string, len(cols))
	for i := range dest {
		dest[i] = &holder[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, gwerrors.NewQueryError(0, err)
		}
		out = append(out, holder[colIndex])
	}
	return out, rows.Err()
}

// GetTableCreateScript returns the CREATE TABLE statement for table, as
// the dialect itself would report it (SHOW CREATE TABLE on MySQL, the
// sqlite_master.sql column on SQLite, a reconstruction from
// information_schema elsewhere).
func (a *Adapter) GetTableCreateScript(ctx context.Context, table string) (string, error) {
	switch a.dialect.Key {
	case "mysql":
		var name, ddl string
		row := a.conn.DB().QueryRowContext(ctx, "SHOW CREATE TABLE "+a.WrapIdentifier(table))
		if err := row.Scan(&name, &ddl); err != nil {
			return "", gwerrors.NewQueryError(0, err)
		}
		return ddl, nil
	case "sqlite":
		var ddl string
		row := a.conn.DB().QueryRowContext(ctx, a.catalog.TableCreateSQL, table)
		if err := row.Scan(&ddl); err != nil {
			return "", gwerrors.NewQueryError(0, err)
		}
		return ddl, nil
	default:
		return a.reconstructCreateTable(ctx, table)
	}
}

// reconstructCreateTable builds a CREATE TABLE statement from column/key/
// index metadata, for dialects (Postgres, Redshift, SQL Server) that don't
// expose a single catalog function returning the original DDL text.
func (a *Adapter) reconstructCreateTable(ctx context.Context, table string) (string, error) {
	schema, err := a.conn.IntrospectTable(ctx, table)
	if err != nil {
		return "", gwerrors.NewConnectError(a.dialect.Key, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", a.WrapIdentifier(table))
	for i, col := range schema.Columns {
		fmt.Fprintf(&b, "  %s %s", a.WrapIdentifier(col.Name), col.Type)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		if col.Default != nil {
			fmt.Fprintf(&b, " DEFAULT %s", *col.Default)
		}
		if i < len(schema.Columns)-1 || len(schema.PrimaryKey) > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	if len(schema.PrimaryKey) > 0 {
		quoted := make([]string, len(schema.PrimaryKey))
		for i, k := range schema.PrimaryKey {
			quoted[i] = a.WrapIdentifier(k)
		}
		fmt.Fprintf(&b, "  PRIMARY KEY (%s)\n", strings.Join(quoted, ", "))
	}
	b.WriteString(")")
	return b.String(), nil
}

// GetViewCreateScript returns the CREATE VIEW statement for view.
func (a *Adapter) GetViewCreateScript(ctx context.Context, view string) (string, error) {
	switch a.dialect.Key {
	case "mysql":
		var name, ddl, charset, collation string
		row := a.conn.DB().QueryRowContext(ctx, "SHOW CREATE VIEW "+a.WrapIdentifier(view))
		if err := row.Scan(&name, &ddl, &charset, &collation); err != nil {
			return "", gwerrors.NewQueryError(0, err)
		}
		return ddl, nil
	case "sqlite":
		var ddl string
		row := a.conn.DB().QueryRowContext(ctx, a.catalog.ViewCreateSQL, view)
		if err := row.Scan(&ddl); err != nil {
			return "", gwerrors.NewQueryError(0, err)
		}
		return ddl, nil
	case "cassandra":
		return "", gwerrors.NewNotSupportedError("GetViewCreateScript", a.dialect.Key)
	default:
		if a.catalog.ViewCreateSQL == "" {
			return "", gwerrors.NewNotSupportedError("GetViewCreateScript", a.dialect.Key)
		}
		var definition string
		row := a.conn.DB().QueryRowContext(ctx, a.catalog.ViewCreateSQL, view)
		if err := row.Scan(&definition); err != nil {
			return "", gwerrors.NewQueryError(0, err)
		}
		return fmt.Sprintf("CREATE VIEW %s AS %s", a.WrapIdentifier(view), strings.TrimSpace(definition)), nil
	}
}

// GetRoutineCreateScript returns the CREATE PROCEDURE/FUNCTION statement
// for a stored routine. Redshift has no pg_get_functiondef equivalent
// exposed to ordinary users, so it falls back to a reconstructed
// signature-only stub, per spec.md §4.5's dialect table.
func (a *Adapter) GetRoutineCreateScript(ctx context.Context, routine string) (string, error) {
	switch a.dialect.Key {
	case "mysql":
		var name, sqlMode, ddl, charset, collation, dbCollation string
		row := a.conn.DB().QueryRowContext(ctx, "SHOW CREATE PROCEDURE "+a.WrapIdentifier(routine))
		if err := row.Scan(&name, &sqlMode, &ddl, &charset, &collation, &dbCollation); err != nil {
			return "", gwerrors.NewQueryError(0, err)
		}
		return ddl, nil
	case "cassandra":
		return "", gwerrors.NewNotSupportedError("GetRoutineCreateScript", a.dialect.Key)
	case "redshift":
		return a.reconstructRoutineSignature(ctx, routine)
	case "sqlite":
		return "", gwerrors.NewNotSupportedError("GetRoutineCreateScript", a.dialect.Key)
	default:
		var definition string
		row := a.conn.DB().QueryRowContext(ctx, a.catalog.RoutineDDLSQL, routine)
		if err := row.Scan(&definition); err != nil {
			return "", gwerrors.NewQueryError(0, err)
		}
		return definition, nil
	}
}

func (a *Adapter) reconstructRoutineSignature(ctx context.Context, routine string) (string, error) {
	procs, err := a.conn.GetStoredProcedures(ctx)
	if err != nil {
		return "", gwerrors.NewConnectError(a.dialect.Key, err)
	}
	for _, p := range procs {
		if p.Name != routine {
			continue
		}
		params := make([]string, len(p.Parameters))
		for i, prm := range p.Parameters {
			params[i] = fmt.Sprintf("%s %s %s", prm.Direction, prm.Name, prm.Type)
		}
		kind := "PROCEDURE"
		if p.Type == "function" {
			kind = "FUNCTION"
		}
		sig := fmt.Sprintf("CREATE %s %s(%s)", kind, a.WrapIdentifier(routine), strings.Join(params, ", "))
		if p.ReturnType != "" {
			sig += " RETURNS " + p.ReturnType
		}
		return sig, nil
	}
	return "", gwerrors.ErrNotFound
}

// defaultSelectTopLimit is the row cap GetQuerySelectTop falls back to when
// the caller doesn't specify one.
const defaultSelectTopLimit = 1000

// GetQuerySelectTop returns a SELECT statement returning at most limit
// rows from table (optionally schema-qualified), using the dialect's
// native "top N" idiom (LIMIT vs TOP). limit <= 0 defaults to
// defaultSelectTopLimit.
func (a *Adapter) GetQuerySelectTop(schema, table string, limit int) string {
	if limit <= 0 {
		limit = defaultSelectTopLimit
	}
	return a.dialect.SelectTop(a.qualifiedIdentifier(schema, table), "*", limit)
}

// GetTableSelectScript returns a SELECT statement enumerating table's
// columns explicitly (never "*"), schema-qualified when schema is
// non-empty. Unlike the Insert/Update/Delete templates, a SELECT script
// has no WHERE clause and so never uses the <condition> placeholder.
func (a *Adapter) GetTableSelectScript(ctx context.Context, table, schema string) (string, error) {
	cols, err := a.ListTableColumns(ctx, table)
	if err != nil {
		return "", err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = a.WrapIdentifier(c.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s;", strings.Join(names, ", "), a.qualifiedIdentifier(schema, table)), nil
}

// qualifiedIdentifier wraps table, prefixed with a wrapped schema when
// schema is non-empty (e.g. `"public"."users"`).
func (a *Adapter) qualifiedIdentifier(schema, table string) string {
	if schema == "" {
		return a.WrapIdentifier(table)
	}
	return a.WrapIdentifier(schema) + "." + a.WrapIdentifier(table)
}

// GetTableInsertScript returns a templated INSERT statement for table,
// listing its columns with a "?" placeholder per column.
func (a *Adapter) GetTableInsertScript(ctx context.Context, table string) (string, error) {
	cols, err := a.ListTableColumns(ctx, table)
	if err != nil {
		return "", err
	}
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		names[i] = a.WrapIdentifier(c.Name)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		a.WrapIdentifier(table), strings.Join(names, ", "), strings.Join(placeholders, ", ")), nil
}

// GetTableUpdateScript returns a templated UPDATE statement for table.
func (a *Adapter) GetTableUpdateScript(ctx context.Context, table string) (string, error) {
	cols, err := a.ListTableColumns(ctx, table)
	if err != nil {
		return "", err
	}
	assignments := make([]string, len(cols))
	for i, c := range cols {
		assignments[i] = fmt.Sprintf("%s = ?", a.WrapIdentifier(c.Name))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE <condition>",
		a.WrapIdentifier(table), strings.Join(assignments, ", ")), nil
}

// GetTableDeleteScript returns a templated DELETE statement for table.
func (a *Adapter) GetTableDeleteScript(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE <condition>", a.WrapIdentifier(table))
}

// TruncateAllTables truncates (or, on SQLite, deletes all rows from) every
// base table returned by ListTables. Tables are processed in the order
// ListTables returns them; callers that need FK-safe ordering should
// disable constraints at the session level before calling this.
func (a *Adapter) TruncateAllTables(ctx context.Context) error {
	if a.dialect.Key == "cassandra" {
		return a.cqlTruncateAllTables(ctx)
	}
	tables, err := a.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, table := range tables {
		stmt := a.dialect.TruncateStmt(a.WrapIdentifier(table))
		if _, err := a.conn.DB().ExecContext(ctx, stmt); err != nil {
			return gwerrors.NewQueryError(0, fmt.Errorf("truncate %s: %w", table, err))
		}
	}
	if a.dialect.Key == "sqlite" {
		a.conn.DB().ExecContext(ctx, "DELETE FROM sqlite_sequence")
	}
	return nil
}
