package cassandra

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/model"
)

// BuildSelect constructs a CQL SELECT. CQL has no OFFSET; pagination beyond
// LIMIT is driven by paging state at the session layer, not expressible in
// query text, so a non-zero Offset is rejected rather than silently ignored.
func (c *CassandraConnector) BuildSelect(_ context.Context, req connector.SelectRequest) (string, []interface{}, error) {
	if req.Table == "" {
		return "", nil, fmt.Errorf("table name is required")
	}
	if req.Offset > 0 {
		return "", nil, fmt.Errorf("cassandra: OFFSET is not supported, use paging state instead")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if len(req.Fields) > 0 {
		quoted := make([]string, len(req.Fields))
		for i, f := range req.Fields {
			quoted[i] = c.QuoteIdentifier(f)
		}
		b.WriteString(strings.Join(quoted, ", "))
	} else {
		b.WriteString("*")
	}

	b.WriteString(" FROM ")
	b.WriteString(c.QuoteIdentifier(req.Table))

	var args []interface{}
	if req.Filter != "" {
		b.WriteString(" WHERE ")
		b.WriteString(req.Filter)
		args = append(args, req.FilterArgs...)
	}

	if req.Order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(req.Order)
	}

	if req.Limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d", req.Limit))
	}

	b.WriteString(" ALLOW FILTERING")

	return b.String(), args, nil
}

// BuildInsert constructs a CQL INSERT for the first record in req.Records.
// CQL INSERT takes exactly one row per statement; callers with multiple
// records issue one BuildInsert per record or use an unlogged batch at the
// session layer.
func (c *CassandraConnector) BuildInsert(_ context.Context, req connector.InsertRequest) (string, []interface{}, error) {
	if req.Table == "" {
		return "", nil, fmt.Errorf("table name is required")
	}
	if len(req.Records) == 0 {
		return "", nil, fmt.Errorf("at least one record is required")
	}

	record := req.Records[0]
	columns := make([]string, 0, len(record))
	for col := range record {
		columns = append(columns, col)
	}
	sortStrings(columns)

	quotedCols := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		quotedCols[i] = c.QuoteIdentifier(col)
		placeholders[i] = "?"
		args[i] = record[col]
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.QuoteIdentifier(req.Table),
		strings.Join(quotedCols, ", "),
		strings.Join(placeholders, ", "),
	)
	return stmt, args, nil
}

// BuildUpdate constructs a CQL UPDATE. Updates must address the full
// partition/clustering key through req.Filter; CQL has no notion of
// updating "by primary key list" the way a relational IN clause does
// across arbitrary columns.
func (c *CassandraConnector) BuildUpdate(_ context.Context, req connector.UpdateRequest) (string, []interface{}, error) {
	if req.Table == "" {
		return "", nil, fmt.Errorf("table name is required")
	}
	if len(req.Record) == 0 {
		return "", nil, fmt.Errorf("at least one field to update is required")
	}
	if req.Filter == "" {
		return "", nil, fmt.Errorf("cassandra: UPDATE requires a WHERE clause addressing the primary key")
	}

	columns := make([]string, 0, len(req.Record))
	for col := range req.Record {
		columns = append(columns, col)
	}
	sortStrings(columns)

	sets := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns)+len(req.FilterArgs))
	for i, col := range columns {
		sets[i] = fmt.Sprintf("%s = ?", c.QuoteIdentifier(col))
		args = append(args, req.Record[col])
	}
	args = append(args, req.FilterArgs...)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		c.QuoteIdentifier(req.Table), strings.Join(sets, ", "), req.Filter)
	return stmt, args, nil
}

// BuildDelete constructs a CQL DELETE, scoped by req.Filter (the primary key
// predicate); CQL has no row-count-limited DELETE.
func (c *CassandraConnector) BuildDelete(_ context.Context, req connector.DeleteRequest) (string, []interface{}, error) {
	if req.Table == "" {
		return "", nil, fmt.Errorf("table name is required")
	}
	if req.Filter == "" {
		return "", nil, fmt.Errorf("cassandra: DELETE requires a WHERE clause addressing the primary key")
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", c.QuoteIdentifier(req.Table), req.Filter)
	return stmt, req.FilterArgs, nil
}

// BuildCount constructs a CQL SELECT COUNT(*). Counting a large partition
// range scans the cluster; CQL offers no query planner to warn about this.
func (c *CassandraConnector) BuildCount(_ context.Context, req connector.CountRequest) (string, []interface{}, error) {
	if req.Table == "" {
		return "", nil, fmt.Errorf("table name is required")
	}

	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(c.QuoteIdentifier(req.Table))

	var args []interface{}
	if req.Filter != "" {
		b.WriteString(" WHERE ")
		b.WriteString(req.Filter)
		args = append(args, req.FilterArgs...)
		b.WriteString(" ALLOW FILTERING")
	}

	return b.String(), args, nil
}

// CreateTable issues a CQL CREATE TABLE built from def. The first column
// flagged IsPrimaryKey becomes the partition key; CQL's composite/clustering
// key shapes have no equivalent in model.Column, so every additional
// primary-key column is appended as a clustering column in field order.
func (c *CassandraConnector) CreateTable(ctx context.Context, def model.TableSchema) error {
	if def.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if len(def.Columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(c.QuoteIdentifier(def.Name))
	b.WriteString(" (\n")

	var keyCols []string
	for i, col := range def.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(c.QuoteIdentifier(col.Name))
		b.WriteString(" ")
		b.WriteString(cqlColumnType(col))
		if col.IsPrimaryKey {
			keyCols = append(keyCols, c.QuoteIdentifier(col.Name))
		}
	}
	if len(keyCols) == 0 {
		return fmt.Errorf("cassandra: table %q must declare at least one primary key column", def.Name)
	}

	b.WriteString(",\n  PRIMARY KEY (")
	b.WriteString(keyCols[0])
	if len(keyCols) > 1 {
		b.WriteString(", ")
		b.WriteString(strings.Join(keyCols[1:], ", "))
	}
	b.WriteString(")\n)")

	if err := c.session.Query(b.String()).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create table %q: %w", def.Name, err)
	}
	return nil
}

// AlterTable applies column add/drop/rename changes. CQL has no MODIFY
// COLUMN; "modify_column" is rejected rather than silently dropped.
func (c *CassandraConnector) AlterTable(ctx context.Context, tableName string, changes []connector.SchemaChange) error {
	if tableName == "" {
		return fmt.Errorf("table name is required")
	}

	quotedTable := c.QuoteIdentifier(tableName)
	for _, change := range changes {
		var stmt string
		switch change.Type {
		case "add_column":
			if change.Definition == nil {
				return fmt.Errorf("add_column requires a column definition")
			}
			stmt = fmt.Sprintf("ALTER TABLE %s ADD %s %s", quotedTable,
				c.QuoteIdentifier(change.Column), cqlColumnType(*change.Definition))
		case "drop_column":
			stmt = fmt.Sprintf("ALTER TABLE %s DROP %s", quotedTable, c.QuoteIdentifier(change.Column))
		case "rename_column":
			stmt = fmt.Sprintf("ALTER TABLE %s RENAME %s TO %s", quotedTable,
				c.QuoteIdentifier(change.Column), c.QuoteIdentifier(change.NewName))
		default:
			return fmt.Errorf("cassandra: unsupported alter operation %q", change.Type)
		}

		if err := c.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("alter table %q: %w", tableName, err)
		}
	}
	return nil
}

// DropTable issues a CQL DROP TABLE.
func (c *CassandraConnector) DropTable(ctx context.Context, tableName string) error {
	if tableName == "" {
		return fmt.Errorf("table name is required")
	}
	stmt := fmt.Sprintf("DROP TABLE %s", c.QuoteIdentifier(tableName))
	if err := c.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("drop table %q: %w", tableName, err)
	}
	return nil
}

// cqlColumnType maps a model.Column back to a CQL type declaration, the
// inverse of mapCQLType, defaulting to text for anything unrecognized.
func cqlColumnType(col model.Column) string {
	if col.Type != "" {
		return col.Type
	}
	switch col.GoType {
	case "int32":
		return "int"
	case "int64":
		return "bigint"
	case "float32":
		return "float"
	case "float64":
		return "double"
	case "bool":
		return "boolean"
	case "time.Time":
		return "timestamp"
	case "[]byte":
		return "blob"
	default:
		return "text"
	}
}

// sortStrings sorts s in place using a simple insertion sort; column lists
// are small enough that this avoids importing sort for one call site.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
