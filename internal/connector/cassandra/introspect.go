package cassandra

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbgateway/gateway/internal/model"
)

// columnRow holds a row from system_schema.columns (3.0+) or the
// normalized equivalent built from system.schema_columns (pre-3.0).
type columnRow struct {
	Name     string
	Kind     string // "partition_key", "clustering", "regular", "static"
	Position int
	Type     string
}

// IntrospectSchema returns every table and materialized view in the
// connected keyspace.
func (c *CassandraConnector) IntrospectSchema(ctx context.Context) (*model.Schema, error) {
	tableNames, err := c.GetTableNames(ctx)
	if err != nil {
		return nil, err
	}

	schema := &model.Schema{
		Tables:     []model.TableSchema{},
		Views:      []model.TableSchema{},
		Procedures: []model.StoredProcedure{},
		Functions:  []model.StoredProcedure{},
	}

	for _, name := range tableNames {
		ts, err := c.IntrospectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("introspect table %q: %w", name, err)
		}
		schema.Tables = append(schema.Tables, *ts)
	}

	viewNames, err := c.listViewNames(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range viewNames {
		ts, err := c.IntrospectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("introspect view %q: %w", name, err)
		}
		ts.Type = "view"
		schema.Views = append(schema.Views, *ts)
	}

	return schema, nil
}

// GetTableNames lists the base tables (excluding materialized views) in the
// connected keyspace.
func (c *CassandraConnector) GetTableNames(ctx context.Context) ([]string, error) {
	if c.schemaV2 {
		return c.scanNames(ctx, "SELECT columnfamily_name FROM system.schema_columnfamilies WHERE keyspace_name = ?")
	}
	return c.scanNames(ctx, "SELECT table_name FROM system_schema.tables WHERE keyspace_name = ?")
}

func (c *CassandraConnector) listViewNames(ctx context.Context) ([]string, error) {
	if c.schemaV2 {
		// Materialized views were introduced in Cassandra 3.0 alongside
		// system_schema; a 2.x cluster has none.
		return nil, nil
	}
	return c.scanNames(ctx, "SELECT view_name FROM system_schema.views WHERE keyspace_name = ?")
}

func (c *CassandraConnector) scanNames(ctx context.Context, query string) ([]string, error) {
	iter := c.session.Query(query, c.keyspace).WithContext(ctx).Iter()
	var names []string
	var name string
	for iter.Scan(&name) {
		names = append(names, name)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("cassandra: %w", err)
	}
	return names, nil
}

// IntrospectTable returns the schema for a single table or materialized
// view, including its primary key and secondary indexes.
func (c *CassandraConnector) IntrospectTable(ctx context.Context, tableName string) (*model.TableSchema, error) {
	columns, err := c.tableColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q not found", tableName)
	}

	modelColumns := make([]model.Column, 0, len(columns))
	var primaryKey []string
	for _, col := range columns {
		goType, jsonType := mapCQLType(col.Type)
		isKey := col.Kind == "partition_key" || col.Kind == "clustering"
		if isKey {
			primaryKey = append(primaryKey, col.Name)
		}
		modelColumns = append(modelColumns, model.Column{
			Name:         col.Name,
			Position:     col.Position,
			Type:         col.Type,
			GoType:       goType,
			JsonType:     jsonType,
			Nullable:     col.Kind == "regular" || col.Kind == "static",
			IsPrimaryKey: isKey,
		})
	}

	indexes, err := c.tableIndexes(ctx, tableName)
	if err != nil {
		return nil, err
	}

	return &model.TableSchema{
		Name:        tableName,
		Type:        "table",
		Columns:     modelColumns,
		PrimaryKey:  primaryKey,
		ForeignKeys: []model.ForeignKey{}, // CQL has no referential foreign keys
		Indexes:     indexes,
	}, nil
}

func (c *CassandraConnector) tableColumns(ctx context.Context, tableName string) ([]columnRow, error) {
	if c.schemaV2 {
		return c.tableColumnsV2(ctx, tableName)
	}

	iter := c.session.Query(
		`SELECT column_name, kind, position, type FROM system_schema.columns
		 WHERE keyspace_name = ? AND table_name = ?`,
		c.keyspace, tableName,
	).WithContext(ctx).Iter()

	var rows []columnRow
	var row columnRow
	for iter.Scan(&row.Name, &row.Kind, &row.Position, &row.Type) {
		rows = append(rows, row)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("cassandra: columns for %q: %w", tableName, err)
	}
	return rows, nil
}

// tableColumnsV2 supports Cassandra 2.x clusters, which have no "kind"
// column; every column reported by schema_columns is a regular column, and
// the partition/clustering key names come from schema_columnfamilies'
// key_aliases/column_aliases instead. Keys are marked best-effort by name
// match since those columns are not always present in schema_columns.
func (c *CassandraConnector) tableColumnsV2(ctx context.Context, tableName string) ([]columnRow, error) {
	var keyAliases, columnAliases string
	_ = c.session.Query(
		`SELECT key_aliases, column_aliases FROM system.schema_columnfamilies
		 WHERE keyspace_name = ? AND columnfamily_name = ?`,
		c.keyspace, tableName,
	).WithContext(ctx).Scan(&keyAliases, &columnAliases)

	keyNames := map[string]bool{}
	for _, n := range splitAliasList(keyAliases) {
		keyNames[n] = true
	}
	for _, n := range splitAliasList(columnAliases) {
		keyNames[n] = true
	}

	iter := c.session.Query(
		`SELECT column_name, type FROM system.schema_columns
		 WHERE keyspace_name = ? AND columnfamily_name = ?`,
		c.keyspace, tableName,
	).WithContext(ctx).Iter()

	var rows []columnRow
	var name, typ string
	position := 0
	for iter.Scan(&name, &typ) {
		kind := "regular"
		if keyNames[name] {
			kind = "partition_key"
		}
		rows = append(rows, columnRow{Name: name, Kind: kind, Position: position, Type: typ})
		position++
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("cassandra: columns for %q: %w", tableName, err)
	}
	return rows, nil
}

// splitAliasList parses schema_columnfamilies' JSON-ish alias string
// (e.g. `["id"]`) without pulling in a JSON dependency for two fields.
func splitAliasList(raw string) []string {
	raw = strings.Trim(raw, "[]")
	if raw == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(raw, ",") {
		names = append(names, strings.Trim(strings.TrimSpace(part), `"`))
	}
	return names
}

func (c *CassandraConnector) tableIndexes(ctx context.Context, tableName string) ([]model.Index, error) {
	if c.schemaV2 {
		// 2.x secondary indexes are reported as column flags, not a
		// separate catalog; introspection skips them rather than guessing.
		return []model.Index{}, nil
	}

	iter := c.session.Query(
		`SELECT index_name FROM system_schema.indexes WHERE keyspace_name = ? AND table_name = ?`,
		c.keyspace, tableName,
	).WithContext(ctx).Iter()

	var indexes []model.Index
	var name string
	for iter.Scan(&name) {
		indexes = append(indexes, model.Index{Name: name, Columns: []string{}, IsUnique: false})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("cassandra: indexes for %q: %w", tableName, err)
	}
	return indexes, nil
}

// mapCQLType maps a CQL column type to Go and JSON Schema types.
func mapCQLType(cqlType string) (goType, jsonType string) {
	base := strings.ToLower(strings.TrimSpace(cqlType))
	base = strings.TrimPrefix(base, "frozen<")
	if idx := strings.IndexByte(base, '<'); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSuffix(base, ">")

	switch base {
	case "text", "varchar", "ascii":
		return "string", "string"
	case "int", "smallint", "tinyint":
		return "int32", "integer"
	case "bigint", "counter", "varint":
		return "int64", "integer"
	case "float":
		return "float32", "number"
	case "double", "decimal":
		return "float64", "number"
	case "boolean":
		return "bool", "boolean"
	case "uuid", "timeuuid":
		return "string", "string(uuid)"
	case "timestamp":
		return "time.Time", "string(date-time)"
	case "date":
		return "time.Time", "string(date)"
	case "time":
		return "int64", "string(time)"
	case "blob":
		return "[]byte", "string(byte)"
	case "inet":
		return "string", "string(ipv4)"
	case "list", "set", "tuple":
		return "[]interface{}", "array"
	case "map":
		return "map[string]interface{}", "object"
	default:
		return "interface{}", "string"
	}
}
