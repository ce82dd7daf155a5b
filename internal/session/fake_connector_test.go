package session

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/model"
)

// fakeConnector is a minimal connector.Connector stand-in used only to
// exercise newConnection's pool-sizing decision for a non-sqlite driver
// name; every other method is unreachable in that test.
type fakeConnector struct {
	driverName string
}

func (f *fakeConnector) Connect(cfg connector.ConnectionConfig) error { return nil }
func (f *fakeConnector) Disconnect() error                            { return nil }
func (f *fakeConnector) Ping(ctx context.Context) error               { return nil }
func (f *fakeConnector) DB() *sqlx.DB                                 { return nil }

func (f *fakeConnector) IntrospectSchema(ctx context.Context) (*model.Schema, error) {
	return nil, nil
}
func (f *fakeConnector) IntrospectTable(ctx context.Context, tableName string) (*model.TableSchema, error) {
	return nil, nil
}
func (f *fakeConnector) GetTableNames(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeConnector) GetStoredProcedures(ctx context.Context) ([]model.StoredProcedure, error) {
	return nil, nil
}

func (f *fakeConnector) BuildSelect(ctx context.Context, req connector.SelectRequest) (string, []interface{}, error) {
	return "", nil, nil
}
func (f *fakeConnector) BuildInsert(ctx context.Context, req connector.InsertRequest) (string, []interface{}, error) {
	return "", nil, nil
}
func (f *fakeConnector) BuildUpdate(ctx context.Context, req connector.UpdateRequest) (string, []interface{}, error) {
	return "", nil, nil
}
func (f *fakeConnector) BuildDelete(ctx context.Context, req connector.DeleteRequest) (string, []interface{}, error) {
	return "", nil, nil
}
func (f *fakeConnector) BuildCount(ctx context.Context, req connector.CountRequest) (string, []interface{}, error) {
	return "", nil, nil
}

func (f *fakeConnector) CreateTable(ctx context.Context, def model.TableSchema) error { return nil }
func (f *fakeConnector) AlterTable(ctx context.Context, tableName string, changes []connector.SchemaChange) error {
	return nil
}
func (f *fakeConnector) DropTable(ctx context.Context, tableName string) error { return nil }

func (f *fakeConnector) CallProcedure(ctx context.Context, name string, params map[string]interface{}) ([]map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeConnector) DriverName() string                    { return f.driverName }
func (f *fakeConnector) QuoteIdentifier(name string) string    { return name }
func (f *fakeConnector) SupportsReturning() bool               { return false }
func (f *fakeConnector) SupportsUpsert() bool                  { return false }
func (f *fakeConnector) ParameterPlaceholder(index int) string { return "?" }
