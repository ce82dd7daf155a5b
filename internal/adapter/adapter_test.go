package adapter

import (
	"context"
	"strings"
	"testing"

	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/connector/sqlite"
	"github.com/dbgateway/gateway/internal/statement"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	conn := sqlite.New()
	if err := conn.Connect(connector.ConnectionConfig{DSN: ":memory:"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { conn.Disconnect() })

	ctx := context.Background()
	if _, err := conn.DB().ExecContext(ctx, `CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT
	)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := conn.DB().ExecContext(ctx, `INSERT INTO users (name, email) VALUES ('ada', 'ada@example.com'), ('grace', NULL)`); err != nil {
		t.Fatalf("seed rows: %v", err)
	}

	a, err := New(conn)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNewRejectsUnregisteredDialect(t *testing.T) {
	_, err := New(&fakeConnector{driverName: "oracle"})
	if err == nil {
		t.Fatal("expected error for unregistered dialect")
	}
}

func TestListTablesReturnsCreatedTable(t *testing.T) {
	a := newTestAdapter(t)
	tables, err := a.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if !containsString(tables, "users") {
		t.Errorf("expected tables to include %q, got %v", "users", tables)
	}
}

func TestListTableColumnsReturnsExpectedColumns(t *testing.T) {
	a := newTestAdapter(t)
	cols, err := a.ListTableColumns(context.Background(), "users")
	if err != nil {
		t.Fatalf("ListTableColumns: %v", err)
	}
	names := map[string]bool{}
	for _, c := range cols {
		names[c.Name] = true
	}
	for _, want := range []string{"id", "name", "email"} {
		if !names[want] {
			t.Errorf("expected column %q, got %v", want, names)
		}
	}
}

func TestGetQuerySelectTopUsesLimitSyntax(t *testing.T) {
	a := newTestAdapter(t)
	got := a.GetQuerySelectTop("", "users", 5)
	if !strings.Contains(got, "LIMIT 5") {
		t.Errorf("expected LIMIT 5 in %q", got)
	}
	if !strings.Contains(got, `"users"`) {
		t.Errorf("expected quoted table name in %q", got)
	}
}

func TestGetQuerySelectTopDefaultsLimitWhenUnspecified(t *testing.T) {
	a := newTestAdapter(t)
	got := a.GetQuerySelectTop("", "users", 0)
	if !strings.Contains(got, "LIMIT 1000") {
		t.Errorf("expected default LIMIT 1000 in %q", got)
	}
}

func TestGetQuerySelectTopQualifiesSchema(t *testing.T) {
	a := newTestAdapter(t)
	got := a.GetQuerySelectTop("main", "users", 5)
	if !strings.Contains(got, `"main"."users"`) {
		t.Errorf("expected schema-qualified table name in %q", got)
	}
}

func TestGetTableSelectScriptEnumeratesColumns(t *testing.T) {
	a := newTestAdapter(t)
	got, err := a.GetTableSelectScript(context.Background(), "users", "")
	if err != nil {
		t.Fatalf("GetTableSelectScript: %v", err)
	}
	for _, want := range []string{"id", "name", "email"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected column %q in %q", want, got)
		}
	}
	if strings.Contains(got, "*") {
		t.Errorf("expected no wildcard select in %q", got)
	}
	if strings.Contains(got, "<condition>") {
		t.Errorf("expected no <condition> placeholder in a SELECT script, got %q", got)
	}
	if !strings.HasSuffix(got, ";") {
		t.Errorf("expected script to end with a semicolon, got %q", got)
	}
}

func TestGetTableSelectScriptQualifiesSchema(t *testing.T) {
	a := newTestAdapter(t)
	got, err := a.GetTableSelectScript(context.Background(), "users", "main")
	if err != nil {
		t.Fatalf("GetTableSelectScript: %v", err)
	}
	if !strings.Contains(got, `FROM "main"."users";`) {
		t.Errorf("expected schema-qualified FROM clause in %q", got)
	}
}

func TestGetTableInsertScriptListsAllColumns(t *testing.T) {
	a := newTestAdapter(t)
	got, err := a.GetTableInsertScript(context.Background(), "users")
	if err != nil {
		t.Fatalf("GetTableInsertScript: %v", err)
	}
	for _, want := range []string{"id", "name", "email"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected column %q in %q", want, got)
		}
	}
	if strings.Count(got, "?") != 3 {
		t.Errorf("expected 3 placeholders in %q", got)
	}
}

func TestGetTableCreateScriptReturnsOriginalDDL(t *testing.T) {
	a := newTestAdapter(t)
	got, err := a.GetTableCreateScript(context.Background(), "users")
	if err != nil {
		t.Fatalf("GetTableCreateScript: %v", err)
	}
	if !strings.Contains(strings.ToUpper(got), "CREATE TABLE") {
		t.Errorf("expected CREATE TABLE in %q", got)
	}
}

func TestQueryRunsSelectAndReturnsRows(t *testing.T) {
	a := newTestAdapter(t)
	results, err := a.Query(context.Background(), "SELECT id, name FROM users ORDER BY id")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].StatementType != statement.Select {
		t.Errorf("expected Select, got %v", results[0].StatementType)
	}
	if len(results[0].Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(results[0].Rows))
	}
}

func TestQueryRunsMultiStatementBatch(t *testing.T) {
	a := newTestAdapter(t)
	results, err := a.Query(context.Background(), "INSERT INTO users (name) VALUES ('linus'); SELECT COUNT(*) FROM users")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].StatementType != statement.Insert {
		t.Errorf("expected first result Insert, got %v", results[0].StatementType)
	}
	if results[0].RowsAffected != 1 {
		t.Errorf("expected 1 row affected, got %d", results[0].RowsAffected)
	}
	if results[1].StatementType != statement.Select {
		t.Errorf("expected second result Select, got %v", results[1].StatementType)
	}
}

func TestExecuteQueryRejectsMultipleStatements(t *testing.T) {
	a := newTestAdapter(t)
	_, err := a.ExecuteQuery(context.Background(), "SELECT 1; SELECT 2")
	if err == nil {
		t.Fatal("expected error for multi-statement input to ExecuteQuery")
	}
}

func TestTruncateAllTablesRemovesRows(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.TruncateAllTables(context.Background()); err != nil {
		t.Fatalf("TruncateAllTables: %v", err)
	}
	results, err := a.Query(context.Background(), "SELECT COUNT(*) FROM users")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	count := results[0].Rows[0][0]
	if n, ok := count.(int64); !ok || n != 0 {
		t.Errorf("expected 0 rows after truncate, got %v", count)
	}
}

func TestWrapIdentifierQuotesName(t *testing.T) {
	a := newTestAdapter(t)
	got := a.WrapIdentifier("users")
	if got != `"users"` {
		t.Errorf(`expected "users", got %q`, got)
	}
}

func TestVersionParsesMajorMinor(t *testing.T) {
	a := newTestAdapter(t)
	v, err := a.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v.Major == 0 {
		t.Errorf("expected non-zero major version, got %+v", v)
	}
}

func TestVersionInfoCompare(t *testing.T) {
	tests := []struct {
		a, b VersionInfo
		want int
	}{
		{VersionInfo{Major: 1}, VersionInfo{Major: 2}, -1},
		{VersionInfo{Major: 2}, VersionInfo{Major: 1}, 1},
		{VersionInfo{Major: 1, Minor: 2}, VersionInfo{Major: 1, Minor: 2}, 0},
		{VersionInfo{Major: 1, Minor: 2, Patch: 1}, VersionInfo{Major: 1, Minor: 2, Patch: 2}, -1},
	}
	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%+v.Compare(%+v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

// TestVersionCompareMandatedTable locks in the literal a/b/expected table
// for parsed (not hand-built) versions: two versions equal up to whichever
// has fewer components compare equal, so "8.0.2" vs "8" is 0, not 1.
func TestVersionCompareMandatedTable(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"8.0.2", "8.0.1", 1},
		{"8.0.2", "8.0.3", -1},
		{"8.0.2", "8", 0},
		{"12", "8", 1},
		{"8", "12", -1},
	}
	for _, tt := range tests {
		a, b := parseVersion(tt.a), parseVersion(tt.b)
		if got := a.Compare(b); got != tt.want {
			t.Errorf("cmp(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := b.Compare(a); got != -tt.want {
			t.Errorf("cmp(%q, %q) = %d, want %d (anti-symmetry)", tt.b, tt.a, got, -tt.want)
		}
	}
}

func TestParseVersionExtractsLeadingNumbers(t *testing.T) {
	tests := []struct {
		raw                 string
		major, minor, patch int
	}{
		{"16.2 (Debian 16.2-1.pgdg)", 16, 2, 0},
		{"8.0.35", 8, 0, 35},
		{"3.45.1", 3, 45, 1},
	}
	for _, tt := range tests {
		v := parseVersion(tt.raw)
		if v.Major != tt.major || v.Minor != tt.minor || v.Patch != tt.patch {
			t.Errorf("parseVersion(%q) = %+v, want {%d %d %d}", tt.raw, v, tt.major, tt.minor, tt.patch)
		}
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
