package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dbgateway/gateway/internal/gwerrors"
	"github.com/dbgateway/gateway/internal/statement"
)

// versionQueries reports the dialect-native "what version am I" query.
// Cassandra has no single scalar equivalent (release_version lives in
// system.local) and is handled separately in Version.
var versionQueries = map[string]string{
	"postgres": "SHOW server_version",
	"redshift": "SHOW server_version",
	"mysql":    "SELECT VERSION()",
	"mssql":    "SELECT @@VERSION",
	"sqlite":   "SELECT sqlite_version()",
}

// Version reports the connected server's engine version.
func (a *Adapter) Version(ctx context.Context) (VersionInfo, error) {
	if a.dialect.Key == "cassandra" {
		session, err := a.cqlSession()
		if err != nil {
			return VersionInfo{}, err
		}
		var raw string
		if err := session.Query("SELECT release_version FROM system.local").WithContext(ctx).Scan(&raw); err != nil {
			return VersionInfo{}, gwerrors.NewQueryError(0, err)
		}
		return parseVersion(raw), nil
	}

	query, ok := versionQueries[a.dialect.Key]
	if !ok {
		return VersionInfo{}, gwerrors.NewNotSupportedError("Version", a.dialect.Key)
	}

	var raw string
	if err := a.conn.DB().QueryRowContext(ctx, query).Scan(&raw); err != nil {
		return VersionInfo{}, gwerrors.NewQueryError(0, err)
	}
	return parseVersion(raw), nil
}

// parseVersion extracts the first run of dot-separated integers found in
// raw (e.g. "PostgreSQL 16.2 on x86_64..." -> {16, 2, 0}), tolerating
// trailing non-numeric text.
func parseVersion(raw string) VersionInfo {
	info := VersionInfo{Raw: raw}

	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.'
	})

	for _, f := range fields {
		parts := strings.Split(f, ".")
		major, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		info.Major = major
		info.depth = 1
		if len(parts) > 1 {
			if n, err := strconv.Atoi(parts[1]); err == nil {
				info.Minor = n
				info.depth = 2
			}
		}
		if len(parts) > 2 {
			if n, err := strconv.Atoi(parts[2]); err == nil {
				info.Patch = n
				info.depth = 3
			}
		}
		break
	}

	return info
}

// Query runs a batch of one or more semicolon-separated statements and
// returns one NormalizedResult per statement, in order. Execution stops at
// the first statement that errors; results already produced are returned
// alongside the error so a caller can show partial progress.
func (a *Adapter) Query(ctx context.Context, text string) ([]NormalizedResult, error) {
	statements := statement.Identify(text)
	results := make([]NormalizedResult, 0, len(statements))

	for i, stmt := range statements {
		result, err := a.runStatement(ctx, stmt)
		if err != nil {
			return results, gwerrors.NewQueryError(i, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// ExecuteQuery runs a single statement and returns its NormalizedResult.
// It differs from Query only in that it rejects multi-statement input,
// matching spec.md §4.5's distinction between the batch-oriented Query
// operation and the single-statement ExecuteQuery operation used by
// clients that need a guaranteed one-to-one statement/result mapping.
func (a *Adapter) ExecuteQuery(ctx context.Context, text string) (NormalizedResult, error) {
	statements := statement.Identify(text)
	if len(statements) != 1 {
		return NormalizedResult{}, fmt.Errorf("adapter: ExecuteQuery requires exactly one statement, got %d", len(statements))
	}
	result, err := a.runStatement(ctx, statements[0])
	if err != nil {
		return NormalizedResult{}, gwerrors.NewQueryError(0, err)
	}
	return result, nil
}

func (a *Adapter) runStatement(ctx context.Context, stmt statement.Statement) (NormalizedResult, error) {
	if a.dialect.Key == "cassandra" {
		if stmt.Type == statement.Select || stmt.Type == statement.Explain {
			result, err := a.cqlRunSelect(ctx, stmt.Text)
			result.StatementType = stmt.Type
			return result, err
		}
		result, err := a.cqlRunExec(ctx, stmt.Text)
		result.StatementType = stmt.Type
		return result, err
	}
	if stmt.Type == statement.Select || stmt.Type == statement.Explain {
		return a.runSelect(ctx, stmt)
	}
	return a.runExec(ctx, stmt)
}

func (a *Adapter) runSelect(ctx context.Context, stmt statement.Statement) (NormalizedResult, error) {
	rows, err := a.conn.DB().QueryContext(ctx, stmt.Text)
	if err != nil {
		if ctx.Err() != nil {
			return NormalizedResult{}, gwerrors.NewCanceledError(err)
		}
		return NormalizedResult{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return NormalizedResult{}, err
	}

	resultType := stmt.Type
	var out [][]interface{}
	for rows.Next() {
		dest := make([]interface{}, len(cols))
		scanBuf := make([]interface{}, len(cols))
		for i := range scanBuf {
			dest[i] = &scanBuf[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return NormalizedResult{}, err
		}
		// A statement the identifier couldn't classify but which returns
		// rows behaves like a SELECT for result-shaping purposes (e.g. a
		// dialect-specific SHOW/EXPLAIN variant the identifier doesn't
		// recognize by keyword).
		if resultType == statement.Unknown {
			resultType = statement.Select
		}
		out = append(out, scanBuf)
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() != nil {
			return NormalizedResult{}, gwerrors.NewCanceledError(err)
		}
		return NormalizedResult{}, err
	}

	return NormalizedResult{StatementType: resultType, Columns: cols, Rows: out}, nil
}

func (a *Adapter) runExec(ctx context.Context, stmt statement.Statement) (NormalizedResult, error) {
	res, err := a.conn.DB().ExecContext(ctx, stmt.Text)
	if err != nil {
		if ctx.Err() != nil {
			return NormalizedResult{}, gwerrors.NewCanceledError(err)
		}
		return NormalizedResult{}, err
	}

	result := NormalizedResult{StatementType: stmt.Type}
	if n, err := res.RowsAffected(); err == nil {
		result.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		result.LastInsertID = id
	}
	return result, nil
}
