package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dbgateway/gateway/internal/session"
)

// Introspection/script-generation operations the spec's Adapter exposes
// (column/index/trigger/reference listings, DDL reconstruction, and the
// per-dialect select/insert/update/delete script generators) but which the
// raw query/execute routes never exercise on their own. These routes give
// every one of them a caller, the same way a SQL client's schema browser or
// "generate script" context menu would.

// TableKeys lists the primary key column names for a table.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_table/{tableName}/_keys
func (h *SessionHandler) TableKeys(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(conn *session.Connection, table string) (interface{}, error) {
		return conn.Adapter().GetTableKeys(r.Context(), table)
	})
}

// TableIndexes lists a table's indexes.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_table/{tableName}/_indexes
func (h *SessionHandler) TableIndexes(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(conn *session.Connection, table string) (interface{}, error) {
		return conn.Adapter().ListTableIndexes(r.Context(), table)
	})
}

// TableTriggers lists a table's triggers.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_table/{tableName}/_triggers
func (h *SessionHandler) TableTriggers(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(conn *session.Connection, table string) (interface{}, error) {
		return conn.Adapter().ListTableTriggers(r.Context(), table)
	})
}

// TableReferences lists a table's foreign keys.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_table/{tableName}/_references
func (h *SessionHandler) TableReferences(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(conn *session.Connection, table string) (interface{}, error) {
		return conn.Adapter().GetTableReferences(r.Context(), table)
	})
}

// TableSelectScript returns a SELECT script enumerating table's columns,
// optionally qualified by the schema query parameter.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_table/{tableName}/_script/select
func (h *SessionHandler) TableSelectScript(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(conn *session.Connection, table string) (interface{}, error) {
		return conn.Adapter().GetTableSelectScript(r.Context(), table, queryString(r, "schema"))
	})
}

// TableInsertScript returns a parameterized INSERT script for table.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_table/{tableName}/_script/insert
func (h *SessionHandler) TableInsertScript(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(conn *session.Connection, table string) (interface{}, error) {
		return conn.Adapter().GetTableInsertScript(r.Context(), table)
	})
}

// TableUpdateScript returns a parameterized UPDATE script for table.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_table/{tableName}/_script/update
func (h *SessionHandler) TableUpdateScript(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(conn *session.Connection, table string) (interface{}, error) {
		return conn.Adapter().GetTableUpdateScript(r.Context(), table)
	})
}

// TableDeleteScript returns a parameterized DELETE script for table.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_table/{tableName}/_script/delete
func (h *SessionHandler) TableDeleteScript(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(conn *session.Connection, table string) (interface{}, error) {
		return conn.Adapter().GetTableDeleteScript(table), nil
	})
}

// TableCreateScript returns the table's reconstructed CREATE TABLE DDL.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_table/{tableName}/_script/create
func (h *SessionHandler) TableCreateScript(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(conn *session.Connection, table string) (interface{}, error) {
		return conn.Adapter().GetTableCreateScript(r.Context(), table)
	})
}

// TableSelectTop returns a SELECT ... LIMIT n script for table, bounded by
// the limit and schema query parameters (a missing or non-positive limit
// falls back to GetQuerySelectTop's default of 1000).
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_table/{tableName}/_script/top
func (h *SessionHandler) TableSelectTop(w http.ResponseWriter, r *http.Request) {
	h.withTable(w, r, func(conn *session.Connection, table string) (interface{}, error) {
		limit := queryInt(r, "limit", 0)
		return conn.Adapter().GetQuerySelectTop(queryString(r, "schema"), table, limit), nil
	})
}

// ViewCreateScript returns a view's reconstructed CREATE VIEW DDL.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_view/{viewName}/_script/create
func (h *SessionHandler) ViewCreateScript(w http.ResponseWriter, r *http.Request) {
	h.withConnection(w, r, func(conn *session.Connection) (interface{}, error) {
		return conn.Adapter().GetViewCreateScript(r.Context(), chi.URLParam(r, "viewName"))
	})
}

// RoutineCreateScript returns a stored routine's reconstructed CREATE DDL.
// GET /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_routine/{routineName}/_script/create
func (h *SessionHandler) RoutineCreateScript(w http.ResponseWriter, r *http.Request) {
	h.withConnection(w, r, func(conn *session.Connection) (interface{}, error) {
		return conn.Adapter().GetRoutineCreateScript(r.Context(), chi.URLParam(r, "routineName"))
	})
}

// TruncateAllTables truncates every table reachable on a connection.
// POST /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_truncate-all
func (h *SessionHandler) TruncateAllTables(w http.ResponseWriter, r *http.Request) {
	h.withConnection(w, r, func(conn *session.Connection) (interface{}, error) {
		if err := conn.Adapter().TruncateAllTables(r.Context()); err != nil {
			return nil, err
		}
		return map[string]interface{}{"truncated": true}, nil
	})
}

// withConnection resolves the session and connection named by the request
// path and runs fn against it, writing the result (or mapped error) to w.
func (h *SessionHandler) withConnection(w http.ResponseWriter, r *http.Request, fn func(conn *session.Connection) (interface{}, error)) {
	s, ok := h.lookupSession(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	conn, ok := s.DB(chi.URLParam(r, "dbName"))
	if !ok {
		writeError(w, http.StatusNotFound, "connection not open: "+chi.URLParam(r, "dbName"))
		return
	}

	result, err := fn(conn)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// withTable is withConnection specialized for the common {tableName}
// sub-route case.
func (h *SessionHandler) withTable(w http.ResponseWriter, r *http.Request, fn func(conn *session.Connection, table string) (interface{}, error)) {
	h.withConnection(w, r, func(conn *session.Connection) (interface{}, error) {
		return fn(conn, chi.URLParam(r, "tableName"))
	})
}
