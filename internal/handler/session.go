package handler

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/dbgateway/gateway/internal/gateway"
	"github.com/dbgateway/gateway/internal/gwerrors"
	"github.com/dbgateway/gateway/internal/session"
)

// SessionHandler fronts the gateway Facade's Session/Connection lifecycle
// over HTTP: connecting a stored server descriptor, opening additional
// databases on it, and running raw queries against a specific connection.
// Live sessions are held in memory only — a process restart drops them,
// same as the teacher's connector.Registry active-connection map.
type SessionHandler struct {
	gw *gateway.Gateway

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// NewSessionHandler creates a SessionHandler backed by gw.
func NewSessionHandler(gw *gateway.Gateway) *SessionHandler {
	return &SessionHandler{gw: gw, sessions: make(map[string]*session.Session)}
}

// PrepareServers migrates servers.json in place: every descriptor missing
// an id is assigned one, and every descriptor not yet marked Encrypted has
// its plaintext secrets encrypted.
// POST /api/v1/gateway/servers/_prepare
func (h *SessionHandler) PrepareServers(w http.ResponseWriter, r *http.Request) {
	if err := h.gw.Servers().Prepare(); err != nil {
		writeError(w, http.StatusInternalServerError, "prepare servers: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	Dialect   string `json:"dialect"`
	Name      string `json:"name"`
}

// CreateSession connects a stored server descriptor and opens its default
// database connection.
// POST /api/v1/gateway/server/{serverId}/_session
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "serverId")

	builder, err := h.gw.CreateServer(serverID)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	s, err := builder.Connect(r.Context())
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	h.mu.Lock()
	h.sessions[s.ID()] = s
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: s.ID(),
		Dialect:   builder.Descriptor().Client,
		Name:      builder.Descriptor().Name,
	})
}

// EndSession closes every connection (and tunnel, if any) on a session and
// forgets it.
// DELETE /api/v1/gateway/session/{sessionId}
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	h.mu.Lock()
	delete(h.sessions, s.ID())
	h.mu.Unlock()

	if err := s.End(); err != nil {
		writeError(w, http.StatusInternalServerError, "session end: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenConnection lazily opens (or returns the already-open) Connection for
// database dbName within the session.
// POST /api/v1/gateway/session/{sessionId}/_connection/{dbName}
func (h *SessionHandler) OpenConnection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	dbName := chi.URLParam(r, "dbName")

	conn, err := s.CreateConnection(r.Context(), dbName)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	version := conn.Version()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    conn.Name(),
		"status":  conn.Status().String(),
		"version": version.Raw,
	})
}

type runQueryRequest struct {
	SQL    string `json:"sql"`
	Handle string `json:"handle"`
}

// Query runs a batch of statements against dbName, returning one result per
// statement.
// POST /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_query
func (h *SessionHandler) Query(w http.ResponseWriter, r *http.Request) {
	h.runOnConnection(w, r, func(conn *session.Connection, handle, sql string) (interface{}, error) {
		return conn.Query(r.Context(), handle, sql)
	})
}

// ExecuteQuery runs a single statement against dbName.
// POST /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_execute
func (h *SessionHandler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	h.runOnConnection(w, r, func(conn *session.Connection, handle, sql string) (interface{}, error) {
		return conn.ExecuteQuery(r.Context(), handle, sql)
	})
}

func (h *SessionHandler) runOnConnection(w http.ResponseWriter, r *http.Request, run func(conn *session.Connection, handle, sql string) (interface{}, error)) {
	s, ok := h.lookupSession(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	dbName := chi.URLParam(r, "dbName")
	conn, ok := s.DB(dbName)
	if !ok {
		writeError(w, http.StatusNotFound, "connection not open: "+dbName)
		return
	}

	var req runQueryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Handle == "" {
		writeError(w, http.StatusBadRequest, "handle is required")
		return
	}

	result, err := run(conn, req.Handle, req.SQL)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CancelQuery cancels the query currently executing under handle on
// dbName's connection.
// POST /api/v1/gateway/session/{sessionId}/_connection/{dbName}/_cancel/{handle}
func (h *SessionHandler) CancelQuery(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookupSession(r)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	dbName := chi.URLParam(r, "dbName")
	conn, ok := s.DB(dbName)
	if !ok {
		writeError(w, http.StatusNotFound, "connection not open: "+dbName)
		return
	}

	handle := chi.URLParam(r, "handle")
	if err := conn.Cancel(handle); err != nil {
		writeGatewayError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) lookupSession(r *http.Request) (*session.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[chi.URLParam(r, "sessionId")]
	return s, ok
}

// writeGatewayError maps the gwerrors taxonomy to HTTP status codes the way
// the teacher's classifyDBError maps driver error strings.
func writeGatewayError(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *gwerrors.ValidationError:
		writeError(w, http.StatusBadRequest, e.Error())
	case *gwerrors.ConnectError:
		writeError(w, http.StatusBadGateway, e.Error())
	case *gwerrors.AuthError:
		writeError(w, http.StatusUnauthorized, e.Error())
	case *gwerrors.NotSupportedError:
		writeError(w, http.StatusNotImplemented, e.Error())
	case *gwerrors.CanceledError:
		writeError(w, http.StatusConflict, e.Error())
	case *gwerrors.QueryError:
		writeError(w, http.StatusUnprocessableEntity, e.Error())
	default:
		if err == gwerrors.QueryNotReady {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if errors.Is(err, gwerrors.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
