package session

import (
	"context"
	"sync"

	"github.com/dbgateway/gateway/internal/adapter"
	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/gwerrors"
)

// Status is a Connection's lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusOpen
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// poolSize is the default maximum concurrent connections a Connection's
// runWithConnection semaphore admits per spec.md §5. SQLite has no pool
// (serviceKey "sqlite" passes poolSize 0, see newConnection).
const poolSize = 5

// Connection is one (server, database) pair's live handle: the connected
// connector, its uniform Adapter, and the cancellation tokens for queries
// currently executing against it.
type Connection struct {
	name    string
	conn    connector.Connector
	adapter *adapter.Adapter
	pool    chan struct{} // nil means unpooled (SQLite opens per query)

	mu            sync.Mutex
	status        Status
	version       adapter.VersionInfo
	cancellations map[string]*CancelToken
}

func newConnection(name string, conn connector.Connector, a *adapter.Adapter) *Connection {
	c := &Connection{
		name:          name,
		conn:          conn,
		adapter:       a,
		status:        StatusOpen,
		cancellations: make(map[string]*CancelToken),
	}
	if conn.DriverName() != "sqlite" {
		c.pool = make(chan struct{}, poolSize)
	}
	return c
}

// Name returns the database/connection name this Connection was created
// under within its Session.
func (c *Connection) Name() string { return c.name }

// Status reports the connection's current lifecycle state.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Version returns the engine version probed at connection time.
func (c *Connection) Version() adapter.VersionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Adapter returns the uniform Adapter bound to this connection, for
// callers that need introspection/script-generation operations directly.
func (c *Connection) Adapter() *adapter.Adapter { return c.adapter }

// runWithConnection acquires a pool slot (a no-op for SQLite, which has no
// pool), runs fn, and releases the slot.
func (c *Connection) runWithConnection(ctx context.Context, fn func() error) error {
	if c.pool == nil {
		return fn()
	}
	select {
	case c.pool <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.pool }()
	return fn()
}

// Query runs a batch of statements under handle, a caller-chosen id used
// to address Cancel at this specific query. It registers a CancelToken for
// the duration of execution and derives a context canceled when Cancel is
// called, so a long-running query observes cancellation through ctx.Done()
// the same way a caller-supplied deadline would.
func (c *Connection) Query(ctx context.Context, handle, text string) ([]adapter.NormalizedResult, error) {
	runCtx, token := c.beginQuery(ctx, handle)
	defer c.endQuery(handle)

	var results []adapter.NormalizedResult
	err := c.runWithConnection(ctx, func() error {
		var err error
		results, err = c.adapter.Query(runCtx, text)
		return err
	})
	if token.Canceled() && err != nil {
		return results, gwerrors.NewCanceledError(err)
	}
	return results, err
}

// ExecuteQuery runs a single statement under handle; see Query.
func (c *Connection) ExecuteQuery(ctx context.Context, handle, text string) (adapter.NormalizedResult, error) {
	runCtx, token := c.beginQuery(ctx, handle)
	defer c.endQuery(handle)

	var result adapter.NormalizedResult
	err := c.runWithConnection(ctx, func() error {
		var err error
		result, err = c.adapter.ExecuteQuery(runCtx, text)
		return err
	})
	if token.Canceled() && err != nil {
		return result, gwerrors.NewCanceledError(err)
	}
	return result, err
}

// beginQuery registers a CancelToken under handle and returns a context
// derived from ctx that is canceled when either ctx is done or the token
// fires.
func (c *Connection) beginQuery(ctx context.Context, handle string) (context.Context, *CancelToken) {
	token := NewCancelToken()

	c.mu.Lock()
	c.cancellations[handle] = token
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-token.Done():
			cancel()
		case <-runCtx.Done():
		}
	}()
	return runCtx, token
}

func (c *Connection) endQuery(handle string) {
	c.mu.Lock()
	delete(c.cancellations, handle)
	c.mu.Unlock()
}

// Cancel cancels the query registered under handle. Returns
// gwerrors.QueryNotReady if no query is currently executing under that
// handle (it never started, or already finished).
//
// Cassandra has no server-side query cancellation (no equivalent of
// PostgreSQL's pg_cancel_backend or a driver-level in-flight abort), so per
// spec.md §4.5 it rejects Cancel outright rather than pretending to honor it.
func (c *Connection) Cancel(handle string) error {
	if c.conn.DriverName() == "cassandra" {
		return gwerrors.NewNotSupportedError("Cancel", "cassandra")
	}

	c.mu.Lock()
	token, ok := c.cancellations[handle]
	c.mu.Unlock()
	if !ok {
		return gwerrors.QueryNotReady
	}
	token.Cancel()
	return nil
}

// Close disconnects the underlying connector and marks the connection closed.
func (c *Connection) Close() error {
	c.mu.Lock()
	c.status = StatusClosed
	c.mu.Unlock()
	return c.conn.Disconnect()
}
