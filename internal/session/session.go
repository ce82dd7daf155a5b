// Package session implements the Session/Connection lifecycle container:
// one Session per server descriptor, pooling Connections per database
// name, owning the optional SSH tunnel shared across every Connection it
// creates.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/dbgateway/gateway/internal/adapter"
	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/registry"
	"github.com/dbgateway/gateway/internal/tunnel"
	"github.com/google/uuid"
)

// Session owns a decrypted server descriptor, the active SSH tunnel (if
// any), and every Connection created against it so far, keyed by database
// name.
type Session struct {
	id         string
	descriptor registry.Descriptor
	registry   *connector.Registry

	mu          sync.Mutex
	tunnel      *tunnel.Tunnel
	connections map[string]*Connection
	connecting  map[string]chan struct{} // name -> closed when its dial finishes
}

// New creates a Session for descriptor, which must already have its
// secrets decrypted (registry.Registry.DecryptSecrets). No network I/O
// happens until CreateConnection is called.
func New(reg *connector.Registry, descriptor registry.Descriptor) *Session {
	return &Session{
		id:          uuid.Must(uuid.NewV7()).String(),
		descriptor:  descriptor,
		registry:    reg,
		connections: make(map[string]*Connection),
		connecting:  make(map[string]chan struct{}),
	}
}

// ID returns the session's generated identifier (a UUIDv7 string).
func (s *Session) ID() string { return s.id }

// DB returns the existing Connection for name, if one has already been
// created.
func (s *Session) DB(name string) (*Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[name]
	return c, ok
}

// CreateConnection lazily constructs a Connection for database name,
// following spec.md §4.6's four-step order: start the SSH tunnel (once,
// shared across every Connection in this Session) if the descriptor names
// one; connect the dialect adapter against the tunnel's loopback address
// (or the descriptor's host directly); probe the engine version; memoize
// under name.
//
// Concurrent callers racing to create the same name are serialized through
// connecting: only the caller that wins the race dials, and every other
// caller waits for it to finish and then returns its memoized *Connection,
// rather than each independently dialing under the same registry service
// key (the second dial would silently adopt the first's already-connected
// connector, or disconnect it out from under the first caller).
func (s *Session) CreateConnection(ctx context.Context, name string) (*Connection, error) {
	for {
		s.mu.Lock()
		if existing, ok := s.connections[name]; ok {
			s.mu.Unlock()
			return existing, nil
		}
		if wait, ok := s.connecting[name]; ok {
			s.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		s.connecting[name] = done
		s.mu.Unlock()

		connection, err := s.dialConnection(ctx, name)

		s.mu.Lock()
		delete(s.connecting, name)
		if err == nil {
			s.connections[name] = connection
		}
		s.mu.Unlock()
		close(done)

		return connection, err
	}
}

// dialConnection performs the actual tunnel/connect/adapter/version work
// for CreateConnection. The caller holds no lock while this runs; it is
// only ever invoked by the single goroutine that won the connecting race
// for name.
func (s *Session) dialConnection(ctx context.Context, name string) (*Connection, error) {
	host, port, err := s.effectiveAddress(ctx)
	if err != nil {
		return nil, err
	}

	db := s.descriptor.Database
	if name != "" {
		db = name
	}
	descriptor := s.descriptor
	descriptor.Database = db

	dsn, err := buildDSN(descriptor, host, port)
	if err != nil {
		return nil, err
	}

	serviceKey := s.id + ":" + name
	cfg := connector.ConnectionConfig{Driver: s.descriptor.Client, DSN: dsn, SchemaName: db}
	if err := s.registry.Connect(serviceKey, cfg); err != nil {
		return nil, fmt.Errorf("session: connect %q: %w", name, err)
	}

	conn, err := s.registry.Get(serviceKey)
	if err != nil {
		return nil, err
	}

	a, err := adapter.New(conn)
	if err != nil {
		s.registry.Disconnect(serviceKey)
		return nil, err
	}

	connection := newConnection(name, conn, a)
	if v, err := a.Version(ctx); err == nil {
		connection.version = v
	}

	return connection, nil
}

// effectiveAddress returns the host/port a new Connection should dial:
// the descriptor's own host/port, or the tunnel's loopback address once
// one has been started for this Session.
func (s *Session) effectiveAddress(ctx context.Context) (string, int, error) {
	s.mu.Lock()
	if s.tunnel != nil {
		port := s.tunnel.LocalPort()
		s.mu.Unlock()
		return "127.0.0.1", port, nil
	}
	ssh := s.descriptor.SSH
	s.mu.Unlock()

	if ssh == nil {
		return s.descriptor.Host, s.descriptor.Port, nil
	}

	t, err := s.startTunnel(ctx, *ssh)
	if err != nil {
		return "", 0, err
	}
	return "127.0.0.1", t.LocalPort(), nil
}

func (s *Session) startTunnel(ctx context.Context, ssh registry.SSHAuth) (*tunnel.Tunnel, error) {
	s.mu.Lock()
	if s.tunnel != nil {
		t := s.tunnel
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	// ssh.Passphrase is a boolean carried over from the descriptor format
	// (sqlectron's desktop client used it to prompt the user
	// interactively); this headless gateway has no stored passphrase
	// secret to supply, so a passphrase-protected key without
	// ssh.Password set fails at the signer-parsing step in tunnel.Start,
	// surfaced as a ConnectError.
	t, err := tunnel.Start(ctx, tunnel.Config{
		Host:       ssh.Host,
		Port:       ssh.Port,
		User:       ssh.User,
		Password:   ssh.Password,
		PrivateKey: ssh.PrivateKey,
		RemoteHost: s.descriptor.Host,
		RemotePort: s.descriptor.Port,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("session: ssh tunnel: %w", err)
	}

	s.mu.Lock()
	s.tunnel = t
	s.mu.Unlock()
	return t, nil
}

// End disconnects every Connection and closes the tunnel, if any.
func (s *Session) End() error {
	s.mu.Lock()
	connections := s.connections
	s.connections = make(map[string]*Connection)
	t := s.tunnel
	s.tunnel = nil
	s.mu.Unlock()

	var firstErr error
	for name, c := range connections {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("session: close connection %q: %w", name, err)
		}
		s.registry.Disconnect(s.id + ":" + name)
	}
	if t != nil {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("session: close tunnel: %w", err)
		}
	}
	return firstErr
}
