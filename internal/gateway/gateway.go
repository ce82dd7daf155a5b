// Package gateway implements the gateway Facade (spec.md §4.7): the single
// entry point that turns a stored server descriptor into a live Session,
// validating the dialect against the connector registry and decrypting the
// descriptor's secrets before any network I/O happens.
package gateway

import (
	"context"
	"fmt"

	"github.com/dbgateway/gateway/internal/connector"
	"github.com/dbgateway/gateway/internal/gwerrors"
	"github.com/dbgateway/gateway/internal/registry"
	"github.com/dbgateway/gateway/internal/session"
)

// Gateway wires the persisted server registry to the live connector
// registry. It holds no per-connection state itself; every CreateServer
// call returns an independent SessionBuilder.
type Gateway struct {
	servers    *registry.Registry
	connectors *connector.Registry
}

// New constructs a Gateway over the given server registry (descriptor
// storage/vault) and connector registry (driver factories).
func New(servers *registry.Registry, connectors *connector.Registry) *Gateway {
	return &Gateway{servers: servers, connectors: connectors}
}

// SessionBuilder defers connection I/O until Connect is called, per
// spec.md §4.7. It carries an already-decrypted descriptor.
type SessionBuilder struct {
	descriptor registry.Descriptor
	connectors *connector.Registry
}

// CreateServer looks up the server descriptor by id, validates its dialect
// key against the connector registry, decrypts its secrets, and returns a
// builder ready to Connect. No network I/O happens here.
func (g *Gateway) CreateServer(id string) (*SessionBuilder, error) {
	desc, err := g.servers.Get(id)
	if err != nil {
		return nil, fmt.Errorf("gateway: lookup server %q: %w", id, err)
	}
	if !g.connectors.HasDriver(desc.Client) {
		return nil, gwerrors.NewValidationError("client", "known_dialect",
			fmt.Sprintf("no connector registered for dialect %q", desc.Client))
	}
	plain, err := g.servers.DecryptSecrets(desc)
	if err != nil {
		return nil, gwerrors.NewAuthError(err)
	}
	return &SessionBuilder{descriptor: plain, connectors: g.connectors}, nil
}

// Servers returns the underlying server registry, for callers that need
// registry-level operations (Prepare, GetAll) rather than a single
// CreateServer lookup.
func (g *Gateway) Servers() *registry.Registry { return g.servers }

// Descriptor returns the builder's decrypted descriptor, useful for callers
// that need the dialect/name before committing to Connect.
func (b *SessionBuilder) Descriptor() registry.Descriptor { return b.descriptor }

// Connect starts a Session and eagerly opens its default-database
// Connection (spec.md §4.6's four-step order: tunnel, connect, version
// probe, memoize). Subsequent databases on the same server are opened via
// Session.CreateConnection.
func (b *SessionBuilder) Connect(ctx context.Context) (*session.Session, error) {
	s := session.New(b.connectors, b.descriptor)
	if _, err := s.CreateConnection(ctx, b.descriptor.Database); err != nil {
		return nil, err
	}
	return s, nil
}
