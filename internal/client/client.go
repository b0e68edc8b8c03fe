// Package client provides a transport-agnostic interface to a convd server
// with HTTP/JSON and gRPC implementations.
package client

import (
	"context"

	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/rpc"
)

// Client is the interface CLI commands use to talk to the server.
type Client interface {
	// Resolution
	FindConverters(ctx context.Context, in, out string) (*rpc.FindConvertersResponse, error)

	// Registrations
	ListRegistrations(ctx context.Context, filter string) (*rpc.ListRegistrationsResponse, error)
	GetRegistration(ctx context.Context, id string) (*model.Registration, error)
	Register(ctx context.Context, reg *model.Registration) (*model.Registration, error)
	Modify(ctx context.Context, reg *model.Registration) (*model.Registration, error)
	Unregister(ctx context.Context, id string) error

	// Graph
	Graph(ctx context.Context) (*rpc.GraphResponse, error)
	GraphML(ctx context.Context) ([]byte, error)
	Peers(ctx context.Context) (*rpc.PeersResponse, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*GRPCClient)(nil)
)
