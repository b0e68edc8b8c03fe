package client

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/convgraph/internal/export"
	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/rpc"
)

// GRPCClient implements Client using the gRPC transport.
type GRPCClient struct {
	conn  *grpc.ClientConn
	token string
}

// NewGRPCClient connects to the given gRPC address and returns a client.
// When token is non-empty it is sent as a bearer token on every call.
func NewGRPCClient(addr, token string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{conn: conn, token: token}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

// invoke sends req to method and decodes the reply into resp (when non-nil).
func (c *GRPCClient) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := rpc.ToStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), rpc.FullMethod(method), in, out); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return rpc.FromStruct(out, resp)
}

func (c *GRPCClient) FindConverters(ctx context.Context, in, out string) (*rpc.FindConvertersResponse, error) {
	var resp rpc.FindConvertersResponse
	if err := c.invoke(ctx, rpc.MethodFindConverters, rpc.FindConvertersRequest{In: in, Out: out}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GRPCClient) ListRegistrations(ctx context.Context, filter string) (*rpc.ListRegistrationsResponse, error) {
	var resp rpc.ListRegistrationsResponse
	if err := c.invoke(ctx, rpc.MethodListRegistrations, rpc.ListRegistrationsRequest{Filter: filter}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GRPCClient) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	var reg model.Registration
	if err := c.invoke(ctx, rpc.MethodGetRegistration, rpc.RegistrationRequest{ID: id}, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (c *GRPCClient) Register(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	var out model.Registration
	if err := c.invoke(ctx, rpc.MethodRegister, reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GRPCClient) Modify(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	var out model.Registration
	if err := c.invoke(ctx, rpc.MethodModify, reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *GRPCClient) Unregister(ctx context.Context, id string) error {
	return c.invoke(ctx, rpc.MethodUnregister, rpc.RegistrationRequest{ID: id}, nil)
}

func (c *GRPCClient) Graph(ctx context.Context) (*rpc.GraphResponse, error) {
	var resp rpc.GraphResponse
	if err := c.invoke(ctx, rpc.MethodGetGraph, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GRPCClient) Peers(ctx context.Context) (*rpc.PeersResponse, error) {
	var resp rpc.PeersResponse
	if err := c.invoke(ctx, rpc.MethodListPeers, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GraphML renders the fetched graph locally; the gRPC service has no
// document endpoint.
func (c *GRPCClient) GraphML(ctx context.Context) ([]byte, error) {
	g, err := c.Graph(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := export.WriteGraphML(&buf, g.Snapshot); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Health queries the standard gRPC health service. A serving server reports
// "ok", matching the HTTP transport.
func (c *GRPCClient) Health(ctx context.Context) (string, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return "", err
	}
	if resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
		return "ok", nil
	}
	return strings.ToLower(resp.GetStatus().String()), nil
}
