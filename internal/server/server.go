// Package server exposes the conversion service and its registry over
// HTTP/JSON and gRPC.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alfredjeanlab/convgraph/internal/conversion"
	"github.com/alfredjeanlab/convgraph/internal/events"
	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/peers"
	"github.com/alfredjeanlab/convgraph/internal/registry"
	"github.com/alfredjeanlab/convgraph/internal/rpc"
)

// Server implements the transport-independent API on top of a registry and
// a conversion service.
type Server struct {
	reg    *registry.Registry
	svc    *conversion.Service
	sseHub *sseHub
	peers  *peers.Tracker
	logger *slog.Logger

	cancelFeed func()
}

// Option configures a Server.
type Option func(*Server)

// WithPeers exposes the mirror's peer roster.
func WithPeers(t *peers.Tracker) Option {
	return func(s *Server) { s.peers = t }
}

// New returns a Server. A nil logger uses slog.Default().
func New(reg *registry.Registry, svc *conversion.Service, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{reg: reg, svc: svc, sseHub: newSSEHub(), logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start feeds registry lifecycle events to the SSE stream.
func (s *Server) Start() error {
	_, cancel, err := s.reg.Subscribe("", s.broadcastEvent)
	if err != nil {
		return fmt.Errorf("subscribing event stream: %w", err)
	}
	s.cancelFeed = cancel
	return nil
}

// Close stops the event feed.
func (s *Server) Close() {
	if s.cancelFeed != nil {
		s.cancelFeed()
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// FindConverters resolves chains from in to out.
func (s *Server) FindConverters(_ context.Context, in, out string) (*rpc.FindConvertersResponse, error) {
	if strings.TrimSpace(in) == "" || strings.TrimSpace(out) == "" {
		return nil, inputError("in and out are required")
	}
	chains := s.svc.FindConverters(in, out)
	resp := &rpc.FindConvertersResponse{In: in, Out: out, Chains: make([]model.ChainView, 0, len(chains))}
	for _, c := range chains {
		resp.Chains = append(resp.Chains, c.View())
	}
	return resp, nil
}

// ListRegistrations returns the registrations matching filter (all when empty).
func (s *Server) ListRegistrations(_ context.Context, filter string) (*rpc.ListRegistrationsResponse, error) {
	regs, err := s.reg.Query(filter)
	if err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []*model.Registration{}
	}
	return &rpc.ListRegistrationsResponse{Registrations: regs, Total: len(regs)}, nil
}

// GetRegistration returns one registration by ID.
func (s *Server) GetRegistration(_ context.Context, id string) (*model.Registration, error) {
	if id == "" {
		return nil, inputError("id is required")
	}
	return s.reg.Get(id)
}

// Register announces a new registration. An empty kind means converter.
func (s *Server) Register(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	if reg == nil {
		return nil, inputError("registration is required")
	}
	if reg.Kind == "" {
		reg.Kind = model.KindConverter
	}
	return s.reg.Register(ctx, reg)
}

// Modify replaces the declared properties of an existing registration.
func (s *Server) Modify(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	if reg == nil || reg.ID == "" {
		return nil, inputError("id is required")
	}
	if reg.Kind == "" {
		reg.Kind = model.KindConverter
	}
	return s.reg.Modify(ctx, reg)
}

// Unregister withdraws a registration.
func (s *Server) Unregister(ctx context.Context, id string) error {
	if id == "" {
		return inputError("id is required")
	}
	return s.reg.Unregister(ctx, id)
}

// Graph returns the current graph structure.
func (s *Server) Graph() *rpc.GraphResponse {
	g := s.svc.Graph()
	return &rpc.GraphResponse{Snapshot: g.Snapshot(), Stats: g.Stats()}
}

// broadcastEvent fans registry events out to SSE clients.
func (s *Server) broadcastEvent(ev model.Event) {
	topic, ok := events.TopicFor(ev.Type)
	if !ok {
		return
	}
	payload, err := json.Marshal(events.RegistrationChanged{Origin: s.reg.Origin(), Type: ev.Type, Registration: ev.Registration})
	if err != nil {
		s.logger.Warn("failed to marshal event for SSE broadcast", "topic", topic, "error", err)
		return
	}
	s.sseHub.broadcast(topic, payload)
}

// Peers returns the mirror's peer roster. Mirroring is false, with an empty
// roster, when this node does not follow other registries.
func (s *Server) Peers() *rpc.PeersResponse {
	if s.peers == nil {
		return &rpc.PeersResponse{Peers: []peers.Entry{}}
	}
	return &rpc.PeersResponse{Mirroring: true, Peers: s.peers.Roster()}
}
