// Package conversion resolves converter chains between data formats. A
// Service answers chain queries against a graph.Store kept current by an
// Adapter that follows the registry, and executes chosen chains through an
// Executor.
//
// FindConvertersForData and Convert take in-process payloads, so they are
// library calls only; the servers expose format-to-format resolution.
package conversion

import (
	"log/slog"

	"github.com/alfredjeanlab/convgraph/internal/graph"
	"github.com/alfredjeanlab/convgraph/internal/model"
)

// Registry is the subset of the live registry the engine consumes.
type Registry interface {
	// Query returns registrations matching a filter expression.
	Query(expr string) ([]*model.Registration, error)
	// Subscribe delivers lifecycle events for matching registrations and
	// returns the registrations matching at subscription time.
	Subscribe(expr string, fn model.Listener) ([]*model.Registration, func(), error)
}

// Service answers converter-chain queries.
type Service struct {
	graph  *graph.Store
	reg    Registry
	exec   Executor
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithExecutor sets the executor used by Convert.
func WithExecutor(e Executor) Option {
	return func(s *Service) { s.exec = e }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service over g, querying reg for wildcard expansion
// and validators. Without WithExecutor, Convert runs chains on an empty
// StepExecutor and fails on any step.
func NewService(g *graph.Store, reg Registry, opts ...Option) *Service {
	s := &Service{
		graph:  g,
		reg:    reg,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.exec == nil {
		s.exec = NewStepExecutor(nil)
	}
	return s
}

// Graph returns the store the service reads.
func (s *Service) Graph() *graph.Store {
	return s.graph
}
