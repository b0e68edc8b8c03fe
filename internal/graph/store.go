// Package graph holds the format graph: vertices are data formats and each
// directed edge carries the registrations that convert between its two
// formats. All access goes through Store, which serializes mutations against
// concurrent path queries with a single read/write lock.
package graph

import (
	"slices"
	"sync"

	"github.com/alfredjeanlab/convgraph/internal/model"
)

type vertex struct {
	format string
	out    map[string]*edge
	// outOrder lists outgoing edges in creation order so that searches are
	// deterministic.
	outOrder []*edge
}

type edge struct {
	from *vertex
	to   *vertex
	regs []*model.Registration
}

// Store is the format graph. The zero value is not usable; call New.
type Store struct {
	mu       sync.RWMutex
	vertices map[string]*vertex
	order    []*vertex
}

// New creates an empty graph.
func New() *Store {
	return &Store{vertices: make(map[string]*vertex)}
}

// vertexFor returns the vertex for format, creating it on first reference.
// Vertices are never deleted. Caller must hold the write lock.
func (s *Store) vertexFor(format string) *vertex {
	v, ok := s.vertices[format]
	if !ok {
		v = &vertex{format: format, out: make(map[string]*edge)}
		s.vertices[format] = v
		s.order = append(s.order, v)
	}
	return v
}

// AddEdge records reg as a converter from source to destination. Any
// registration with the same ID already on that edge is replaced, and the new
// one goes to the end of the edge's list. Empty formats or a nil reg are
// ignored.
func (s *Store) AddEdge(source, destination string, reg *model.Registration) {
	if source == "" || destination == "" || reg == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.vertexFor(source)
	to := s.vertexFor(destination)

	e, ok := from.out[destination]
	if !ok {
		e = &edge{from: from, to: to}
		from.out[destination] = e
		from.outOrder = append(from.outOrder, e)
	}
	e.regs = slices.DeleteFunc(e.regs, func(r *model.Registration) bool { return r.ID == reg.ID })
	e.regs = append(e.regs, reg)
}

// RemoveEdge drops the registration with the given ID from the edge between
// source and destination. The edge disappears once it carries no
// registrations; its vertices stay.
func (s *Store) RemoveEdge(source, destination, id string) {
	if source == "" || destination == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.vertices[source]
	if !ok {
		return
	}
	e, ok := from.out[destination]
	if !ok {
		return
	}
	e.regs = slices.DeleteFunc(e.regs, func(r *model.Registration) bool { return r.ID == id })
	if len(e.regs) == 0 {
		delete(from.out, destination)
		from.outOrder = slices.DeleteFunc(from.outOrder, func(o *edge) bool { return o == e })
	}
}

// ShortestChain returns a minimum-hop chain from source to destination using
// the first registration of every edge on the path. It returns nil when either
// format is unknown, when destination is unreachable, or when source equals
// destination (a zero-hop path is not a chain).
func (s *Store) ShortestChain(source, destination string) *model.Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, ok := s.vertices[source]
	if !ok {
		return nil
	}
	to, ok := s.vertices[destination]
	if !ok || from == to {
		return nil
	}

	// BFS over unit-weight edges; via records the edge used to reach a vertex.
	via := map[*vertex]*edge{from: nil}
	queue := []*vertex{from}
	for len(queue) > 0 && via[to] == nil {
		v := queue[0]
		queue = queue[1:]
		for _, e := range v.outOrder {
			if _, seen := via[e.to]; seen {
				continue
			}
			via[e.to] = e
			if e.to == to {
				break
			}
			queue = append(queue, e.to)
		}
	}

	if via[to] == nil {
		return nil
	}

	var steps []*model.Registration
	for v := to; v != from; {
		e := via[v]
		steps = append(steps, e.regs[0])
		v = e.from
	}
	slices.Reverse(steps)
	return model.NewChain(steps...)
}

// HasVertex reports whether format has ever been referenced by an edge.
func (s *Store) HasVertex(format string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vertices[format]
	return ok
}

// Edge returns a copy of the registrations on the edge from source to
// destination, or nil if there is no such edge.
func (s *Store) Edge(source, destination string) []*model.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, ok := s.vertices[source]
	if !ok {
		return nil
	}
	e, ok := from.out[destination]
	if !ok {
		return nil
	}
	return slices.Clone(e.regs)
}

// EdgeView describes one edge without the registration payloads.
type EdgeView struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	Registrations []string `json:"registrations"`
}

// Snapshot is a point-in-time copy of the graph structure.
type Snapshot struct {
	Vertices []string   `json:"vertices"`
	Edges    []EdgeView `json:"edges"`
}

// Snapshot copies the current structure. Vertices and edges appear in
// creation order.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Vertices: make([]string, 0, len(s.order)),
		Edges:    []EdgeView{},
	}
	for _, v := range s.order {
		snap.Vertices = append(snap.Vertices, v.format)
		for _, e := range v.outOrder {
			ids := make([]string, len(e.regs))
			for i, r := range e.regs {
				ids[i] = r.ID
			}
			snap.Edges = append(snap.Edges, EdgeView{Source: v.format, Target: e.to.format, Registrations: ids})
		}
	}
	return snap
}

// Stats holds aggregate graph counts.
type Stats struct {
	Vertices      int `json:"vertices"`
	Edges         int `json:"edges"`
	Registrations int `json:"registrations"`
}

// Stats returns the current counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Vertices: len(s.order)}
	for _, v := range s.order {
		st.Edges += len(v.outOrder)
		for _, e := range v.outOrder {
			st.Registrations += len(e.regs)
		}
	}
	return st
}
