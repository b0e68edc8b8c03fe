package conversion

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/alfredjeanlab/convgraph/internal/graph"
	"github.com/alfredjeanlab/convgraph/internal/model"
)

// GraphFilter selects the registrations that become graph edges: local
// converters declaring both formats, neither of them extension-qualified.
const GraphFilter = "(&(type=converter)(in_data=*)(out_data=*)(!(remote=*))" +
	"(!(in_data=file-ext:*))(!(out_data=file-ext:*)))"

type op int

const (
	opAdd op = iota
	opRemove
)

type formats struct {
	in, out string
}

// Adapter keeps a graph.Store in step with the registry. Every change, from
// the initial scan or a live event, goes through apply.
type Adapter struct {
	graph  *graph.Store
	logger *slog.Logger

	mu      sync.Mutex
	tracked map[string]formats
	cancel  func()
}

// NewAdapter creates an adapter mutating g. A nil logger uses slog.Default().
func NewAdapter(g *graph.Store, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{graph: g, logger: logger, tracked: make(map[string]formats)}
}

// Start subscribes to reg and loads the registrations that already match.
// The snapshot is applied before any live event.
func (a *Adapter) Start(reg Registry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return errors.New("conversion: adapter already started")
	}
	snapshot, cancel, err := reg.Subscribe(GraphFilter, a.handle)
	if err != nil {
		return err
	}
	a.cancel = cancel
	for _, r := range snapshot {
		a.apply(opAdd, r)
	}
	a.logger.Info("conversion: graph loaded", "registrations", len(snapshot))
	return nil
}

// Close stops following the registry. The graph keeps its current state.
func (a *Adapter) Close() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Tracked returns how many registrations currently back graph edges.
func (a *Adapter) Tracked() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tracked)
}

func (a *Adapter) handle(ev model.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Type {
	case model.EventRegistered:
		a.apply(opAdd, ev.Registration)
	case model.EventModified:
		a.apply(opRemove, ev.Registration)
		a.apply(opAdd, ev.Registration)
	case model.EventModifiedGone, model.EventUnregistering:
		a.apply(opRemove, ev.Registration)
	default:
		a.logger.Warn("conversion: unknown registry event", "type", ev.Type)
	}
}

// apply performs one graph mutation. Removal uses the formats recorded when
// the registration was added, so a modification that changed formats drops
// the old edge. Caller holds a.mu.
func (a *Adapter) apply(o op, reg *model.Registration) {
	if reg == nil {
		return
	}
	prev, tracked := a.tracked[reg.ID]

	if o == opRemove {
		if tracked {
			a.graph.RemoveEdge(prev.in, prev.out, reg.ID)
			delete(a.tracked, reg.ID)
		}
		return
	}

	if reg.InFormat == "" || reg.OutFormat == "" {
		a.logger.Debug("conversion: ignoring registration without formats", "id", reg.ID)
		return
	}
	cur := formats{in: reg.InFormat, out: reg.OutFormat}
	if tracked && prev != cur {
		a.graph.RemoveEdge(prev.in, prev.out, reg.ID)
	}
	a.graph.AddEdge(cur.in, cur.out, reg)
	a.tracked[reg.ID] = cur
}
