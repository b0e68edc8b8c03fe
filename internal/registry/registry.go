// Package registry is the in-memory live registry of converters and
// validators. It answers filter queries over registration properties and
// delivers lifecycle events to subscribed listeners asynchronously, one
// delivery goroutine per listener.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/alfredjeanlab/convgraph/internal/events"
	"github.com/alfredjeanlab/convgraph/internal/filter"
	"github.com/alfredjeanlab/convgraph/internal/idgen"
	"github.com/alfredjeanlab/convgraph/internal/model"
)

var (
	// ErrAlreadyRegistered is returned when registering an ID that is taken.
	ErrAlreadyRegistered = errors.New("registration already exists")
	// ErrNotFound is returned for operations on unknown IDs.
	ErrNotFound = errors.New("registration not found")
	// ErrInvalidRegistration wraps validation failures.
	ErrInvalidRegistration = errors.New("invalid registration")
	// ErrClosed is returned by mutators after Close.
	ErrClosed = errors.New("registry closed")
)

// Option configures a Registry.
type Option func(*Registry)

// WithPublisher publishes every local mutation to p.
func WithPublisher(p events.Publisher) Option {
	return func(r *Registry) { r.pub = p }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithOrigin overrides the generated origin that tags published events.
func WithOrigin(origin string) Option {
	return func(r *Registry) { r.origin = origin }
}

// Registry holds registrations in registration order.
type Registry struct {
	mu        sync.RWMutex
	regs      map[string]*model.Registration
	order     []string
	listeners map[int]*listener
	nextID    int
	closed    bool

	origin string
	pub    events.Publisher
	logger *slog.Logger
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		regs:      make(map[string]*model.Registration),
		listeners: make(map[int]*listener),
		pub:       &events.NoopPublisher{},
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.origin == "" {
		origin, err := idgen.Origin()
		if err != nil {
			r.logger.Warn("registry: generating origin failed", "err", err)
			origin = idgen.OriginPrefix + "local"
		}
		r.origin = origin
	}
	return r
}

// Origin returns the identity that tags events this registry publishes.
func (r *Registry) Origin() string {
	return r.origin
}

// Register adds reg and returns a snapshot of what was stored. An empty ID is
// replaced with a generated one.
func (r *Registry) Register(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	return r.put(ctx, reg, putCreate, true)
}

// Modify replaces the registration with reg.ID. Listeners whose filter
// matches the new properties receive MODIFIED; listeners that matched only
// the old properties receive MODIFIED_ENDMATCH.
func (r *Registry) Modify(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	return r.put(ctx, reg, putUpdate, true)
}

// Unregister removes the registration with the given ID and notifies the
// listeners it matched.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	return r.remove(ctx, id, true)
}

type putMode int

const (
	putCreate putMode = iota
	putUpdate
	putUpsert
)

func (r *Registry) put(ctx context.Context, reg *model.Registration, mode putMode, publish bool) (*model.Registration, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registration", ErrInvalidRegistration)
	}
	if err := model.ValidateRegistration(reg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}
	cur := reg.Clone()
	if cur.ID == "" {
		if mode == putUpdate {
			return nil, fmt.Errorf("%w: id is required", ErrInvalidRegistration)
		}
		id, err := idgen.Registration()
		if err != nil {
			return nil, err
		}
		cur.ID = id
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	prev, exists := r.regs[cur.ID]
	switch {
	case exists && mode == putCreate:
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, cur.ID)
	case !exists && mode == putUpdate:
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, cur.ID)
	}

	r.regs[cur.ID] = cur
	evType := model.EventRegistered
	if exists {
		evType = model.EventModified
		r.notifyModified(cur, prev)
	} else {
		r.order = append(r.order, cur.ID)
		r.notify(model.Event{Type: model.EventRegistered, Registration: cur.Clone()}, cur)
	}
	r.mu.Unlock()

	r.logger.Debug("registry: stored registration", "id", cur.ID, "event", evType, "in", cur.InFormat, "out", cur.OutFormat)
	if publish {
		r.publish(ctx, evType, cur)
	}
	return cur.Clone(), nil
}

func (r *Registry) remove(ctx context.Context, id string, publish bool) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	prev, ok := r.regs[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.regs, id)
	r.order = slices.DeleteFunc(r.order, func(oid string) bool { return oid == id })
	r.notify(model.Event{Type: model.EventUnregistering, Registration: prev.Clone()}, prev)
	r.mu.Unlock()

	r.logger.Debug("registry: removed registration", "id", id)
	if publish {
		r.publish(ctx, model.EventUnregistering, prev)
	}
	return nil
}

// notify queues ev for every listener matching reg. Caller holds the write lock.
func (r *Registry) notify(ev model.Event, reg *model.Registration) {
	for _, id := range r.listenerOrder() {
		l := r.listeners[id]
		if l.filter == nil || l.filter.Match(reg) {
			l.enqueue(ev)
		}
	}
}

// notifyModified queues MODIFIED or MODIFIED_ENDMATCH per listener. Caller
// holds the write lock.
func (r *Registry) notifyModified(cur, prev *model.Registration) {
	for _, id := range r.listenerOrder() {
		l := r.listeners[id]
		now := l.filter == nil || l.filter.Match(cur)
		before := l.filter == nil || l.filter.Match(prev)
		switch {
		case now:
			l.enqueue(model.Event{Type: model.EventModified, Registration: cur.Clone(), Previous: prev.Clone()})
		case before:
			l.enqueue(model.Event{Type: model.EventModifiedGone, Registration: cur.Clone(), Previous: prev.Clone()})
		}
	}
}

// listenerOrder returns listener IDs in subscription order.
func (r *Registry) listenerOrder() []int {
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) publish(ctx context.Context, t model.EventType, reg *model.Registration) {
	topic, ok := events.TopicFor(t)
	if !ok {
		return
	}
	ev := events.RegistrationChanged{Origin: r.origin, Type: t, Registration: reg}
	if err := r.pub.Publish(ctx, topic, ev); err != nil {
		r.logger.Warn("registry: publishing event failed", "topic", topic, "id", reg.ID, "err", err)
	}
}

// Get returns a snapshot of the registration with the given ID.
func (r *Registry) Get(id string) (*model.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.regs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return reg.Clone(), nil
}

// List returns snapshots of every registration in registration order.
func (r *Registry) List() []*model.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matchLocked(nil)
}

// Query returns the registrations matching expr in registration order. An
// empty expression matches everything. Parse failures wrap
// filter.ErrInvalidFilter.
func (r *Registry) Query(expr string) ([]*model.Registration, error) {
	f, err := parseOptional(expr)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matchLocked(f), nil
}

func (r *Registry) matchLocked(f *filter.Filter) []*model.Registration {
	out := make([]*model.Registration, 0, len(r.order))
	for _, id := range r.order {
		reg := r.regs[id]
		if f == nil || f.Match(reg) {
			out = append(out, reg.Clone())
		}
	}
	return out
}

func parseOptional(expr string) (*filter.Filter, error) {
	if expr == "" {
		return nil, nil
	}
	return filter.Parse(expr)
}

// Subscribe registers fn for lifecycle events of registrations matching
// expr and returns the registrations that match at the moment of
// subscription. No event describing a change made before the snapshot is
// delivered, and every later change is. fn runs on a goroutine owned by the
// subscription and is never called concurrently with itself. The returned
// cancel function stops delivery; it is safe to call more than once.
func (r *Registry) Subscribe(expr string, fn model.Listener) ([]*model.Registration, func(), error) {
	f, err := parseOptional(expr)
	if err != nil {
		return nil, nil, err
	}
	if fn == nil {
		return nil, nil, errors.New("registry: nil listener")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, ErrClosed
	}
	id := r.nextID
	r.nextID++
	l := newListener(f, fn)
	r.listeners[id] = l
	snapshot := r.matchLocked(f)
	r.mu.Unlock()

	go l.run()

	cancel := func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
		l.stop()
	}
	return snapshot, cancel, nil
}

// Close stops every listener and rejects further mutations. It waits for
// in-flight listener calls to return, so it must not be called from a
// listener.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ls := make([]*listener, 0, len(r.listeners))
	for id, l := range r.listeners {
		ls = append(ls, l)
		delete(r.listeners, id)
	}
	r.mu.Unlock()

	for _, l := range ls {
		l.stop()
		<-l.stopped
	}
	return nil
}
