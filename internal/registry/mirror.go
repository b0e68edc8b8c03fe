package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/convgraph/internal/events"
	"github.com/alfredjeanlab/convgraph/internal/model"
)

// Mirror follows another process's registry over the event bus and replays
// its lifecycle events into a local Registry. Replayed changes are not
// republished, and events carrying the local registry's own origin are
// skipped.
type Mirror struct {
	reg      *Registry
	logger   *slog.Logger
	observer Observer
}

// Observer is told about every remote event before it is replayed.
type Observer interface {
	Observe(ev events.RegistrationChanged)
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithObserver reports remote events to o.
func WithObserver(o Observer) MirrorOption {
	return func(m *Mirror) { m.observer = o }
}

// NewMirror creates a mirror feeding r. A nil logger uses slog.Default().
func NewMirror(r *Registry, logger *slog.Logger, opts ...MirrorOption) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mirror{reg: r, logger: logger}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Apply replays one remote event. REGISTERED and MODIFIED upsert, so events
// that arrive for an ID the mirror has not seen still converge.
// UNREGISTERING an unknown ID is ignored.
func (m *Mirror) Apply(ctx context.Context, ev events.RegistrationChanged) error {
	if ev.Origin == m.reg.Origin() {
		return nil
	}
	if m.observer != nil {
		m.observer.Observe(ev)
	}
	if ev.Registration == nil {
		return fmt.Errorf("mirror: event without registration")
	}
	switch ev.Type {
	case model.EventRegistered, model.EventModified:
		_, err := m.reg.put(ctx, ev.Registration, putUpsert, false)
		return err
	case model.EventUnregistering:
		err := m.reg.remove(ctx, ev.Registration.ID, false)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return fmt.Errorf("mirror: unsupported event type %q", ev.Type)
}

// Forget drops previously mirrored registrations without publishing, as when
// the peer that announced them has gone quiet. IDs already gone are skipped.
// It returns how many were removed.
func (m *Mirror) Forget(ctx context.Context, ids []string) (int, error) {
	removed := 0
	for _, id := range ids {
		err := m.reg.remove(ctx, id, false)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, ErrNotFound):
		default:
			return removed, err
		}
	}
	return removed, nil
}

// StartSubscriber consumes registration events from the bus until ctx is
// cancelled or the subscription closes.
func (m *Mirror) StartSubscriber(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicRegistrationAll)
	if err != nil {
		return fmt.Errorf("mirror: subscribe: %w", err)
	}
	defer cancel()

	m.logger.Info("mirror: subscriber started", "origin", m.reg.Origin())

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("mirror: subscriber stopping")
			return nil
		case raw, ok := <-ch:
			if !ok {
				m.logger.Info("mirror: subscription channel closed")
				return nil
			}

			ev, err := events.DecodeRegistrationChanged(raw)
			if err != nil {
				m.logger.Warn("mirror: bad event payload", "err", err)
				continue
			}
			if err := m.Apply(ctx, ev); err != nil {
				m.logger.Warn("mirror: replay failed", "id", ev.Registration.ID, "type", ev.Type, "err", err)
			}
		}
	}
}
