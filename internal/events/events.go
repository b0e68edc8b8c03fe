// Package events carries registry lifecycle notifications between processes.
// Payloads are JSON-encoded RegistrationChanged values published on NATS
// subjects under "convgraph.registration".
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/convgraph/internal/model"
)

// Event topic constants
const (
	TopicRegistered    = "convgraph.registration.registered"
	TopicModified      = "convgraph.registration.modified"
	TopicUnregistering = "convgraph.registration.unregistering"

	// TopicRegistrationAll matches every registration topic.
	TopicRegistrationAll = "convgraph.registration.>"
)

// RegistrationChanged is published after every registry mutation.
// Origin identifies the publishing process so mirrors can skip their own echo.
type RegistrationChanged struct {
	Origin       string              `json:"origin"`
	Type         model.EventType     `json:"type"`
	Registration *model.Registration `json:"registration"`
}

// TopicFor returns the subject a lifecycle event type is published on.
// MODIFIED_ENDMATCH is listener-relative and never published.
func TopicFor(t model.EventType) (string, bool) {
	switch t {
	case model.EventRegistered:
		return TopicRegistered, true
	case model.EventModified:
		return TopicModified, true
	case model.EventUnregistering:
		return TopicUnregistering, true
	}
	return "", false
}

// DecodeRegistrationChanged parses a raw payload and checks that it names a
// registration.
func DecodeRegistrationChanged(raw []byte) (RegistrationChanged, error) {
	var ev RegistrationChanged
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("decoding registration event: %w", err)
	}
	if ev.Registration == nil || ev.Registration.ID == "" {
		return ev, fmt.Errorf("decoding registration event: missing registration id")
	}
	if _, ok := TopicFor(ev.Type); !ok {
		return ev, fmt.Errorf("decoding registration event: unknown type %q", ev.Type)
	}
	return ev, nil
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
