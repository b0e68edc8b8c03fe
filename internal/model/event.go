package model

// EventType is a registry lifecycle notification.
type EventType string

const (
	EventRegistered    EventType = "REGISTERED"
	EventModified      EventType = "MODIFIED"
	EventModifiedGone  EventType = "MODIFIED_ENDMATCH"
	EventUnregistering EventType = "UNREGISTERING"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event is delivered to registry listeners. Registration is a snapshot of the
// registration after the change (before it, for UNREGISTERING). Previous holds
// the snapshot the change replaced and is set only for modifications.
type Event struct {
	Type         EventType     `json:"type"`
	Registration *Registration `json:"registration"`
	Previous     *Registration `json:"previous,omitempty"`
}

// Listener receives registry events. It is called from the registry's
// delivery goroutine, never concurrently with itself.
type Listener func(Event)
