package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// replaySize bounds how many recent events are kept for clients that
	// reconnect with Last-Event-ID.
	replaySize = 512

	// clientBuffer is the per-client queue depth. Events beyond it are
	// dropped for that client only.
	clientBuffer = 64

	keepaliveInterval = 15 * time.Second
)

// streamEvent is one entry on the registration event stream.
type streamEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// sseHub fans registration events out to connected stream clients and keeps
// a replay window for reconnects.
type sseHub struct {
	mu      sync.Mutex
	clients map[*sseClient]struct{}
	lastID  uint64
	replay  []streamEvent // oldest first, at most replaySize entries
}

type sseClient struct {
	patterns []string
	ch       chan streamEvent
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast assigns the next sequence number to payload and hands it to every
// matching client without blocking.
func (h *sseHub) broadcast(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	ev := streamEvent{ID: h.lastID, Topic: topic, Data: payload}
	if len(h.replay) == replaySize {
		h.replay = h.replay[1:]
	}
	h.replay = append(h.replay, ev)

	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.ch <- ev:
		default:
		}
	}
}

// subscribe registers a client and returns the buffered events after
// lastID that it should see first. Registration and replay happen under one
// lock so no event falls between them.
func (h *sseHub) subscribe(patterns []string, lastID uint64) (*sseClient, []streamEvent) {
	c := &sseClient{patterns: patterns, ch: make(chan streamEvent, clientBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}

	var backlog []streamEvent
	if lastID > 0 {
		for _, ev := range h.replay {
			if ev.ID > lastID && c.wants(ev.Topic) {
				backlog = append(backlog, ev)
			}
		}
	}
	return c, backlog
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *sseHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// wants reports whether topic matches any of the client's patterns. No
// patterns means everything.
func (c *sseClient) wants(topic string) bool {
	if len(c.patterns) == 0 {
		return true
	}
	for _, p := range c.patterns {
		if matchTopicPattern(p, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches dot-separated subjects NATS-style: "*" is one
// segment, a trailing ">" is one or more segments.
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pp := strings.Split(pattern, ".")
	tp := strings.Split(topic, ".")
	for i, seg := range pp {
		if seg == ">" {
			return i == len(pp)-1 && i < len(tp)
		}
		if i >= len(tp) || (seg != "*" && seg != tp[i]) {
			return false
		}
	}
	return len(pp) == len(tp)
}

// parseTopics splits the comma-separated topics query parameter.
func parseTopics(q string) []string {
	var out []string
	for _, t := range strings.Split(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// handleEventStream handles GET /v1/events/stream?topics=.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var lastID uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		lastID, _ = strconv.ParseUint(v, 10, 64)
	}
	client, backlog := s.sseHub.subscribe(parseTopics(r.URL.Query().Get("topics")), lastID)
	defer s.sseHub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	for _, ev := range backlog {
		writeSSEEvent(w, ev)
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-client.ch:
			writeSSEEvent(w, ev)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w io.Writer, ev streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", ev.ID, ev.Topic, ev.Data)
}
