// Package peers keeps a roster of the remote registries a mirror has heard
// from. Each peer is keyed by the origin stamped on its events and carries
// the set of registration IDs it currently holds, as far as the event stream
// shows. A background reaper marks peers stale once they go quiet and later
// evicts them.
package peers

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/convgraph/internal/events"
	"github.com/alfredjeanlab/convgraph/internal/model"
)

// Entry is a point-in-time view of one peer.
type Entry struct {
	Origin        string    `json:"origin"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	LastEvent     string    `json:"last_event"`
	LastID        string    `json:"last_id,omitempty"`
	IdleSecs      float64   `json:"idle_secs"`
	EventCount    int64     `json:"event_count"`
	Registrations []string  `json:"registrations"`
	Stale         bool      `json:"stale,omitempty"`
	StaleAt       time.Time `json:"stale_at,omitempty"`
}

// ReaperConfig configures the stale-peer reaper.
type ReaperConfig struct {
	// StaleAfter is how long a peer may stay silent before it is marked
	// stale. Default: 15 minutes.
	StaleAfter time.Duration

	// EvictAfter is how long a stale peer is kept before it is dropped from
	// the roster. Default: 30 minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans. Default: 60 seconds.
	SweepInterval time.Duration

	// OnStale is called outside the lock for each peer newly marked stale,
	// with the registration IDs it was last known to hold.
	OnStale func(origin string, ids []string)
}

// Tracker is the peer roster. It is safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	peers map[string]*peerState
	now   func() time.Time

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type peerState struct {
	firstSeen  time.Time
	lastSeen   time.Time
	lastEvent  model.EventType
	lastID     string
	eventCount int64
	regs       map[string]struct{}
	stale      bool
	staleAt    time.Time
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{peers: make(map[string]*peerState), now: time.Now}
}

// Observe records one event seen on the bus. Events without an origin are
// ignored.
func (t *Tracker) Observe(ev events.RegistrationChanged) {
	if ev.Origin == "" {
		return
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.peers[ev.Origin]
	if !ok {
		p = &peerState{firstSeen: now, regs: make(map[string]struct{})}
		t.peers[ev.Origin] = p
	}
	if p.stale {
		slog.Info("peers: peer active again", "origin", ev.Origin)
		p.stale = false
		p.staleAt = time.Time{}
	}

	p.lastSeen = now
	p.lastEvent = ev.Type
	p.eventCount++
	if ev.Registration == nil {
		return
	}
	p.lastID = ev.Registration.ID
	switch ev.Type {
	case model.EventRegistered, model.EventModified:
		p.regs[ev.Registration.ID] = struct{}{}
	case model.EventUnregistering:
		delete(p.regs, ev.Registration.ID)
	}
}

// Roster returns every tracked peer, most recently active first.
func (t *Tracker) Roster() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	entries := make([]Entry, 0, len(t.peers))
	for origin, p := range t.peers {
		entries = append(entries, Entry{
			Origin:        origin,
			FirstSeen:     p.firstSeen,
			LastSeen:      p.lastSeen,
			LastEvent:     string(p.lastEvent),
			LastID:        p.lastID,
			IdleSecs:      now.Sub(p.lastSeen).Seconds(),
			EventCount:    p.eventCount,
			Registrations: p.ids(),
			Stale:         p.stale,
			StaleAt:       p.staleAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].Origin < entries[j].Origin
		}
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return entries
}

// Get returns the entry for origin.
func (t *Tracker) Get(origin string) (Entry, bool) {
	for _, e := range t.Roster() {
		if e.Origin == origin {
			return e, true
		}
	}
	return Entry{}, false
}

func (p *peerState) ids() []string {
	ids := make([]string, 0, len(p.regs))
	for id := range p.regs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// StartReaper launches the background sweep. Call Stop to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	cfg = withDefaults(cfg)
	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	slog.Info("peers: reaper started",
		"stale_after", cfg.StaleAfter,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine. It is a no-op if the reaper is not
// running.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func withDefaults(cfg *ReaperConfig) *ReaperConfig {
	c := ReaperConfig{}
	if cfg != nil {
		c = *cfg
	}
	if c.StaleAfter == 0 {
		c.StaleAfter = 15 * time.Minute
	}
	if c.EvictAfter == 0 {
		c.EvictAfter = 30 * time.Minute
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 60 * time.Second
	}
	return &c
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := t.now()

	type stalePeer struct {
		origin string
		ids    []string
	}
	var newlyStale []stalePeer

	t.mu.Lock()
	for origin, p := range t.peers {
		if p.stale {
			if now.Sub(p.staleAt) > cfg.EvictAfter {
				delete(t.peers, origin)
			}
			continue
		}
		if now.Sub(p.lastSeen) > cfg.StaleAfter {
			p.stale = true
			p.staleAt = now
			newlyStale = append(newlyStale, stalePeer{origin: origin, ids: p.ids()})
		}
	}
	t.mu.Unlock()

	for _, s := range newlyStale {
		slog.Info("peers: peer marked stale",
			"origin", s.origin,
			"registrations", len(s.ids),
			"threshold", cfg.StaleAfter)
		if cfg.OnStale != nil {
			cfg.OnStale(s.origin, s.ids)
		}
	}
}
