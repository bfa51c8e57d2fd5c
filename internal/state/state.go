package state

import (
	"sync"
	"time"

	"orderbook-aggregator/internal/depth"
)

// State records feed liveness per venue. It is shared between the feeds that
// write it and the HTTP handlers that read it; book data never lives here.
type State struct {
	mu         sync.RWMutex
	connected  map[depth.Venue]bool
	lastSeen   map[depth.Venue]time.Time
	staleAfter time.Duration
}

func NewState(staleAfter time.Duration) *State {
	return &State{
		connected:  make(map[depth.Venue]bool),
		lastSeen:   make(map[depth.Venue]time.Time),
		staleAfter: staleAfter,
	}
}

func (s *State) SetConnected(v depth.Venue, c bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected[v] = c
}

func (s *State) Connected(v depth.Venue) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected[v]
}

// MarkSnapshot notes that v delivered a snapshot at t.
func (s *State) MarkSnapshot(v depth.Venue, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.lastSeen[v]) {
		s.lastSeen[v] = t
	}
}

func (s *State) LastSnapshot(v depth.Venue) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen[v]
}

// Stale reports whether v has been silent for longer than the configured window.
// A venue that never reported is stale.
func (s *State) Stale(v depth.Venue, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last, ok := s.lastSeen[v]
	if !ok {
		return true
	}
	return now.Sub(last) > s.staleAfter
}

// VenueStatus is the health view of one venue.
type VenueStatus struct {
	Venue        depth.Venue `json:"venue"`
	Connected    bool        `json:"connected"`
	LastSnapshot *time.Time  `json:"lastSnapshot,omitempty"`
	Stale        bool        `json:"stale"`
}

// Statuses returns the status of each venue in vs, in order.
func (s *State) Statuses(vs []depth.Venue, now time.Time) []VenueStatus {
	out := make([]VenueStatus, 0, len(vs))
	for _, v := range vs {
		st := VenueStatus{Venue: v, Connected: s.Connected(v), Stale: s.Stale(v, now)}
		if last := s.LastSnapshot(v); !last.IsZero() {
			st.LastSnapshot = &last
		}
		out = append(out, st)
	}
	return out
}
