package stream

import (
	"sort"
	"sync"

	"market-stream/src/metrics"
)

// Registry maps connection ids to their live sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register stores s under connID. An existing session for the same id is
// cancelled before being replaced and returned.
func (r *Registry) Register(connID string, s *Session) *Session {
	r.mu.Lock()
	prev, existed := r.sessions[connID]
	r.sessions[connID] = s
	r.mu.Unlock()

	if existed && prev != s {
		prev.Cancel()
		return prev
	}
	metrics.ActiveSessions.Inc()
	return nil
}

// Remove deletes and returns the session for connID, if any.
func (r *Registry) Remove(connID string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[connID]
	if ok {
		delete(r.sessions, connID)
	}
	r.mu.Unlock()

	if ok {
		metrics.ActiveSessions.Dec()
	}
	return s, ok
}

// RemoveSession deletes s only if it is still the registered session for its
// connection, so a replaced session cannot evict its successor.
func (r *Registry) RemoveSession(s *Session) bool {
	r.mu.Lock()
	current, ok := r.sessions[s.ConnID]
	removed := ok && current == s
	if removed {
		delete(r.sessions, s.ConnID)
	}
	r.mu.Unlock()

	if removed {
		metrics.ActiveSessions.Dec()
	}
	return removed
}

func (r *Registry) Get(connID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connID]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the registered sessions ordered by connection id.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ConnID < out[j].ConnID })
	return out
}
