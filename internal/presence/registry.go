package presence

import (
	"sync"

	"chatwire.app/server/internal/event"
)

// Registry is the process-wide presence table: identity → live connection
// handle. Entries are ephemeral; a restart loses them all, which is fine
// because they are recomputed from live connections.
//
// All mutation goes through this API; there is exactly one entry per
// identity and the last connection wins.
type Registry struct {
	mu    sync.RWMutex
	sinks map[int64]event.Sink
}

func NewRegistry() *Registry {
	return &Registry{sinks: make(map[int64]event.Sink)}
}

// Set registers the connection handle for a user. A second connect from the
// same identity silently replaces the stored handle.
func (r *Registry) Set(userID int64, sink event.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[userID] = sink
}

// Remove drops the user's entry, but only if it still points at the given
// handle. A disconnect racing a fresh connect must not evict the newer one.
func (r *Registry) Remove(userID int64, sink event.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sinks[userID]; ok && current == sink {
		delete(r.sinks, userID)
	}
}

// Get returns the live handle for a user, if any.
func (r *Registry) Get(userID int64) (event.Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[userID]
	return sink, ok
}

// Push sends an event to the user's live connection. Returns false when the
// user is offline; send errors are treated the same way.
func (r *Registry) Push(userID int64, e event.Event) bool {
	sink, ok := r.Get(userID)
	if !ok {
		return false
	}
	return sink.Send(e) == nil
}

// Broadcast sends an event to every registered connection except one user's.
func (r *Registry) Broadcast(except int64, e event.Event) {
	r.mu.RLock()
	targets := make([]event.Sink, 0, len(r.sinks))
	for userID, sink := range r.sinks {
		if userID == except {
			continue
		}
		targets = append(targets, sink)
	}
	r.mu.RUnlock()

	for _, sink := range targets {
		_ = sink.Send(e)
	}
}

// Online reports whether the user currently has a registered handle.
func (r *Registry) Online(userID int64) bool {
	_, ok := r.Get(userID)
	return ok
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}
