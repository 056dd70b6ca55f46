package ws

import (
	"sync"

	"chatwire.app/server/internal/event"
)

// Rooms tracks which connections subscribed to which conversation. The
// lifecycle code populates it from join/leave events; it is decoupled from
// the transport and holds no per-room state beyond membership.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[*Conn]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{members: make(map[string]map[*Conn]struct{})}
}

func (r *Rooms) Join(room string, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[room]
	if !ok {
		set = make(map[*Conn]struct{})
		r.members[room] = set
	}
	set[conn] = struct{}{}
}

func (r *Rooms) Leave(room string, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(room, conn)
}

// LeaveAll removes the connection from every room it joined.
func (r *Rooms) LeaveAll(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.members {
		r.leaveLocked(room, conn)
	}
}

func (r *Rooms) leaveLocked(room string, conn *Conn) {
	set, ok := r.members[room]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.members, room)
	}
}

// Broadcast sends an event to every subscriber of a room except one.
func (r *Rooms) Broadcast(room string, except *Conn, e event.Event) {
	r.mu.RLock()
	targets := make([]*Conn, 0, len(r.members[room]))
	for conn := range r.members[room] {
		if conn == except {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		_ = conn.Send(e)
	}
}

// Count returns the number of subscribers in a room.
func (r *Rooms) Count(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[room])
}
