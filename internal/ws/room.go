package ws

import (
	"log"
	"sync"
)

// Conn is one member of a room: anything that can accept an outbound frame
// without blocking. *Client implements it; tests substitute fakes.
type Conn interface {
	// Enqueue attempts a non-blocking delivery and reports whether the frame
	// was accepted. A full buffer returns false; the caller must not retry.
	Enqueue(payload []byte) bool
}

type room struct {
	mu      sync.RWMutex
	members map[Conn]struct{}
	// dead marks a room removed from the registry; a Join that raced the
	// removal must not land a member here.
	dead bool
}

// Registry tracks room membership for every active connection. The outer
// mutex only guards the two maps; membership changes and fan-out take the
// per-room lock, so traffic in one channel never stalls another.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[RoomKey]*room
	byConn map[Conn]map[RoomKey]struct{}

	// onDrop is invoked (outside any room lock) for each member whose buffer
	// overflowed during a broadcast.
	onDrop func(room RoomKey, c Conn)
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[RoomKey]*room),
		byConn: make(map[Conn]map[RoomKey]struct{}),
	}
}

// SetDropHandler installs a callback for slow-member drops. Must be called
// before the registry is shared between goroutines.
func (reg *Registry) SetDropHandler(fn func(room RoomKey, c Conn)) {
	reg.onDrop = fn
}

// Join adds the connection to the room. Joining a room twice is a no-op.
func (reg *Registry) Join(c Conn, key RoomKey) {
	for {
		reg.mu.Lock()
		rm, ok := reg.rooms[key]
		if !ok {
			rm = &room{members: make(map[Conn]struct{})}
			reg.rooms[key] = rm
		}
		keys, ok := reg.byConn[c]
		if !ok {
			keys = make(map[RoomKey]struct{})
			reg.byConn[c] = keys
		}
		keys[key] = struct{}{}
		reg.mu.Unlock()

		rm.mu.Lock()
		if rm.dead {
			// Lost the race against collect; the registry no longer holds
			// this room object, so grab a fresh one.
			rm.mu.Unlock()
			continue
		}
		rm.members[c] = struct{}{}
		rm.mu.Unlock()
		return
	}
}

// Leave removes the connection from the room. Leaving a room it never joined
// is a no-op.
func (reg *Registry) Leave(c Conn, key RoomKey) {
	reg.mu.Lock()
	rm := reg.rooms[key]
	if keys, ok := reg.byConn[c]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(reg.byConn, c)
		}
	}
	reg.mu.Unlock()

	if rm == nil {
		return
	}
	rm.mu.Lock()
	delete(rm.members, c)
	empty := len(rm.members) == 0
	rm.mu.Unlock()

	if empty {
		reg.collect(key)
	}
}

// Disconnect removes the connection from every room it joined and returns the
// rooms it was a member of, so callers can clear per-room state that belonged
// to it (typing indicators).
func (reg *Registry) Disconnect(c Conn) []RoomKey {
	reg.mu.Lock()
	keys := reg.byConn[c]
	delete(reg.byConn, c)
	rooms := make(map[RoomKey]*room, len(keys))
	out := make([]RoomKey, 0, len(keys))
	for key := range keys {
		if rm := reg.rooms[key]; rm != nil {
			rooms[key] = rm
			out = append(out, key)
		}
	}
	reg.mu.Unlock()

	for key, rm := range rooms {
		rm.mu.Lock()
		delete(rm.members, c)
		empty := len(rm.members) == 0
		rm.mu.Unlock()
		if empty {
			reg.collect(key)
		}
	}
	return out
}

// Rooms returns the rooms the connection currently belongs to.
func (reg *Registry) Rooms(c Conn) []RoomKey {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]RoomKey, 0, len(reg.byConn[c]))
	for key := range reg.byConn[c] {
		out = append(out, key)
	}
	return out
}

// MemberCount reports the current size of a room's member set.
func (reg *Registry) MemberCount(key RoomKey) int {
	reg.mu.RLock()
	rm := reg.rooms[key]
	reg.mu.RUnlock()
	if rm == nil {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.members)
}

// Broadcast delivers the payload to every current member of the room. Delivery
// is fire-and-forget: a member with a full buffer is skipped, reported through
// the drop handler, and everyone else still receives the frame.
func (reg *Registry) Broadcast(key RoomKey, payload []byte) {
	reg.mu.RLock()
	rm := reg.rooms[key]
	reg.mu.RUnlock()
	if rm == nil {
		return
	}

	rm.mu.RLock()
	members := make([]Conn, 0, len(rm.members))
	for c := range rm.members {
		members = append(members, c)
	}
	rm.mu.RUnlock()

	for _, c := range members {
		if !c.Enqueue(payload) {
			log.Printf("ws: dropping frame for slow member in %s", key)
			if reg.onDrop != nil {
				reg.onDrop(key, c)
			}
		}
	}
}

// collect deletes a room that went empty, unless a concurrent Join repopulated it.
func (reg *Registry) collect(key RoomKey) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if rm := reg.rooms[key]; rm != nil {
		rm.mu.Lock()
		if len(rm.members) == 0 {
			rm.dead = true
			delete(reg.rooms, key)
		}
		rm.mu.Unlock()
	}
}
