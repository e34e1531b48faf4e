package ws

import (
	"sync"
	"time"
)

const (
	// TypingTTL is the inactivity window after which a typing indicator clears
	// itself without an explicit stop.
	TypingTTL = 3000 * time.Millisecond

	// TypingDebounce is how long a burst of typing signals for the same user
	// coalesces into a single refresh. Signals inside the window are absorbed
	// without touching the expiry timer.
	TypingDebounce = 300 * time.Millisecond
)

type typingEntry struct {
	lastRefresh time.Time
	timer       *time.Timer
}

type roomTyping struct {
	mu    sync.Mutex
	users map[string]*typingEntry
	// dead marks room state removed from the tracker; a mark that raced the
	// removal must start over on a fresh object.
	dead bool
}

// Tracker keeps the ephemeral "who is typing" state per room. State lives only
// in process memory; every transition is pushed to the room through emit.
// Locking is per room, so typing bursts in one channel never serialize another.
type Tracker struct {
	mu    sync.Mutex
	rooms map[RoomKey]*roomTyping

	emit     func(room RoomKey, event string, user UserRef)
	debounce time.Duration
	ttl      time.Duration
}

// NewTracker builds a tracker that reports transitions through emit. The
// intervals are parameters so tests can shrink them; production wiring passes
// TypingDebounce and TypingTTL.
func NewTracker(emit func(room RoomKey, event string, user UserRef), debounce, ttl time.Duration) *Tracker {
	return &Tracker{
		rooms:    make(map[RoomKey]*roomTyping),
		emit:     emit,
		debounce: debounce,
		ttl:      ttl,
	}
}

// MarkTyping records activity for (room, user). Only the absent->typing
// transition broadcasts "user-typing"; repeated signals merely keep the entry
// alive, and signals inside the debounce window are absorbed entirely.
func (t *Tracker) MarkTyping(room RoomKey, user string) {
	now := time.Now()

	for {
		rt := t.roomState(room, true)

		rt.mu.Lock()
		if rt.dead {
			rt.mu.Unlock()
			continue
		}
		e, ok := rt.users[user]
		if ok {
			if now.Sub(e.lastRefresh) >= t.debounce {
				e.lastRefresh = now
				e.timer.Reset(t.ttl)
			}
			rt.mu.Unlock()
			return
		}

		e = &typingEntry{lastRefresh: now}
		e.timer = time.AfterFunc(t.ttl, func() { t.expire(room, user, e) })
		rt.users[user] = e
		rt.mu.Unlock()

		t.emit(room, EventUserTyping, UserRef{Name: user})
		return
	}
}

// MarkStopped explicitly clears (room, user), cancels the pending expiry and
// broadcasts "user-stop-typing". Stopping an already-absent user is a no-op,
// so an explicit stop racing the TTL expiry never double-broadcasts.
func (t *Tracker) MarkStopped(room RoomKey, user string) {
	rt := t.roomState(room, false)
	if rt == nil {
		return
	}

	rt.mu.Lock()
	e, ok := rt.users[user]
	if ok {
		e.timer.Stop()
		delete(rt.users, user)
	}
	empty := len(rt.users) == 0
	rt.mu.Unlock()

	if empty {
		t.collect(room)
	}
	if ok {
		t.emit(room, EventUserStopTyping, UserRef{Name: user})
	}
}

// ClearUser drops the user's typing state in every given room, broadcasting a
// stop event wherever an entry actually existed. Called on disconnect so no
// room is left with a stuck indicator.
func (t *Tracker) ClearUser(rooms []RoomKey, user string) {
	for _, room := range rooms {
		t.MarkStopped(room, user)
	}
}

// expire fires when the TTL elapses with no refresh. The entry identity check
// guards against the timer racing a stop-then-retype sequence: only the entry
// the timer was armed for may be expired by it.
func (t *Tracker) expire(room RoomKey, user string, e *typingEntry) {
	rt := t.roomState(room, false)
	if rt == nil {
		return
	}

	rt.mu.Lock()
	current, ok := rt.users[user]
	if !ok || current != e {
		rt.mu.Unlock()
		return
	}
	delete(rt.users, user)
	empty := len(rt.users) == 0
	rt.mu.Unlock()

	if empty {
		t.collect(room)
	}
	t.emit(room, EventUserStopTyping, UserRef{Name: user})
}

func (t *Tracker) roomState(room RoomKey, create bool) *roomTyping {
	t.mu.Lock()
	defer t.mu.Unlock()
	rt, ok := t.rooms[room]
	if !ok && create {
		rt = &roomTyping{users: make(map[string]*typingEntry)}
		t.rooms[room] = rt
	}
	return rt
}

func (t *Tracker) collect(room RoomKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rt := t.rooms[room]; rt != nil {
		rt.mu.Lock()
		if len(rt.users) == 0 {
			rt.dead = true
			delete(t.rooms, room)
		}
		rt.mu.Unlock()
	}
}
