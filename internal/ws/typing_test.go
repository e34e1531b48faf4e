package ws

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitRecord struct {
	room  RoomKey
	event string
	user  string
}

type emitRecorder struct {
	mu      sync.Mutex
	records []emitRecord
}

func (r *emitRecorder) emit(room RoomKey, event string, user UserRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, emitRecord{room: room, event: event, user: user.Name})
}

func (r *emitRecorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.event == event {
			n++
		}
	}
	return n
}

const (
	testDebounce = 20 * time.Millisecond
	testTTL      = 120 * time.Millisecond
)

func newTestTracker() (*Tracker, *emitRecorder) {
	rec := &emitRecorder{}
	return NewTracker(rec.emit, testDebounce, testTTL), rec
}

func TestTypingStartBroadcastOnlyOnTransition(t *testing.T) {
	tr, rec := newTestTracker()
	room := NewRoomKey("w", "c")

	for i := 0; i < 10; i++ {
		tr.MarkTyping(room, "alice")
	}

	assert.Equal(t, 1, rec.count(EventUserTyping))
	assert.Equal(t, 0, rec.count(EventUserStopTyping))
}

func TestTypingExpiresAfterTTL(t *testing.T) {
	tr, rec := newTestTracker()
	room := NewRoomKey("w", "c")

	tr.MarkTyping(room, "alice")
	time.Sleep(testTTL + 50*time.Millisecond)

	require.Equal(t, 1, rec.count(EventUserStopTyping))

	// State is absent again: the next signal is a fresh transition.
	tr.MarkTyping(room, "alice")
	assert.Equal(t, 2, rec.count(EventUserTyping))
}

func TestTypingRefreshExtendsTTL(t *testing.T) {
	tr, rec := newTestTracker()
	room := NewRoomKey("w", "c")

	tr.MarkTyping(room, "alice")
	time.Sleep(testTTL * 2 / 3) // past the debounce window, before expiry
	tr.MarkTyping(room, "alice")
	time.Sleep(testTTL * 2 / 3)

	// Without the refresh the first timer would have fired by now.
	assert.Equal(t, 0, rec.count(EventUserStopTyping))

	time.Sleep(testTTL)
	assert.Equal(t, 1, rec.count(EventUserStopTyping))
	assert.Equal(t, 1, rec.count(EventUserTyping))
}

func TestExplicitStopBroadcastsOnce(t *testing.T) {
	tr, rec := newTestTracker()
	room := NewRoomKey("w", "c")

	tr.MarkTyping(room, "alice")
	tr.MarkStopped(room, "alice")
	tr.MarkStopped(room, "alice") // already absent: no-op

	assert.Equal(t, 1, rec.count(EventUserStopTyping))

	// The cancelled expiry timer must not fire a second stop later.
	time.Sleep(testTTL + 50*time.Millisecond)
	assert.Equal(t, 1, rec.count(EventUserStopTyping))
}

func TestStopWithoutTypingIsNoop(t *testing.T) {
	tr, rec := newTestTracker()

	tr.MarkStopped(NewRoomKey("w", "c"), "ghost")
	assert.Empty(t, rec.records)
}

func TestStopThenRetypeSurvivesStaleTimer(t *testing.T) {
	tr, rec := newTestTracker()
	room := NewRoomKey("w", "c")

	tr.MarkTyping(room, "alice")
	tr.MarkStopped(room, "alice")
	tr.MarkTyping(room, "alice")

	// Only the second entry's timer may expire it.
	time.Sleep(testTTL + 50*time.Millisecond)
	assert.Equal(t, 2, rec.count(EventUserTyping))
	assert.Equal(t, 2, rec.count(EventUserStopTyping))
}

func TestClearUserStopsEveryRoom(t *testing.T) {
	tr, rec := newTestTracker()
	room1 := NewRoomKey("w", "c1")
	room2 := NewRoomKey("w", "c2")

	tr.MarkTyping(room1, "zoe")
	tr.MarkTyping(room2, "zoe")
	tr.MarkTyping(room1, "other")

	// Disconnect mid-typing-window: exactly one stop per room for zoe, and no
	// stuck indicator afterwards.
	tr.ClearUser([]RoomKey{room1, room2}, "zoe")

	stops := 0
	rec.mu.Lock()
	for _, r := range rec.records {
		if r.event == EventUserStopTyping && r.user == "zoe" {
			stops++
		}
	}
	rec.mu.Unlock()
	assert.Equal(t, 2, stops)

	// The other user's indicator is untouched until its own TTL.
	assert.Equal(t, 0, rec.count(EventUserStopTyping)-stops)
}

func TestTypingUsersIndependent(t *testing.T) {
	tr, rec := newTestTracker()
	room := NewRoomKey("w", "c")

	tr.MarkTyping(room, "alice")
	tr.MarkTyping(room, "bob")
	tr.MarkStopped(room, "alice")

	assert.Equal(t, 2, rec.count(EventUserTyping))
	assert.Equal(t, 1, rec.count(EventUserStopTyping))

	time.Sleep(testTTL + 50*time.Millisecond)
	// Bob's TTL fires on its own.
	assert.Equal(t, 2, rec.count(EventUserStopTyping))
}
