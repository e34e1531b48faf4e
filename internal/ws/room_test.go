package ws

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a room member with a bounded inbox, mirroring the real client's
// buffered send channel.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	capacity int
}

func newFakeConn(capacity int) *fakeConn {
	return &fakeConn{capacity: capacity}
}

func (c *fakeConn) Enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) >= c.capacity {
		return false
	}
	c.frames = append(c.frames, payload)
	return true
}

func (c *fakeConn) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestRoomKeyDeterministic(t *testing.T) {
	a := NewRoomKey("ws1", "ch1")
	b := NewRoomKey("ws1", "ch1")
	require.Equal(t, a, b)
	assert.Equal(t, RoomKey("workspace:ws1:channel:ch1"), a)
	assert.NotEqual(t, a, NewRoomKey("ws1", "ch2"))
}

func TestJoinIdempotent(t *testing.T) {
	reg := NewRegistry()
	c := newFakeConn(10)
	key := NewRoomKey("w", "c")

	reg.Join(c, key)
	reg.Join(c, key)

	assert.Equal(t, 1, reg.MemberCount(key))

	reg.Broadcast(key, []byte("hello"))
	assert.Equal(t, 1, c.received())
}

func TestLeaveIdempotent(t *testing.T) {
	reg := NewRegistry()
	c := newFakeConn(10)
	key := NewRoomKey("w", "c")

	reg.Join(c, key)
	reg.Leave(c, key)
	reg.Leave(c, key)

	assert.Equal(t, 0, reg.MemberCount(key))

	// Leaving a room never joined is also a no-op.
	reg.Leave(c, NewRoomKey("w", "other"))
}

func TestDisconnectCleansEveryRoom(t *testing.T) {
	reg := NewRegistry()
	c := newFakeConn(10)
	other := newFakeConn(10)
	key1 := NewRoomKey("w", "c1")
	key2 := NewRoomKey("w", "c2")

	reg.Join(c, key1)
	reg.Join(c, key2)
	reg.Join(other, key1)

	rooms := reg.Disconnect(c)
	assert.ElementsMatch(t, []RoomKey{key1, key2}, rooms)
	assert.Equal(t, 1, reg.MemberCount(key1))
	assert.Equal(t, 0, reg.MemberCount(key2))
	assert.Empty(t, reg.Rooms(c))

	// A reconnect cycle must not inherit stale membership.
	reg.Join(c, key1)
	assert.Equal(t, []RoomKey{key1}, reg.Rooms(c))
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	reg := NewRegistry()
	member := newFakeConn(10)
	outsider := newFakeConn(10)
	key := NewRoomKey("w", "c")

	reg.Join(member, key)
	reg.Join(outsider, NewRoomKey("w", "elsewhere"))

	reg.Broadcast(key, []byte("x"))

	assert.Equal(t, 1, member.received())
	assert.Equal(t, 0, outsider.received())
}

func TestBroadcastSkipsSlowMember(t *testing.T) {
	reg := NewRegistry()
	var dropped []RoomKey
	reg.SetDropHandler(func(room RoomKey, c Conn) {
		dropped = append(dropped, room)
	})

	slow := newFakeConn(1)
	fast := newFakeConn(10)
	key := NewRoomKey("w", "c")
	reg.Join(slow, key)
	reg.Join(fast, key)

	for i := 0; i < 3; i++ {
		reg.Broadcast(key, []byte("frame"))
	}

	// The slow member loses frames beyond its buffer; the fast one gets all.
	assert.Equal(t, 1, slow.received())
	assert.Equal(t, 3, fast.received())
	assert.Len(t, dropped, 2)

	// Still a member: a slow consumer degrades only its own delivery.
	assert.Equal(t, 2, reg.MemberCount(key))
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	reg := NewRegistry()
	reg.Broadcast(NewRoomKey("w", "ghost"), []byte("x"))
}

func TestConcurrentJoinLeave(t *testing.T) {
	reg := NewRegistry()
	key := NewRoomKey("w", "c")

	var wg sync.WaitGroup
	conns := make([]*fakeConn, 32)
	for i := range conns {
		conns[i] = newFakeConn(100)
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			reg.Join(c, key)
			reg.Broadcast(key, []byte("x"))
			reg.Leave(c, key)
		}(conns[i])
	}
	wg.Wait()

	assert.Equal(t, 0, reg.MemberCount(key))
}
