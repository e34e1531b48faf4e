package ws

import (
	"encoding/json"
	"log"
	"sync"

	"ylack/internal/apperr"
	"ylack/internal/metrics"
)

// Hub owns the room registry, the typing tracker and the set of live
// connections. It is created once at process start and shared by the websocket
// handler and the message pipeline; all methods are safe for concurrent use.
type Hub struct {
	registry *Registry
	typing   *Tracker

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

func NewHub() *Hub {
	h := &Hub{
		registry: NewRegistry(),
		clients:  make(map[*Client]struct{}),
	}
	h.registry.SetDropHandler(func(room RoomKey, c Conn) {
		metrics.BroadcastDropsTotal.Inc()
	})
	h.typing = NewTracker(h.emitTyping, TypingDebounce, TypingTTL)
	return h
}

// Register adds a freshly-upgraded connection to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.send)
		return
	}
	h.clients[c] = struct{}{}
	metrics.ConnectionsActive.Inc()
}

// Unregister tears down everything the connection owned: room membership,
// typing indicators, and its send channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	rooms := h.registry.Disconnect(c)
	h.typing.ClearUser(rooms, c.Username)
	close(c.send)
	metrics.ConnectionsActive.Dec()
}

// Shutdown closes every live connection. New registrations are refused.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, c := range clients {
		rooms := h.registry.Disconnect(c)
		h.typing.ClearUser(rooms, c.Username)
		close(c.send)
		metrics.ConnectionsActive.Dec()
	}
}

// BroadcastMessage pushes a persisted message to its room. The origin marker
// is empty on the durable-write path; the sender's own websocket echo goes
// through handle() and carries OriginTransport instead.
func (h *Hub) BroadcastMessage(workspaceID, channelID, canonicalID string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return h.broadcastMessageRaw(NewRoomKey(workspaceID, channelID), Envelope{CanonicalID: canonicalID}, payload)
}

func (h *Hub) broadcastMessageRaw(room RoomKey, env Envelope, message json.RawMessage) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return &apperr.TransportUnavailable{Room: string(room)}
	}

	frame, err := json.Marshal(messageEvent{
		Event:    EventMessageReceived,
		Envelope: env,
		Message:  message,
	})
	if err != nil {
		return err
	}
	h.registry.Broadcast(room, frame)
	metrics.BroadcastsTotal.WithLabelValues(EventMessageReceived).Inc()
	return nil
}

// handle dispatches one decoded client event.
func (h *Hub) handle(c *Client, ev Inbound) {
	switch {
	case ev.Join != nil:
		h.registry.Join(c, NewRoomKey(ev.Join.WorkspaceID, ev.Join.ChannelID))
	case ev.Leave != nil:
		key := NewRoomKey(ev.Leave.WorkspaceID, ev.Leave.ChannelID)
		h.typing.MarkStopped(key, c.Username)
		h.registry.Leave(c, key)
	case ev.Message != nil:
		key := NewRoomKey(ev.Message.WorkspaceID, ev.Message.ChannelID)
		env := Envelope{CanonicalID: ev.Message.MessageID, OriginMarker: OriginTransport}
		if err := h.broadcastMessageRaw(key, env, ev.Message.Payload); err != nil {
			log.Printf("ws: echo broadcast failed in %s: %v", key, err)
		}
	case ev.Typing != nil:
		h.typing.MarkTyping(NewRoomKey(ev.Typing.WorkspaceID, ev.Typing.ChannelID), c.Username)
	case ev.Stop != nil:
		h.typing.MarkStopped(NewRoomKey(ev.Stop.WorkspaceID, ev.Stop.ChannelID), c.Username)
	}
}

func (h *Hub) emitTyping(room RoomKey, event string, user UserRef) {
	frame, err := json.Marshal(typingEvent{Event: event, User: user})
	if err != nil {
		return
	}
	h.registry.Broadcast(room, frame)
	metrics.BroadcastsTotal.WithLabelValues(event).Inc()
	if event == EventUserTyping {
		metrics.TypingTransitionsTotal.WithLabelValues("start").Inc()
	} else {
		metrics.TypingTransitionsTotal.WithLabelValues("stop").Inc()
	}
}
