package ws

import (
	"encoding/json"
	"fmt"

	"ylack/internal/apperr"
)

// RoomKey addresses a broadcast/presence scope. Every component that needs to
// name "the same room" must build the key through NewRoomKey so the bytes are
// identical everywhere.
type RoomKey string

func NewRoomKey(workspaceID, channelID string) RoomKey {
	return RoomKey("workspace:" + workspaceID + ":channel:" + channelID)
}

// Client->server event names.
const (
	EventJoinChannel  = "join-channel"
	EventLeaveChannel = "leave-channel"
	EventNewMessage   = "new-message"
	EventTyping       = "typing"
	EventStopTyping   = "stop-typing"
)

// Server->client event names.
const (
	EventMessageReceived = "message-received"
	EventUserTyping      = "user-typing"
	EventUserStopTyping  = "user-stop-typing"
)

// Inbound is the closed set of events a client may send. Exactly one variant
// is non-nil after a successful Decode.
type Inbound struct {
	Join    *JoinChannel
	Leave   *LeaveChannel
	Message *NewMessage
	Typing  *TypingSignal
	Stop    *TypingSignal
}

type JoinChannel struct {
	WorkspaceID string
	ChannelID   string
}

type LeaveChannel struct {
	WorkspaceID string
	ChannelID   string
}

// NewMessage is the sender's own echo of a message it already persisted over
// the REST path. The payload is opaque to the transport; only the id is
// inspected to build the origin-marked envelope.
type NewMessage struct {
	WorkspaceID string
	ChannelID   string
	MessageID   string
	Payload     json.RawMessage
}

type TypingSignal struct {
	WorkspaceID string
	ChannelID   string
}

type rawInbound struct {
	Event       string          `json:"event"`
	WorkspaceID string          `json:"workspaceId"`
	ChannelID   string          `json:"channelId"`
	Message     json.RawMessage `json:"message,omitempty"`
}

// DecodeInbound parses and validates one client frame. Unknown event names and
// missing room fields are rejected here so no component downstream ever sees a
// half-formed event.
func DecodeInbound(data []byte) (Inbound, error) {
	var raw rawInbound
	if err := json.Unmarshal(data, &raw); err != nil {
		return Inbound{}, apperr.Validation("event", "malformed frame: "+err.Error())
	}
	if raw.WorkspaceID == "" || raw.ChannelID == "" {
		return Inbound{}, apperr.Validation("event", "workspaceId and channelId are required")
	}

	switch raw.Event {
	case EventJoinChannel:
		return Inbound{Join: &JoinChannel{WorkspaceID: raw.WorkspaceID, ChannelID: raw.ChannelID}}, nil
	case EventLeaveChannel:
		return Inbound{Leave: &LeaveChannel{WorkspaceID: raw.WorkspaceID, ChannelID: raw.ChannelID}}, nil
	case EventNewMessage:
		if len(raw.Message) == 0 {
			return Inbound{}, apperr.Validation("message", "payload is required")
		}
		var id struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw.Message, &id); err != nil || id.ID == "" {
			return Inbound{}, apperr.Validation("message", "payload must carry a message id")
		}
		return Inbound{Message: &NewMessage{
			WorkspaceID: raw.WorkspaceID,
			ChannelID:   raw.ChannelID,
			MessageID:   id.ID,
			Payload:     raw.Message,
		}}, nil
	case EventTyping:
		return Inbound{Typing: &TypingSignal{WorkspaceID: raw.WorkspaceID, ChannelID: raw.ChannelID}}, nil
	case EventStopTyping:
		return Inbound{Stop: &TypingSignal{WorkspaceID: raw.WorkspaceID, ChannelID: raw.ChannelID}}, nil
	default:
		return Inbound{}, apperr.Validation("event", fmt.Sprintf("unknown event %q", raw.Event))
	}
}

// UserRef is the payload of typing push events.
type UserRef struct {
	Name string `json:"name"`
}

type typingEvent struct {
	Event string  `json:"event"`
	User  UserRef `json:"user"`
}

type messageEvent struct {
	Event    string          `json:"event"`
	Envelope Envelope        `json:"envelope"`
	Message  json.RawMessage `json:"message"`
}
