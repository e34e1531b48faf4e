package message

import "time"

// Author is the denormalized user info carried on every message so clients
// never need a second lookup to render it.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ReplyPreview is the slice of the replied-to message clients render inline.
type ReplyPreview struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	User    Author `json:"user"`
}

// Message is immutable once created. The content is rich-text markup and is an
// opaque blob to this server.
type Message struct {
	ID          string        `json:"id"`
	Content     string        `json:"content"`
	UserID      string        `json:"userId"`
	ChannelID   string        `json:"channelId"`
	WorkspaceID string        `json:"workspaceId"`
	ReplyToID   *string       `json:"replyToId,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	User        Author        `json:"user"`
	ReplyTo     *ReplyPreview `json:"replyTo,omitempty"`
}
