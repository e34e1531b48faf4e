package message

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"ylack/internal/apperr"
	"ylack/internal/metrics"
)

const DefaultHistoryLimit = 50

// Store is the durable persistence collaborator. All transactional concerns
// live behind it; this service treats each call as atomic.
type Store interface {
	CreateMessage(ctx context.Context, m *Message) (*Message, error)
	GetMessage(ctx context.Context, id, channelID, workspaceID string) (*Message, error)
	ListMessages(ctx context.Context, channelID, workspaceID string, limit int) ([]*Message, error)
}

// Broadcaster is the room transport. Delivery is fire-and-forget; an error
// here never unwinds a successful durable write.
type Broadcaster interface {
	BroadcastMessage(workspaceID, channelID, canonicalID string, message any) error
}

type SubmitInput struct {
	Content     string
	ChannelID   string
	WorkspaceID string
	AuthorID    string
	ReplyToID   *string
}

// Service is the message delivery pipeline: durable write first, then a room
// broadcast of the hydrated row.
type Service struct {
	store     Store
	transport Broadcaster
	cache     *HistoryCache
}

func NewService(store Store, transport Broadcaster, cache *HistoryCache) *Service {
	return &Service{store: store, transport: transport, cache: cache}
}

// Submit validates, persists, broadcasts and returns the persisted message.
// Persistence failure aborts everything; broadcast failure is logged and
// swallowed because the durable write is already the source of truth.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Message, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validation("content", "must not be empty")
	}

	if in.ReplyToID != nil && *in.ReplyToID != "" {
		// The reply target must resolve inside the same channel.
		if _, err := s.store.GetMessage(ctx, *in.ReplyToID, in.ChannelID, in.WorkspaceID); err != nil {
			return nil, err
		}
	} else {
		in.ReplyToID = nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	m, err := s.store.CreateMessage(ctx, &Message{
		ID:          id.String(),
		Content:     in.Content,
		UserID:      in.AuthorID,
		ChannelID:   in.ChannelID,
		WorkspaceID: in.WorkspaceID,
		ReplyToID:   in.ReplyToID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	metrics.MessagesSubmittedTotal.Inc()
	s.cache.Invalidate(ctx, in.ChannelID, in.WorkspaceID)

	if err := s.transport.BroadcastMessage(m.WorkspaceID, m.ChannelID, m.ID, m); err != nil {
		// Members that missed the push pick the message up on their next list.
		log.Printf("message: broadcast failed for %s: %v", m.ID, err)
	}
	return m, nil
}

// List returns channel history oldest first, serving from the redis cache when
// a fresh window is available.
func (s *Service) List(ctx context.Context, channelID, workspaceID string, limit int) ([]*Message, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultHistoryLimit
	}
	if cached, ok := s.cache.Get(ctx, channelID, workspaceID, limit); ok {
		return cached, nil
	}
	messages, err := s.store.ListMessages(ctx, channelID, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, channelID, workspaceID, limit, messages)
	return messages, nil
}
