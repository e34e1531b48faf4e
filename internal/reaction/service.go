package reaction

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"ylack/internal/apperr"
)

// Store is the durable multiset collaborator. add/remove are independent,
// non-transactional row operations; two concurrent adds both append.
type Store interface {
	AddReaction(ctx context.Context, re *Reaction) error
	DeleteOneReaction(ctx context.Context, messageID, userID, emoji string) (bool, error)
	ListReactions(ctx context.Context, messageID string) ([]*Reaction, error)
	CountReactions(ctx context.Context, messageID, emoji string) (int, error)
	CountReactionsByUser(ctx context.Context, messageID, emoji, userID string) (int, error)
}

// MessageResolver checks that the target message exists inside the caller's
// channel before any reaction operation.
type MessageResolver interface {
	MessageExists(ctx context.Context, messageID, channelID, workspaceID string) (bool, error)
}

// Service recomputes per-message, per-emoji aggregates from the multiset after
// every mutation rather than maintaining counters.
type Service struct {
	store    Store
	messages MessageResolver
}

func NewService(store Store, messages MessageResolver) *Service {
	return &Service{store: store, messages: messages}
}

// Add appends one multiset row and returns the recomputed aggregate for the
// emoji. It never merges with or checks for an existing row.
func (s *Service) Add(ctx context.Context, messageID, channelID, workspaceID, userID, emoji string) (*AddResult, error) {
	if err := s.check(ctx, messageID, channelID, workspaceID, emoji); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	if err := s.store.AddReaction(ctx, &Reaction{
		ID:        id.String(),
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	agg, err := s.aggregate(ctx, messageID, emoji, userID)
	if err != nil {
		return nil, err
	}
	return &AddResult{Aggregate: *agg, Action: "added"}, nil
}

// Remove deletes at most one matching row. Removing from zero is not an error:
// the aggregate comes back unchanged with Removed=false.
func (s *Service) Remove(ctx context.Context, messageID, channelID, workspaceID, userID, emoji string) (*RemoveResult, error) {
	if err := s.check(ctx, messageID, channelID, workspaceID, emoji); err != nil {
		return nil, err
	}

	removed, err := s.store.DeleteOneReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}

	agg, err := s.aggregate(ctx, messageID, emoji, userID)
	if err != nil {
		return nil, err
	}
	return &RemoveResult{Aggregate: *agg, Removed: removed}, nil
}

// List groups the message's whole multiset by emoji, in first-seen emoji
// order, with per-caller userCount. A message with no reactions yields an
// empty slice, not an error.
func (s *Service) List(ctx context.Context, messageID, channelID, workspaceID, callerID string) ([]*Aggregate, error) {
	exists, err := s.messages.MessageExists(ctx, messageID, channelID, workspaceID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("message", messageID)
	}

	rows, err := s.store.ListReactions(ctx, messageID)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string]*Aggregate)
	seenUsers := make(map[string]map[string]struct{})

	for _, re := range rows {
		g, ok := groups[re.Emoji]
		if !ok {
			g = &Aggregate{Emoji: re.Emoji, Users: []UserRef{}}
			groups[re.Emoji] = g
			seenUsers[re.Emoji] = make(map[string]struct{})
			order = append(order, re.Emoji)
		}
		g.Count++
		if re.UserID == callerID {
			g.UserCount++
		}
		if _, dup := seenUsers[re.Emoji][re.UserID]; !dup {
			seenUsers[re.Emoji][re.UserID] = struct{}{}
			g.Users = append(g.Users, UserRef{ID: re.UserID, Name: re.Username})
		}
	}

	out := make([]*Aggregate, 0, len(order))
	for _, emoji := range order {
		out = append(out, groups[emoji])
	}
	return out, nil
}

func (s *Service) check(ctx context.Context, messageID, channelID, workspaceID, emoji string) error {
	if strings.TrimSpace(emoji) == "" {
		return apperr.Validation("emoji", "must not be empty")
	}
	exists, err := s.messages.MessageExists(ctx, messageID, channelID, workspaceID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("message", messageID)
	}
	return nil
}

// aggregate recomputes {count, userCount, users} for one emoji. The users list
// is de-duplicated by user identity while the counts keep every row.
func (s *Service) aggregate(ctx context.Context, messageID, emoji, userID string) (*Aggregate, error) {
	count, err := s.store.CountReactions(ctx, messageID, emoji)
	if err != nil {
		return nil, err
	}
	userCount, err := s.store.CountReactionsByUser(ctx, messageID, emoji, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListReactions(ctx, messageID)
	if err != nil {
		return nil, err
	}
	users := []UserRef{}
	seen := make(map[string]struct{})
	for _, re := range rows {
		if re.Emoji != emoji {
			continue
		}
		if _, dup := seen[re.UserID]; dup {
			continue
		}
		seen[re.UserID] = struct{}{}
		users = append(users, UserRef{ID: re.UserID, Name: re.Username})
	}

	return &Aggregate{Emoji: emoji, Count: count, UserCount: userCount, Users: users}, nil
}
