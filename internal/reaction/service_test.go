package reaction

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ylack/internal/apperr"
)

// fakeStore keeps the multiset in a slice: append on add, remove the first
// match on delete, exactly like the row store behaves.
type fakeStore struct {
	mu   sync.Mutex
	rows []*Reaction
}

func (s *fakeStore) AddReaction(ctx context.Context, re *Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *re
	stored.Username = "user-" + re.UserID
	s.rows = append(s.rows, &stored)
	return nil
}

func (s *fakeStore) DeleteOneReaction(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, re := range s.rows {
		if re.MessageID == messageID && re.UserID == userID && re.Emoji == emoji {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ListReactions(ctx context.Context, messageID string) ([]*Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Reaction
	for _, re := range s.rows {
		if re.MessageID == messageID {
			out = append(out, re)
		}
	}
	return out, nil
}

func (s *fakeStore) CountReactions(ctx context.Context, messageID, emoji string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, re := range s.rows {
		if re.MessageID == messageID && re.Emoji == emoji {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CountReactionsByUser(ctx context.Context, messageID, emoji, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, re := range s.rows {
		if re.MessageID == messageID && re.Emoji == emoji && re.UserID == userID {
			n++
		}
	}
	return n, nil
}

type fakeMessages struct {
	known map[string]bool
}

func (m *fakeMessages) MessageExists(ctx context.Context, messageID, channelID, workspaceID string) (bool, error) {
	return m.known[messageID], nil
}

func newTestService() (*Service, *fakeStore) {
	store := &fakeStore{}
	messages := &fakeMessages{known: map[string]bool{"m1": true}}
	return NewService(store, messages), store
}

var ctx = context.Background()

func TestAddRejectsEmptyEmoji(t *testing.T) {
	svc, store := newTestService()

	_, err := svc.Add(ctx, "m1", "c", "w", "x", "  ")
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, store.rows)
}

func TestAddRejectsUnknownMessage(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Add(ctx, "nope", "c", "w", "x", "👍")
	var nfe *apperr.NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestMultisetAccumulates(t *testing.T) {
	svc, _ := newTestService()

	// N adds with zero removals: count == N, userCount == N, one users entry.
	var last *AddResult
	for i := 0; i < 5; i++ {
		var err error
		last, err = svc.Add(ctx, "m1", "c", "w", "x", "👍")
		require.NoError(t, err)
	}

	assert.Equal(t, 5, last.Count)
	assert.Equal(t, 5, last.UserCount)
	require.Len(t, last.Users, 1)
	assert.Equal(t, "x", last.Users[0].ID)
	assert.Equal(t, "added", last.Action)
}

func TestScenarioBAggregateAcrossUsers(t *testing.T) {
	svc, _ := newTestService()

	for i := 0; i < 3; i++ {
		_, err := svc.Add(ctx, "m1", "c", "w", "x", "👍")
		require.NoError(t, err)
	}
	_, err := svc.Add(ctx, "m1", "c", "w", "y", "👍")
	require.NoError(t, err)

	aggs, err := svc.List(ctx, "m1", "c", "w", "x")
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	g := aggs[0]
	assert.Equal(t, "👍", g.Emoji)
	assert.Equal(t, 4, g.Count)
	assert.Equal(t, 3, g.UserCount) // caller is x
	ids := []string{g.Users[0].ID, g.Users[1].ID}
	assert.ElementsMatch(t, []string{"x", "y"}, ids)
}

func TestScenarioCRemovalBound(t *testing.T) {
	svc, _ := newTestService()

	for i := 0; i < 3; i++ {
		_, err := svc.Add(ctx, "m1", "c", "w", "x", "👍")
		require.NoError(t, err)
	}
	_, err := svc.Add(ctx, "m1", "c", "w", "y", "👍")
	require.NoError(t, err)

	res, err := svc.Remove(ctx, "m1", "c", "w", "y", "👍")
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 0, res.UserCount)

	// y has nothing left: the second removal is a non-removal, count holds.
	res, err = svc.Remove(ctx, "m1", "c", "w", "y", "👍")
	require.NoError(t, err)
	assert.False(t, res.Removed)
	assert.Equal(t, 3, res.Count)

	// x's rows were never touched.
	res2, err := svc.Remove(ctx, "m1", "c", "w", "x", "👍")
	require.NoError(t, err)
	assert.True(t, res2.Removed)
	assert.Equal(t, 2, res2.Count)
	assert.Equal(t, 2, res2.UserCount)
}

func TestRemoveNeverTouchesOtherEmojis(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Add(ctx, "m1", "c", "w", "x", "👍")
	require.NoError(t, err)
	_, err = svc.Add(ctx, "m1", "c", "w", "x", "🎉")
	require.NoError(t, err)

	res, err := svc.Remove(ctx, "m1", "c", "w", "x", "👍")
	require.NoError(t, err)
	assert.True(t, res.Removed)

	aggs, err := svc.List(ctx, "m1", "c", "w", "x")
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, "🎉", aggs[0].Emoji)
}

func TestListEmptyIsValid(t *testing.T) {
	svc, _ := newTestService()

	aggs, err := svc.List(ctx, "m1", "c", "w", "x")
	require.NoError(t, err)
	assert.Empty(t, aggs)
}

func TestListUnknownMessage(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.List(ctx, "nope", "c", "w", "x")
	var nfe *apperr.NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestListGroupsMultipleEmojis(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Add(ctx, "m1", "c", "w", "x", "👍")
	require.NoError(t, err)
	_, err = svc.Add(ctx, "m1", "c", "w", "y", "🎉")
	require.NoError(t, err)
	_, err = svc.Add(ctx, "m1", "c", "w", "y", "👍")
	require.NoError(t, err)

	aggs, err := svc.List(ctx, "m1", "c", "w", "y")
	require.NoError(t, err)
	require.Len(t, aggs, 2)

	// First-seen emoji order is preserved.
	assert.Equal(t, "👍", aggs[0].Emoji)
	assert.Equal(t, 2, aggs[0].Count)
	assert.Equal(t, 1, aggs[0].UserCount)
	assert.Equal(t, "🎉", aggs[1].Emoji)
	assert.Equal(t, 1, aggs[1].Count)
	assert.Equal(t, 1, aggs[1].UserCount)
}

func TestConcurrentAddsBothLand(t *testing.T) {
	svc, store := newTestService()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := svc.Add(ctx, "m1", "c", "w", user, "👍")
			assert.NoError(t, err)
		}(map[int]string{0: "x", 1: "y"}[i])
	}
	wg.Wait()

	// Independent, non-transactional appends: both rows exist.
	n, err := store.CountReactions(ctx, "m1", "👍")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
