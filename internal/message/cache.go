package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const historyTTL = 30 * time.Second

// HistoryCache caches recent channel history in redis so reconnecting clients
// hammering list endpoints don't all hit Postgres. A cache problem is never an
// error to the caller; it just means a store read.
type HistoryCache struct {
	client *redis.Client
}

func NewHistoryCache(client *redis.Client) *HistoryCache {
	return &HistoryCache{client: client}
}

func historyKey(channelID, workspaceID string, limit int) string {
	return fmt.Sprintf("history:workspace:%s:channel:%s:%d", workspaceID, channelID, limit)
}

func (c *HistoryCache) Get(ctx context.Context, channelID, workspaceID string, limit int) ([]*Message, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, historyKey(channelID, workspaceID, limit)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("message: history cache read failed: %v", err)
		}
		return nil, false
	}
	var messages []*Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, false
	}
	return messages, true
}

func (c *HistoryCache) Set(ctx context.Context, channelID, workspaceID string, limit int, messages []*Message) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, historyKey(channelID, workspaceID, limit), raw, historyTTL).Err(); err != nil {
		log.Printf("message: history cache write failed: %v", err)
	}
}

// Invalidate drops every cached window for the channel after a new message.
func (c *HistoryCache) Invalidate(ctx context.Context, channelID, workspaceID string) {
	if c == nil || c.client == nil {
		return
	}
	pattern := fmt.Sprintf("history:workspace:%s:channel:%s:*", workspaceID, channelID)
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("message: history cache invalidate failed: %v", err)
	}
}
