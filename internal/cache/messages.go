package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/chat-gateway/internal/model"
)

// MessageCache keeps a bounded newest-first list of message snapshots per
// conversation. It is a read accelerator only: entries may be evicted or the
// whole key may be absent, and absence never means "no messages".
type MessageCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	limit   int64
	timeout time.Duration
}

func NewMessageCache(rdb *redis.Client, ttl time.Duration, limit int, timeout time.Duration) *MessageCache {
	if limit <= 0 {
		limit = 100
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &MessageCache{rdb: rdb, ttl: ttl, limit: int64(limit), timeout: timeout}
}

func (c *MessageCache) key(conversationID uint) string {
	return fmt.Sprintf("conversation:%d:messages", conversationID)
}

// PushFront mirrors one freshly persisted message: push to the head, trim to
// the cap, refresh the sliding expiry. The three commands are pipelined as one
// logical unit per key.
func (c *MessageCache) PushFront(ctx context.Context, conversationID uint, snap model.MessageSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	key := c.key(conversationID)
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, c.limit-1)
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns the cached snapshots newest-first. Entries that fail to
// decode are skipped rather than poisoning the whole read.
func (c *MessageCache) Recent(ctx context.Context, conversationID uint) ([]model.MessageSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vals, err := c.rdb.LRange(ctx, c.key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.MessageSnapshot, 0, len(vals))
	for _, v := range vals {
		var snap model.MessageSnapshot
		if err := json.Unmarshal([]byte(v), &snap); err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

// Backfill repopulates the cache from a database read. snaps must be
// oldest-first: each LPush moves an older entry below the newer ones, so the
// newest message ends at the head, matching the write path's convention.
func (c *MessageCache) Backfill(ctx context.Context, conversationID uint, snaps []model.MessageSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	values := make([]interface{}, 0, len(snaps))
	for _, snap := range snaps {
		payload, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		values = append(values, payload)
	}

	key := c.key(conversationID)
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, values...)
	pipe.LTrim(ctx, key, 0, c.limit-1)
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}
