package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle enforces a per-(sender, conversation) cooldown between accepted
// messages. SET NX with the window as TTL is a single atomic check-and-set:
// two racing messages from the same sender cannot both win.
type Throttle struct {
	rdb     *redis.Client
	window  time.Duration
	timeout time.Duration
}

func NewThrottle(rdb *redis.Client, window, timeout time.Duration) *Throttle {
	if window <= 0 {
		window = time.Second
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &Throttle{rdb: rdb, window: window, timeout: timeout}
}

// Allow reports whether the sender may post in the conversation now. A false
// return has no side effects; a true return stamps the cooldown key.
func (t *Throttle) Allow(ctx context.Context, senderID, conversationID uint) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	key := fmt.Sprintf("throttle:%d:%d", senderID, conversationID)
	return t.rdb.SetNX(ctx, key, time.Now().UnixMilli(), t.window).Result()
}
