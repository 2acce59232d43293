package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle admits one action per key per window across every replica.
type Throttle struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewThrottle(client *redis.Client, prefix string, window time.Duration) *Throttle {
	return &Throttle{client: client, prefix: prefix, window: window}
}

// Allow reports whether key may act now and starts its window if so.
func (t *Throttle) Allow(ctx context.Context, key string) (bool, error) {
	if t == nil || t.client == nil || t.window <= 0 {
		return true, nil
	}
	return t.client.SetNX(ctx, t.prefix+key, 1, t.window).Result()
}
