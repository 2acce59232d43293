package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/config"
)

// NewRedisClient connects to the redis backing the mail outbox, the realtime
// bridge and the resend throttle. name shows up in CLIENT LIST.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, name string) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is disabled")
	}
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "lostfound-" + name,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return client, nil
}
