package coach

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownStore bounds per-session message rate at the supervisor boundary.
type CooldownStore interface {
	// Acquire returns false while the session is still cooling down.
	Acquire(ctx context.Context, sessionID string) (bool, error)
}

// RedisCooldown implements CooldownStore with a SETNX key that expires on its
// own. No sweeper needed, and it stays correct across process instances.
type RedisCooldown struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCooldown(client *redis.Client, ttl time.Duration) *RedisCooldown {
	if client == nil {
		panic("coach: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &RedisCooldown{client: client, ttl: ttl}
}

func (c *RedisCooldown) Acquire(ctx context.Context, sessionID string) (bool, error) {
	return c.client.SetNX(ctx, "coach:cooldown:"+sessionID, 1, c.ttl).Result()
}
