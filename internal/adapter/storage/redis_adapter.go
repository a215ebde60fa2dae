package storage

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const sequenceKey = "inventory:seq"

// RedisAdapter allocates inventory IDs with INCR so several service instances
// can share one sequence.
type RedisAdapter struct {
	client *redis.Client
	key    string
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client, key: sequenceKey}
}

func (r *RedisAdapter) NextID(ctx context.Context) (int64, error) {
	return r.client.Incr(ctx, r.key).Result()
}

// SetSequence moves the sequence so the next ID is last+1.
func (r *RedisAdapter) SetSequence(ctx context.Context, last int64) error {
	return r.client.Set(ctx, r.key, last, 0).Err()
}
