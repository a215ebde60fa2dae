package eventbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
)

const DefaultStream = "inventory-events"

type RedisStreamBus struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamBus(client *redis.Client, stream string, maxLen int64) *RedisStreamBus {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamBus{client: client, stream: stream, maxLen: maxLen}
}

func (b *RedisStreamBus) Publish(ctx context.Context, ev domain.Event) error {
	env, data, err := Encode(ev)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: b.stream,
		Values: map[string]any{
			"event_id":   env.EventID,
			"event_type": env.EventType,
			"envelope":   string(data),
		},
	}
	if b.maxLen > 0 {
		args.MaxLen = b.maxLen
		args.Approx = true
	}

	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", b.stream, err)
	}
	return nil
}
