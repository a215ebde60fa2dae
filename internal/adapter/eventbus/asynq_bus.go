package eventbus

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
)

const taskPrefix = "event:"

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// AsynqBus hands events to asynq workers as tasks named "event:<EventName>".
type AsynqBus struct {
	client enqueuer
	queue  string
}

func NewAsynqBus(redisAddr, queue string) *AsynqBus {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	return newAsynqBus(client, queue)
}

func newAsynqBus(client enqueuer, queue string) *AsynqBus {
	if queue == "" {
		queue = "default"
	}
	return &AsynqBus{client: client, queue: queue}
}

func TaskType(eventName string) string {
	return taskPrefix + eventName
}

func (b *AsynqBus) Publish(ctx context.Context, ev domain.Event) error {
	env, data, err := Encode(ev)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskType(env.EventType), data)
	if _, err := b.client.EnqueueContext(ctx, task, asynq.Queue(b.queue), asynq.TaskID(env.EventID)); err != nil {
		return fmt.Errorf("enqueue %s: %w", env.EventType, err)
	}
	return nil
}

func (b *AsynqBus) Close() error {
	return b.client.Close()
}
