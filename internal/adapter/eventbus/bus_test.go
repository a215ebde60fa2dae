package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
)

func TestMemoryBus_PreservesOrder(t *testing.T) {
	bus := NewMemoryBus()
	var seen []string
	bus.Subscribe(func(ctx context.Context, ev domain.Event) {
		seen = append(seen, ev.EventName())
	})

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, domain.WarehousedEvent{ID: 1}))
	require.NoError(t, bus.Publish(ctx, domain.InventoryCanceledEvent{ID: 1}))

	assert.Equal(t, []string{domain.EventWarehoused, domain.EventInventoryCanceled}, seen)
	assert.Len(t, bus.Published(), 2)
}

func TestMemoryBus_HandlerCanUseBus(t *testing.T) {
	bus := NewMemoryBus()
	var seenCounts []int
	bus.Subscribe(func(ctx context.Context, ev domain.Event) {
		seenCounts = append(seenCounts, len(bus.Published()))
		if ev.EventName() == domain.EventWarehoused {
			_ = bus.Publish(ctx, domain.InventoryCanceledEvent{ID: ev.AggregateID()})
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Publish(context.Background(), domain.WarehousedEvent{ID: 3})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish from a handler blocked")
	}

	assert.Equal(t, []int{1, 2}, seenCounts)
	assert.Equal(t, []domain.Event{
		domain.WarehousedEvent{ID: 3},
		domain.InventoryCanceledEvent{ID: 3},
	}, bus.Published())
}

func TestRedisStreamBus_Publish(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	bus := NewRedisStreamBus(client, "", 0)

	require.NoError(t, bus.Publish(ctx, domain.WarehousedEvent{ID: 9}))
	require.NoError(t, bus.Publish(ctx, domain.InventoryCanceledEvent{ID: 9}))

	msgs, err := client.XRange(ctx, DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, domain.EventWarehoused, msgs[0].Values["event_type"])
	assert.Equal(t, domain.EventInventoryCanceled, msgs[1].Values["event_type"])

	env, err := Decode([]byte(msgs[0].Values["envelope"].(string)))
	require.NoError(t, err)
	assert.Equal(t, int64(9), env.AggregateID)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaBus_TopicRouting(t *testing.T) {
	w := &fakeWriter{}
	bus := newKafkaBus(w, "inventory", map[string]string{
		domain.EventInventoryCanceled: "inventory-canceled",
	})

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, domain.WarehousedEvent{ID: 5}))
	require.NoError(t, bus.Publish(ctx, domain.InventoryCanceledEvent{ID: 5}))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "inventory", w.msgs[0].Topic)
	assert.Equal(t, "inventory-canceled", w.msgs[1].Topic)
	assert.Equal(t, []byte("5"), w.msgs[0].Key)
	assert.Equal(t, "type", w.msgs[0].Headers[0].Key)
}

func TestKafkaBus_WriteError(t *testing.T) {
	bus := newKafkaBus(&fakeWriter{err: errors.New("broker down")}, "inventory", nil)

	err := bus.Publish(context.Background(), domain.WarehousedEvent{ID: 1})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewKafkaBus_Validation(t *testing.T) {
	_, err := NewKafkaBus(nil, "inventory", nil)
	assert.Error(t, err)

	_, err = NewKafkaBus([]string{"localhost:9092"}, "", nil)
	assert.Error(t, err)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (e *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (e *fakeEnqueuer) Close() error { return nil }

func TestAsynqBus_Publish(t *testing.T) {
	q := &fakeEnqueuer{}
	bus := newAsynqBus(q, "")

	require.NoError(t, bus.Publish(context.Background(), domain.WarehousedEvent{ID: 2}))

	require.Len(t, q.tasks, 1)
	assert.Equal(t, "event:Warehoused", q.tasks[0].Type())

	env, err := Decode(q.tasks[0].Payload())
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.AggregateID)
}
