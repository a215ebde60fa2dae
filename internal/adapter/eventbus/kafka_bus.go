package eventbus

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBus writes each event to its mapped topic, or the default topic,
// keyed by the inventory ID.
type KafkaBus struct {
	writer       messageWriter
	defaultTopic string
	topicByEvent map[string]string
}

func NewKafkaBus(brokers []string, defaultTopic string, topicByEvent map[string]string) (*KafkaBus, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka bus requires at least one broker")
	}
	if defaultTopic == "" {
		return nil, fmt.Errorf("kafka bus requires a default topic")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newKafkaBus(w, defaultTopic, topicByEvent), nil
}

func newKafkaBus(w messageWriter, defaultTopic string, topicByEvent map[string]string) *KafkaBus {
	return &KafkaBus{writer: w, defaultTopic: defaultTopic, topicByEvent: topicByEvent}
}

func (b *KafkaBus) Publish(ctx context.Context, ev domain.Event) error {
	env, data, err := Encode(ev)
	if err != nil {
		return err
	}

	topic := b.defaultTopic
	if mapped, ok := b.topicByEvent[env.EventType]; ok && mapped != "" {
		topic = mapped
	}

	err = b.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(env.Key()),
		Value: data,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(env.EventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("write %s to %s: %w", env.EventType, topic, err)
	}
	return nil
}

func (b *KafkaBus) Close() error {
	return b.writer.Close()
}
