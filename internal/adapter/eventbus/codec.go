// Package eventbus holds the EventBus adapters events are flushed to after commit.
package eventbus

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the broker representation of a domain event.
type Envelope struct {
	EventID     string              `json:"event_id"`
	EventType   string              `json:"event_type"`
	AggregateID int64               `json:"aggregate_id"`
	OccurredAt  time.Time           `json:"occurred_at"`
	Payload     jsoniter.RawMessage `json:"payload"`
}

func NewEnvelope(ev domain.Event) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", ev.EventName(), err)
	}
	return Envelope{
		EventID:     uuid.NewString(),
		EventType:   ev.EventName(),
		AggregateID: ev.AggregateID(),
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}, nil
}

func (e Envelope) Key() string {
	return strconv.FormatInt(e.AggregateID, 10)
}

func Encode(ev domain.Event) (Envelope, []byte, error) {
	env, err := NewEnvelope(ev)
	if err != nil {
		return Envelope{}, nil, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return env, data, nil
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}

// DecodeEvent rebuilds the typed domain event carried by env.
func DecodeEvent(env Envelope) (domain.Event, error) {
	switch env.EventType {
	case domain.EventWarehoused:
		var ev domain.WarehousedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.EventType, err)
		}
		return ev, nil
	case domain.EventInventoryCanceled:
		var ev domain.InventoryCanceledEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.EventType, err)
		}
		return ev, nil
	}
	return nil, fmt.Errorf("unknown event type %q", env.EventType)
}
