package port

import (
	"context"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
)

type EventBus interface {
	// Publish hands an event to the broker. Delivery is at-least-once; callers do not retry.
	Publish(ctx context.Context, event domain.Event) error
}
