package eventbus

import (
	"context"
	"sync"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
)

type Handler func(ctx context.Context, ev domain.Event)

// MemoryBus delivers events in-process to subscribers in publish order and
// keeps a copy of everything published.
type MemoryBus struct {
	mu        sync.Mutex
	handlers  []Handler
	published []domain.Event
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish records ev and then calls the subscribers outside the lock, so a
// handler may publish or read Published.
func (b *MemoryBus) Publish(ctx context.Context, ev domain.Event) error {
	b.mu.Lock()
	b.published = append(b.published, ev)
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	return nil
}

func (b *MemoryBus) Published() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Event(nil), b.published...)
}
