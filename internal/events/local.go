package events

import (
	"context"
	"log/slog"
	"sync"
)

// Bus delivers events synchronously to in-process handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

func NewBus() *Bus {
	return &Bus{logger: slog.Default().With("component", "event-bus")}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			b.logger.Error("event handler failed", "type", e.Type, "doc_id", e.DocumentID, "error", err)
		}
	}
}
