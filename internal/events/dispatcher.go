package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher publishes events to subscribed handlers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// MemoryBus delivers events synchronously, in subscription order, within the process.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[EventType][]EventHandler)}
}

// Publish runs every handler for the event type even when earlier ones fail, and
// returns all handler errors joined.
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	var errs []error
	for i, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler %d: %w", event.Type, i, err))
		}
	}
	return errors.Join(errs...)
}

func (b *MemoryBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// copy on write so Publish can iterate its snapshot without holding the lock
	next := make([]EventHandler, len(b.handlers[eventType]), len(b.handlers[eventType])+1)
	copy(next, b.handlers[eventType])
	b.handlers[eventType] = append(next, handler)
}
