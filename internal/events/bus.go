package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultBusCapacity = 256
	deliveryTimeout    = 5 * time.Second
)

// Bus decouples producers from slow subscribers. Publish never blocks: when
// the buffer is full the event is dropped and counted.
type Bus struct {
	events chan Event

	mu          sync.RWMutex
	subscribers []Publisher
	dropped     int64
}

func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = defaultBusCapacity
	}
	return &Bus{events: make(chan Event, capacity)}
}

func (b *Bus) Subscribe(p Publisher) {
	if p == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, p)
}

func (b *Bus) Publish(_ context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	select {
	case b.events <- event:
	default:
		b.mu.Lock()
		b.dropped++
		dropped := b.dropped
		b.mu.Unlock()
		slog.Warn("event bus full; dropping event", "kind", event.Kind, "session_id", event.SessionID, "dropped_total", dropped)
	}
	return nil
}

func (b *Bus) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Run delivers events in order to every subscriber until ctx is done.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.events:
			b.deliver(ctx, event)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, event Event) {
	b.mu.RLock()
	subscribers := append([]Publisher(nil), b.subscribers...)
	b.mu.RUnlock()
	for _, s := range subscribers {
		deliverCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		if err := s.Publish(deliverCtx, event); err != nil {
			slog.Warn("event subscriber failed", "error", err, "kind", event.Kind, "session_id", event.SessionID)
		}
		cancel()
	}
}
