package events

import (
	"sync"
	"sync/atomic"
)

// Bus is an in-process publish/subscribe dispatcher. Publish never
// blocks: a subscriber whose buffer is full misses the event and the
// drop is counted. The cache-owning managers are the only publishers.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscription

	dropped atomic.Int64
}

type subscription struct {
	ch    chan Event
	types map[Type]struct{} // nil means all types
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscription)}
}

// Subscribe registers interest in the given event types; with no types
// it receives everything. The returned cancel func must be called to
// release the subscription, after which the channel is closed.
func (b *Bus) Subscribe(buffer int, types ...Type) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	sub := &subscription{ch: make(chan Event, buffer)}
	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers ev to every matching subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.types != nil {
			if _, ok := sub.types[ev.Type]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close drops every subscription and closes its channel. Publishing on
// a closed bus is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Dropped returns the number of events lost to full subscriber buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
