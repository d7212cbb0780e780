package events

import (
	"context"
	"log/slog"
	"sync"
)

const subscriberBuffer = 16

type localBroker struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan Event
}

// NewLocalBroker creates an in-process Broker. Slow subscribers lose events
// rather than block publishers.
func NewLocalBroker() Broker {
	return &localBroker{subs: make(map[string]map[int]chan Event)}
}

func (b *localBroker) Publish(ctx context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			slog.WarnContext(ctx, "dropping event for slow subscriber", "session.id", ev.SessionID, "subscriber", id, "event.type", ev.Type)
		}
	}
	return nil
}

func (b *localBroker) Subscribe(ctx context.Context, sessionID string) (<-chan Event, func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[int]chan Event)
	}
	b.subs[sessionID][id] = ch
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[sessionID], id)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			close(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel, nil
}
