package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

// Ensure EventBus implements the interface.
var _ driving.EventStream = (*EventBus)(nil)

// subscriber is one registered observer. Its queue is unbounded: an
// already-registered subscriber never loses an event, no matter how
// slowly it consumes.
type subscriber struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []domain.Event
	closed bool
}

func newSubscriber() *subscriber {
	s := &subscriber{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// push appends an event to the private queue and wakes the pump.
func (s *subscriber) push(e domain.Event) {
	s.mu.Lock()
	if !s.closed {
		s.queue = append(s.queue, e)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

// next blocks until an event is available or the subscriber is closed.
func (s *subscriber) next() (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return domain.Event{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, true
}

// close wakes the pump and discards any undelivered events.
func (s *subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.cond.Broadcast()
	s.mu.Unlock()
}

// EventBus is the in-process publish/subscribe broadcaster with a durable
// ordered trace. Each instance is independent, so tests can construct
// isolated buses; a single mutex guards the trace, the subscriber
// registry and the latest-session slot.
type EventBus struct {
	mu     sync.Mutex
	trace  []domain.Event
	subs   map[uint64]*subscriber
	nextID uint64
	latest *domain.SessionSummary
}

// NewEventBus creates an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[uint64]*subscriber),
	}
}

// Publish assigns a timestamp if the event has none, appends the event to
// the trace and delivers it to every currently-registered subscriber.
// Both happen under the bus lock, so per-subscriber delivery order always
// matches global publish order even with concurrent publishers.
func (b *EventBus) Publish(event domain.Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	b.mu.Lock()
	b.trace = append(b.trace, event)
	for _, sub := range b.subs {
		sub.push(event)
	}
	b.mu.Unlock()
}

// Subscribe registers a new observer and returns its private channel.
// The observer receives every event published after registration, in
// publish order, exactly once. Cancelling ctx unsubscribes, discarding
// any undelivered events; they remain available via Trace.
func (b *EventBus) Subscribe(ctx context.Context) <-chan domain.Event {
	sub := newSubscriber()

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	// Unsubscribe on context cancellation so dead observers do not
	// accumulate queued events forever.
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.close()
	}()

	out := make(chan domain.Event)
	go func() {
		defer close(out)
		for {
			e, ok := sub.next()
			if !ok {
				return
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Trace returns a snapshot copy of all events published so far, in order.
// Safe to call concurrently with ongoing publishes.
func (b *EventBus) Trace() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make([]domain.Event, len(b.trace))
	copy(snapshot, b.trace)
	return snapshot
}

// LatestSession returns the most recently stored session summary, or nil
// if no run has completed yet. The returned value must be treated as
// immutable.
func (b *EventBus) LatestSession() *domain.SessionSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// SetLatestSession stores a completed run's summary. Single slot, last
// write wins.
func (b *EventBus) SetLatestSession(summary *domain.SessionSummary) {
	b.mu.Lock()
	b.latest = summary
	b.mu.Unlock()
}

// SubscriberCount returns the number of registered subscribers, for
// diagnostics.
func (b *EventBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
