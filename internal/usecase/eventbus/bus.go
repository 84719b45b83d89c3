package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"docaccess/internal/domain"
	"docaccess/internal/infra/logger"
)

type queued struct {
	ctx   context.Context
	event domain.Event
}

// subscriber owns a mailbox drained by its own goroutine, so each subscriber
// sees events in publish order and a slow handler only delays itself.
type subscriber struct {
	id        uint64
	eventType domain.EventType // empty for SubscribeAll
	handler   domain.EventHandler

	mu      sync.Mutex
	queue   []queued
	stopped bool
	wake    chan struct{}
	done    chan struct{}
	stop    sync.Once
}

func (s *subscriber) close() {
	s.stop.Do(func() { close(s.done) })
}

func (s *subscriber) matches(t domain.EventType) bool {
	return s.eventType == "" || s.eventType == t
}

// Bus is an in-process, goroutine-safe event bus with asynchronous,
// per-subscriber ordered delivery.
type Bus struct {
	mu      sync.RWMutex
	subs    []*subscriber
	nextID  atomic.Uint64
	pending sync.WaitGroup
	closed  atomic.Bool
	logger  *slog.Logger
}

// New creates an event bus.
func New(log *slog.Logger) *Bus {
	return &Bus{logger: logger.OrDiscard(log)}
}

// Publish queues event for every matching subscriber and returns immediately.
// Handlers receive a context that is not cancelled with ctx.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	if b.closed.Load() {
		return
	}
	ctx = context.WithoutCancel(ctx)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if s.matches(event.Type) {
			b.enqueue(s, queued{ctx: ctx, event: event})
		}
	}
}

func (b *Bus) enqueue(s *subscriber, q queued) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	b.pending.Add(1)
	s.queue = append(s.queue, q)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Subscribe registers a handler for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	return b.add(eventType, handler)
}

// SubscribeAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	return b.add("", handler)
}

func (b *Bus) add(eventType domain.EventType, handler domain.EventHandler) func() {
	if b.closed.Load() {
		return func() {}
	}
	s := &subscriber{
		id:        b.nextID.Add(1),
		eventType: eventType,
		handler:   handler,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	go b.run(s)

	return func() {
		b.mu.Lock()
		for i, other := range b.subs {
			if other.id == s.id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		s.close()
	}
}

func (b *Bus) run(s *subscriber) {
	for {
		select {
		case <-s.wake:
			b.deliverQueued(s)
		case <-s.done:
			s.mu.Lock()
			s.stopped = true
			s.mu.Unlock()
			b.deliverQueued(s)
			return
		}
	}
}

func (b *Bus) deliverQueued(s *subscriber) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		q := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		b.deliver(s, q)
		b.pending.Done()
	}
}

func (b *Bus) deliver(s *subscriber, q queued) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(q.event.Type),
				"panic", r,
			)
		}
	}()
	s.handler(q.ctx, q.event)
}

// Drain blocks until every event published before the call has been handled.
func (b *Bus) Drain() {
	b.pending.Wait()
}

// Close rejects further publishes, delivers everything already queued and
// stops all subscriber goroutines. Close is idempotent.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.pending.Wait()

	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for _, s := range subs {
		s.close()
	}
}

var _ domain.EventBus = (*Bus)(nil)
