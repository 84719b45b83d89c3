package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docaccess/internal/domain"
)

func newTestBus() *Bus {
	return New(nil)
}

func newEvent(t domain.EventType) domain.Event {
	return domain.Event{Type: t, Timestamp: time.Now()}
}

func TestPublishSubscribe(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventDocumentAdded, func(_ context.Context, e domain.Event) {
		if e.Type == domain.EventDocumentAdded {
			got.Add(1)
		}
	})

	bus.Publish(context.Background(), newEvent(domain.EventDocumentAdded))
	bus.Publish(context.Background(), newEvent(domain.EventDocumentRemoved))
	bus.Close() // drain
	if got.Load() != 1 {
		t.Fatalf("expected 1, got %d", got.Load())
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventSessionChanged))
	bus.Publish(context.Background(), newEvent(domain.EventPreferencesChanged))
	bus.Close()

	if got.Load() != 2 {
		t.Fatalf("expected 2, got %d", got.Load())
	}
}

func TestDeliveryIsOrderedPerSubscriber(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var mu sync.Mutex
	var seen []domain.EventType
	bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	want := []domain.EventType{
		domain.EventProcessingStarted,
		domain.EventDocumentAdded,
		domain.EventDocumentSelected,
		domain.EventProcessingCompleted,
	}
	for _, et := range want {
		bus.Publish(context.Background(), newEvent(et))
	}
	bus.Drain()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("got %v, want %v", seen, want)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	var got atomic.Int32
	unsub := bus.Subscribe(domain.EventChatMessage, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventChatMessage))
	bus.Drain()
	unsub()
	unsub() // idempotent
	bus.Publish(context.Background(), newEvent(domain.EventChatMessage))
	bus.Drain()

	if got.Load() != 1 {
		t.Fatalf("expected 1 after unsubscribe, got %d", got.Load())
	}
}

func TestConcurrentPublish(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventDocumentAdded, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), newEvent(domain.EventDocumentAdded))
		}()
	}
	wg.Wait()
	bus.Close()

	if got.Load() != 100 {
		t.Fatalf("expected 100, got %d", got.Load())
	}
}

func TestPanicRecovery(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventDocumentAdded, func(_ context.Context, _ domain.Event) {
		panic("boom")
	})
	bus.Subscribe(domain.EventDocumentAdded, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventDocumentAdded))
	bus.Publish(context.Background(), newEvent(domain.EventDocumentAdded))
	bus.Close()

	if got.Load() != 2 {
		t.Fatalf("expected 2 deliveries to the healthy handler, got %d", got.Load())
	}
}

func TestHandlerContextOutlivesPublisher(t *testing.T) {
	bus := newTestBus()

	ctx, cancel := context.WithCancel(context.Background())
	var ctxErr atomic.Value
	bus.SubscribeAll(func(hctx context.Context, _ domain.Event) {
		time.Sleep(10 * time.Millisecond)
		if err := hctx.Err(); err != nil {
			ctxErr.Store(err)
		}
	})

	bus.Publish(ctx, newEvent(domain.EventSessionChanged))
	cancel()
	bus.Close()

	if v := ctxErr.Load(); v != nil {
		t.Fatalf("handler context was cancelled: %v", v)
	}
}

func TestCloseDrainsAndRejectsNew(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventDocumentAdded, func(_ context.Context, _ domain.Event) {
		time.Sleep(50 * time.Millisecond)
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventDocumentAdded))
	bus.Close() // blocks until the handler finishes

	if got.Load() != 1 {
		t.Fatalf("expected handler to have run, got %d", got.Load())
	}

	bus.Publish(context.Background(), newEvent(domain.EventDocumentAdded))
	time.Sleep(20 * time.Millisecond)
	if got.Load() != 1 {
		t.Fatalf("expected no delivery after close, got %d", got.Load())
	}
	bus.Close() // idempotent
}
