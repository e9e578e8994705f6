package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/interfaces"
)

func TestPublishSync_DeliversToAllSubscribers(t *testing.T) {
	s := NewService(arbor.NewLogger())

	var mu sync.Mutex
	got := 0
	handler := func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		got++
		mu.Unlock()
		return nil
	}

	if _, err := s.Subscribe(interfaces.EventSimProgress, handler); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := s.Subscribe(interfaces.EventSimProgress, handler); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := s.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventSimProgress, JobID: "sim-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got != 2 {
		t.Fatalf("expected 2 deliveries, got %d", got)
	}
}

func TestPublishSync_ReportsHandlerErrors(t *testing.T) {
	s := NewService(arbor.NewLogger())

	if _, err := s.Subscribe(interfaces.EventJobStatusChange, func(context.Context, interfaces.Event) error {
		return errors.New("sink unavailable")
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := s.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventJobStatusChange}); err == nil {
		t.Fatal("expected error from failing handler")
	}
}

func TestUnsubscribe_ByID(t *testing.T) {
	s := NewService(arbor.NewLogger())

	called := false
	id, err := s.Subscribe(interfaces.EventLogEntry, func(context.Context, interfaces.Event) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := s.Unsubscribe(interfaces.EventLogEntry, id); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	if err := s.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventLogEntry}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if called {
		t.Fatal("handler ran after unsubscribe")
	}

	if err := s.Unsubscribe(interfaces.EventLogEntry, id); err == nil {
		t.Fatal("expected error for unknown subscription ID")
	}
}

func TestPublish_Async(t *testing.T) {
	s := NewService(arbor.NewLogger())

	done := make(chan struct{})
	if _, err := s.Subscribe(interfaces.EventSimProgress, func(context.Context, interfaces.Event) error {
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := s.Publish(context.Background(), interfaces.Event{Type: interfaces.EventSimProgress}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler never ran")
	}
}
