package bus

import (
	"context"
	"testing"
	"time"

	"main/internal/model"
	"main/pkg/exception"
)

func TestQueueFull(t *testing.T) {
	q := NewQueue(1)

	if err := q.TryPublish(model.Envelope{Type: "price_update"}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := q.TryPublish(model.Envelope{Type: "price_update"}); err != exception.ErrQueueFull {
		t.Fatalf("got %v want ErrQueueFull", err)
	}
}

func TestQueueClosed(t *testing.T) {
	q := NewQueue(4)
	q.Close()
	q.Close() // idempotent

	if err := q.TryPublish(model.Envelope{Type: "bot_status"}); err != exception.ErrQueueClosed {
		t.Fatalf("got %v want ErrQueueClosed", err)
	}
}

func TestQueueRunDrainsUntilClosed(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 3; i++ {
		if err := q.TryPublish(model.Envelope{Type: "price_update"}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	q.Close()

	count := 0
	done := make(chan struct{})
	go func() {
		q.Run(context.Background(), func(model.Envelope) { count++ })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
	if count != 3 {
		t.Fatalf("handled %d envelopes, want 3", count)
	}
}

func TestQueueCloseWhilePublishing(t *testing.T) {
	q := NewQueue(4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10000; i++ {
			_ = q.TryPublish(model.Envelope{Type: "price_update"})
		}
	}()

	q.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher did not finish")
	}

	if err := q.TryPublish(model.Envelope{Type: "price_update"}); err != exception.ErrQueueClosed {
		t.Fatalf("got %v want ErrQueueClosed", err)
	}
}

func TestQueueRunStopsOnContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(model.Envelope) {})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancel")
	}
}
