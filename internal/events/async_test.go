package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type funcPublisher struct {
	PublishFunc func(ctx context.Context, ev Event) error
}

func (f funcPublisher) Publish(ctx context.Context, ev Event) error {
	return f.PublishFunc(ctx, ev)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAsyncPublisher_PublishDoesNotWaitForBroker(t *testing.T) {
	release := make(chan struct{})
	delivered := make(chan Event, 1)
	p := NewAsyncPublisher(funcPublisher{PublishFunc: func(ctx context.Context, ev Event) error {
		<-release
		delivered <- ev
		return nil
	}}, AsyncConfig{Buffer: 4}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	start := time.Now()
	if err := p.Publish(context.Background(), Event{ID: "e1"}); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Publish took %s while broker was blocked", elapsed)
	}

	close(release)
	select {
	case ev := <-delivered:
		if ev.ID != "e1" {
			t.Fatalf("delivered %q, want e1", ev.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	cctx, ccancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer ccancel()
	if err := p.Close(cctx); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestAsyncPublisher_RetriesUntilDelivered(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	p := NewAsyncPublisher(funcPublisher{PublishFunc: func(ctx context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return errors.New("broker unavailable")
		}
		return nil
	}}, AsyncConfig{Buffer: 1, MaxAttempts: 3, RetryDelay: time.Millisecond}, discardLogger())

	go p.Run(context.Background())
	if err := p.Publish(context.Background(), Event{ID: "e1"}); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestAsyncPublisher_GivesUpAfterMaxAttempts(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	p := NewAsyncPublisher(funcPublisher{PublishFunc: func(ctx context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("broker unavailable")
	}}, AsyncConfig{Buffer: 2, MaxAttempts: 2, RetryDelay: time.Millisecond}, discardLogger())

	go p.Run(context.Background())
	_ = p.Publish(context.Background(), Event{ID: "e1"})
	_ = p.Publish(context.Background(), Event{ID: "e2"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 4 {
		t.Fatalf("calls = %d, want 2 attempts for each of 2 events", calls)
	}
}

func TestAsyncPublisher_QueueFull(t *testing.T) {
	p := NewAsyncPublisher(funcPublisher{PublishFunc: func(ctx context.Context, ev Event) error {
		return nil
	}}, AsyncConfig{Buffer: 1}, discardLogger())

	// Run is not started, so the first event stays queued.
	if err := p.Publish(context.Background(), Event{ID: "e1"}); err != nil {
		t.Fatalf("first Publish error: %v", err)
	}
	if err := p.Publish(context.Background(), Event{ID: "e2"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second Publish err = %v, want ErrQueueFull", err)
	}
}

func TestAsyncPublisher_CloseDrainsAndRejectsLatePublish(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	p := NewAsyncPublisher(funcPublisher{PublishFunc: func(ctx context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.ID)
		return nil
	}}, AsyncConfig{Buffer: 8}, discardLogger())

	for _, id := range []string{"e1", "e2", "e3"} {
		if err := p.Publish(context.Background(), Event{ID: id}); err != nil {
			t.Fatalf("Publish(%s) error: %v", id, err)
		}
	}
	go p.Run(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := p.Close(ctx); err != nil {
		t.Fatalf("second Close error: %v", err)
	}

	mu.Lock()
	if len(got) != 3 || got[0] != "e1" || got[2] != "e3" {
		t.Fatalf("delivered = %v, want [e1 e2 e3]", got)
	}
	mu.Unlock()

	if err := p.Publish(context.Background(), Event{ID: "late"}); !errors.Is(err, ErrPublisherClosed) {
		t.Fatalf("Publish after Close err = %v, want ErrPublisherClosed", err)
	}
}
