package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull       = errors.New("event queue full")
	ErrPublisherClosed = errors.New("event publisher closed")
)

type AsyncConfig struct {
	Buffer      int
	MaxAttempts int
	RetryDelay  time.Duration
}

// AsyncPublisher queues events in memory and hands them to the wrapped
// publisher from Run, so request handlers never wait on the broker.
// Queued events are lost if the process exits before they are drained.
type AsyncPublisher struct {
	next Publisher
	cfg  AsyncConfig
	log  *slog.Logger

	queue chan Event
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsyncPublisher(next Publisher, cfg AsyncConfig, log *slog.Logger) *AsyncPublisher {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	return &AsyncPublisher{
		next:  next,
		cfg:   cfg,
		log:   log,
		queue: make(chan Event, cfg.Buffer),
		done:  make(chan struct{}),
	}
}

// Publish enqueues ev without blocking.
func (p *AsyncPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued events until Close is called and the queue is empty.
// Cancelling ctx abandons retries for the event in flight.
func (p *AsyncPublisher) Run(ctx context.Context) {
	defer close(p.done)
	for ev := range p.queue {
		p.deliver(ctx, ev)
	}
}

func (p *AsyncPublisher) deliver(ctx context.Context, ev Event) {
	delay := p.cfg.RetryDelay
	var err error
retry:
	for attempt := 1; ; attempt++ {
		if err = p.next.Publish(ctx, ev); err == nil {
			return
		}
		if attempt >= p.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			err = errors.Join(err, ctx.Err())
			break retry
		case <-time.After(delay):
			delay *= 2
		}
	}
	p.log.Error(
		"event publish failed",
		slog.Any("err", err),
		slog.String("event_id", ev.ID),
		slog.String("event_type", string(ev.Type)),
		slog.String("appointment_id", ev.AppointmentID),
	)
}

// Close stops accepting events and waits for Run to drain the queue or for
// ctx to expire. Run must have been started.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
