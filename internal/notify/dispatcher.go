package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smallnest/chanx"
)

const sendTimeout = 5 * time.Second

// Dispatcher queues events in an unbounded buffer and fans them out to its
// sinks on a single background goroutine, in the order they were raised.
// Sink failures are logged and dropped.
type Dispatcher struct {
	sinks  []Sink
	queue  *chanx.UnboundedChan[Event]
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	now    func() time.Time
}

// NewDispatcher starts a dispatcher delivering to sinks.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sinks:  sinks,
		queue:  chanx.NewUnboundedChan[Event](ctx, 64),
		cancel: cancel,
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "notify"),
		now:    time.Now,
	}
	go d.run(ctx)
	return d
}

// Notify enqueues e. Events raised after Close are dropped.
func (d *Dispatcher) Notify(_ context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = d.now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Debug("event dropped after close", "type", e.Type)
		return
	}
	d.queue.In <- e
}

// Close stops accepting events and waits for queued ones to be delivered.
// If ctx ends first, remaining events are abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return nil
	}
	d.closed = true
	close(d.queue.In)
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-d.queue.Out:
			if !ok {
				return
			}
			d.deliver(ctx, e)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	for _, s := range d.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := s.Send(sendCtx, e)
		cancel()
		if err != nil {
			d.logger.Warn("event delivery failed", "sink", s.Name(), "type", e.Type, "error", err)
		}
	}
}
