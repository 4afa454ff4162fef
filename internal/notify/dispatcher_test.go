package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) got() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestDispatcher_DeliversInOrderThenCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{}
	d := NewDispatcher(sink)

	ctx := context.Background()
	for _, id := range []string{"b1", "b2", "b3"} {
		d.Notify(ctx, Event{Type: BidPlaced, ItemID: id})
	}
	if err := d.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := sink.got()
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, want := range []string{"b1", "b2", "b3"} {
		if got[i].ItemID != want {
			t.Errorf("event %d: expected %s, got %s", i, want, got[i].ItemID)
		}
		if got[i].OccurredAt.IsZero() {
			t.Errorf("event %d: expected OccurredAt to be stamped", i)
		}
	}
}

func TestDispatcher_SinkErrorDoesNotStopDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	failing := &recordingSink{err: errors.New("bus down")}
	healthy := &recordingSink{}
	d := NewDispatcher(failing, healthy)

	ctx := context.Background()
	d.Notify(ctx, Event{Type: InvoiceCreated, InvoiceID: "inv-1"})
	d.Notify(ctx, Event{Type: InvoiceCreated, InvoiceID: "inv-2"})
	if err := d.Close(ctx); err != nil {
		t.Fatal(err)
	}

	if n := len(healthy.got()); n != 2 {
		t.Errorf("healthy sink expected 2 events, got %d", n)
	}
}

func TestDispatcher_NotifyAfterCloseIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &recordingSink{}
	d := NewDispatcher(sink)
	ctx := context.Background()
	if err := d.Close(ctx); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		d.Notify(ctx, Event{Type: SettlementPaid})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked after Close")
	}
	if len(sink.got()) != 0 {
		t.Error("expected no delivery after close")
	}
	if err := d.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

type blockingSink struct{}

func (blockingSink) Name() string { return "blocking" }

func (blockingSink) Send(ctx context.Context, _ Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatcher_CloseHonoursDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := NewDispatcher(blockingSink{})
	d.Notify(context.Background(), Event{Type: BidPlaced})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
