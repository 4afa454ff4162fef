package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func TestNATSSink_PublishesOnTypedSubject(t *testing.T) {
	pub := &fakePublisher{}
	sink := &NATSSink{pub: pub}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := sink.Send(context.Background(), Event{
		Type:       InvoiceCreated,
		AuctionID:  "auc-1",
		InvoiceID:  "inv-1",
		Amount:     "1320.00",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatal(err)
	}
	if pub.subject != "auction.events.invoice.created" {
		t.Errorf("unexpected subject %s", pub.subject)
	}

	e, err := DecodeEvent(pub.data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.InvoiceID != "inv-1" || e.Amount != "1320.00" || !e.OccurredAt.Equal(at) {
		t.Errorf("payload mismatch: %+v", e)
	}
}

func TestNATSSink_PublishError(t *testing.T) {
	sink := &NATSSink{pub: &fakePublisher{err: errors.New("nats: connection closed")}}
	if err := sink.Send(context.Background(), Event{Type: BidPlaced}); err == nil {
		t.Error("expected publish error")
	}
}

func TestWSHub_BroadcastsEvents(t *testing.T) {
	hub := NewWSHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := hub.Send(ctx, Event{Type: SettlementSubmitted, SettlementID: "stl-1"}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatal(err)
	}
	if e.Type != SettlementSubmitted || e.SettlementID != "stl-1" {
		t.Errorf("unexpected message %+v", e)
	}
}

func TestWSHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewWSHub() // not running, nothing drains the buffer
	var err error
	for i := 0; i < 300 && err == nil; i++ {
		err = hub.Send(context.Background(), Event{Type: BidPlaced})
	}
	if !errors.Is(err, ErrHubBufferFull) {
		t.Errorf("expected ErrHubBufferFull, got %v", err)
	}
}
