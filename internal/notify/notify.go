// Package notify delivers domain events to external collaborators: the
// message bus and the admin console's live feed. Delivery is best effort
// and never fails or blocks the operation that raised the event.
package notify

import (
	"context"
	"time"
)

// EventType names a domain event.
type EventType string

const (
	BidPlaced           EventType = "bid.placed"
	InvoiceCreated      EventType = "invoice.created"
	InvoicePaid         EventType = "invoice.paid"
	SettlementGenerated EventType = "settlement.generated"
	SettlementSubmitted EventType = "settlement.submitted"
	SettlementPaid      EventType = "settlement.paid"
	SettlementCancelled EventType = "settlement.cancelled"
)

// Event is the payload published for every domain event. Amount is a
// decimal string so consumers never see float money.
type Event struct {
	Type         EventType `json:"type" msgpack:"type"`
	AuctionID    string    `json:"auction_id,omitempty" msgpack:"auction_id,omitempty"`
	ItemID       string    `json:"item_id,omitempty" msgpack:"item_id,omitempty"`
	BidderID     string    `json:"bidder_id,omitempty" msgpack:"bidder_id,omitempty"`
	SellerID     string    `json:"seller_id,omitempty" msgpack:"seller_id,omitempty"`
	InvoiceID    string    `json:"invoice_id,omitempty" msgpack:"invoice_id,omitempty"`
	SettlementID string    `json:"settlement_id,omitempty" msgpack:"settlement_id,omitempty"`
	Reference    string    `json:"reference,omitempty" msgpack:"reference,omitempty"`
	Amount       string    `json:"amount,omitempty" msgpack:"amount,omitempty"`
	OccurredAt   time.Time `json:"occurred_at" msgpack:"occurred_at"`
}

// Notifier accepts events for delivery. Implementations must not block
// the caller on downstream I/O and must not return errors.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Sink is one delivery target.
type Sink interface {
	Name() string
	Send(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
