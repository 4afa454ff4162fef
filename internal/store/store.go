// Package store defines the persistence interface for the auction engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/model"
)

// ItemFilter selects consigned items for settlement.
type ItemFilter struct {
	SellerID  string
	AuctionID *string
}

// Queries is the set of reads and writes available both directly on a Store
// and inside a transaction.
type Queries interface {
	// --- Auctions ---

	// CreateAuction persists a new auction.
	CreateAuction(ctx context.Context, a *model.Auction) error

	// GetAuction retrieves an auction by ID.
	GetAuction(ctx context.Context, id string) (*model.Auction, error)

	// LockAuction reads an auction and holds a row lock until the
	// surrounding transaction ends.
	LockAuction(ctx context.Context, id string) (*model.Auction, error)

	// UpdateAuctionStatus moves an auction to a new status.
	UpdateAuctionStatus(ctx context.Context, id string, status model.AuctionStatus, closedAt *time.Time) error

	// --- Items ---

	CreateItem(ctx context.Context, item *model.AuctionItem) error
	GetItem(ctx context.Context, id string) (*model.AuctionItem, error)

	// LockItem reads an item under a row lock; bid writes serialize on it.
	LockItem(ctx context.Context, id string) (*model.AuctionItem, error)

	// ListItemsByAuction returns an auction's items ordered by creation.
	ListItemsByAuction(ctx context.Context, auctionID string) ([]model.AuctionItem, error)

	// ListItemsBySettlement returns the items linked to a settlement.
	ListItemsBySettlement(ctx context.Context, settlementID string) ([]model.AuctionItem, error)

	// UpdateItemCurrentPrice stores the displayed proxy price.
	UpdateItemCurrentPrice(ctx context.Context, id string, price decimal.Decimal) error

	// MarkItemSold records the hammer price of a won lot.
	MarkItemSold(ctx context.Context, id string, soldPrice decimal.Decimal) error

	// ListUnsettledItems returns a seller's items with no settlement yet.
	// Items of auctions that are not closed are left out.
	ListUnsettledItems(ctx context.Context, f ItemFilter) ([]model.AuctionItem, error)

	// ListSellersWithUnsettledItems returns distinct seller IDs, sorted, with
	// the same selection as ListUnsettledItems.
	ListSellersWithUnsettledItems(ctx context.Context, auctionID *string) ([]string, error)

	// LinkItemsToSettlement sets settlement_id on every listed item that is
	// still unsettled and returns how many rows were linked.
	LinkItemsToSettlement(ctx context.Context, settlementID string, itemIDs []string) (int64, error)

	// --- Immutable bid ledger ---

	// InsertBid appends an immutable bid.
	InsertBid(ctx context.Context, bid *model.Bid) error

	// ListBidsByItem returns an item's bids ordered by amount descending,
	// then creation time ascending.
	ListBidsByItem(ctx context.Context, itemID string) ([]model.Bid, error)

	// ListBidsByAuction returns every bid on the auction's items, in the
	// same order as ListBidsByItem.
	ListBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)

	// --- Invoices ---

	// CreateInvoice persists an invoice header. Returns model.ErrDuplicate
	// when (auction, bidder) or the number is already taken.
	CreateInvoice(ctx context.Context, inv *model.Invoice) error

	CreateInvoiceLineItem(ctx context.Context, line *model.InvoiceLineItem) error

	// FindInvoice returns the invoice for an (auction, bidder) pair.
	FindInvoice(ctx context.Context, auctionID, bidderID string) (*model.Invoice, error)

	// GetInvoice returns an invoice with its line items.
	GetInvoice(ctx context.Context, id string) (*model.Invoice, error)

	ListInvoicesByAuction(ctx context.Context, auctionID string) ([]model.Invoice, error)
	CountInvoicesByAuction(ctx context.Context, auctionID string) (int, error)
	UpdateInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus, paidAt *time.Time) error

	// --- Settlements ---

	// NextSettlementSequence allocates the next number in a year's sequence.
	NextSettlementSequence(ctx context.Context, year int) (int64, error)

	CreateSettlement(ctx context.Context, st *model.Settlement) error

	// GetSettlement returns a settlement with ItemIDs populated.
	GetSettlement(ctx context.Context, id string) (*model.Settlement, error)

	// LockSettlement is GetSettlement under a row lock.
	LockSettlement(ctx context.Context, id string) (*model.Settlement, error)

	// UpdateSettlement writes status, adjustments, expenses, net payout and
	// paid timestamp. Totals and commission are immutable.
	UpdateSettlement(ctx context.Context, st *model.Settlement) error
}

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	Queries

	// InTx runs fn in a single transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, including on context cancellation.
	InTx(ctx context.Context, fn func(q Queries) error) error
}
