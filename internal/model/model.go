// Package model defines the core domain types shared across the auction engine.
// All monetary values use shopspring/decimal, never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auction groups the lots that close together.
type Auction struct {
	ID        string        `json:"id" db:"id"`
	Title     string        `json:"title" db:"title"`
	Status    AuctionStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty" db:"closed_at"`
}

// AuctionItem is one consigned lot. CurrentPrice is the displayed proxy
// price; it is nil until the first bid and never decreases afterwards.
type AuctionItem struct {
	ID                   string           `json:"id" db:"id"`
	AuctionID            string           `json:"auction_id" db:"auction_id"`
	SellerID             string           `json:"seller_id" db:"seller_id"`
	Title                string           `json:"title" db:"title"`
	BasePrice            decimal.Decimal  `json:"base_price" db:"base_price"`
	CurrentPrice         *decimal.Decimal `json:"current_price,omitempty" db:"current_price"`
	ReservePrice         *decimal.Decimal `json:"reserve_price,omitempty" db:"reserve_price"`
	BuyersPremiumPercent *decimal.Decimal `json:"buyers_premium_percent,omitempty" db:"buyers_premium_percent"`
	TaxPercent           *decimal.Decimal `json:"tax_percent,omitempty" db:"tax_percent"`
	IsSold               bool             `json:"is_sold" db:"is_sold"`
	SoldPrice            *decimal.Decimal `json:"sold_price,omitempty" db:"sold_price"`
	SettlementID         *string          `json:"settlement_id,omitempty" db:"settlement_id"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
}

// Bid is an immutable entry in an item's bid ledger.
// Once created, bids are never modified or deleted.
type Bid struct {
	ID        string          `json:"id" db:"id"`
	ItemID    string          `json:"item_id" db:"item_id"`
	BidderID  string          `json:"bidder_id" db:"bidder_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Invoice bills one winning bidder for every lot they won in one auction.
// At most one invoice exists per (AuctionID, BidderID).
type Invoice struct {
	ID          string            `json:"id" db:"id"`
	Number      string            `json:"number" db:"number"`
	AuctionID   string            `json:"auction_id" db:"auction_id"`
	BidderID    string            `json:"bidder_id" db:"bidder_id"`
	Subtotal    decimal.Decimal   `json:"subtotal" db:"subtotal"`
	TotalAmount decimal.Decimal   `json:"total_amount" db:"total_amount"`
	Status      InvoiceStatus     `json:"status" db:"status"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	PaidAt      *time.Time        `json:"paid_at,omitempty" db:"paid_at"`
	LineItems   []InvoiceLineItem `json:"line_items"`
}

// InvoiceLineItem is one won lot on an invoice.
// LineTotal = BidAmount + BuyersPremium + TaxAmount.
type InvoiceLineItem struct {
	ID            string          `json:"id" db:"id"`
	InvoiceID     string          `json:"invoice_id" db:"invoice_id"`
	ItemID        string          `json:"item_id" db:"item_id"`
	BidID         string          `json:"bid_id" db:"bid_id"`
	BidAmount     decimal.Decimal `json:"bid_amount" db:"bid_amount"`
	BuyersPremium decimal.Decimal `json:"buyers_premium" db:"buyers_premium"`
	TaxAmount     decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	LineTotal     decimal.Decimal `json:"line_total" db:"line_total"`
}

// Adjustment is a seller-side charge applied to a settlement.
type Adjustment struct {
	Type   AdjustmentType  `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

// Settlement is a seller statement over a frozen set of consigned items.
// Expenses holds expense and deduction adjustments combined.
type Settlement struct {
	ID             string           `json:"id" db:"id"`
	Reference      string           `json:"reference" db:"reference"`
	SellerID       string           `json:"seller_id" db:"seller_id"`
	AuctionID      *string          `json:"auction_id,omitempty" db:"auction_id"`
	CommissionRate decimal.Decimal  `json:"commission_rate" db:"commission_rate"`
	TotalSales     decimal.Decimal  `json:"total_sales" db:"total_sales"`
	Commission     decimal.Decimal  `json:"commission" db:"commission"`
	Expenses       decimal.Decimal  `json:"expenses" db:"expenses"`
	Adjustments    []Adjustment     `json:"adjustments" db:"adjustments"`
	NetPayout      decimal.Decimal  `json:"net_payout" db:"net_payout"`
	Status         SettlementStatus `json:"status" db:"status"`
	ItemIDs        []string         `json:"item_ids"`
	GeneratedAt    time.Time        `json:"generated_at" db:"generated_at"`
	PaidAt         *time.Time       `json:"paid_at,omitempty" db:"paid_at"`
}
