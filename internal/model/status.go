package model

import "fmt"

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionUpcoming AuctionStatus = "upcoming"
	AuctionLive     AuctionStatus = "live"
	AuctionClosed   AuctionStatus = "closed"
)

var auctionTransitions = map[AuctionStatus][]AuctionStatus{
	AuctionUpcoming: {AuctionLive, AuctionClosed},
	AuctionLive:     {AuctionClosed},
}

// ParseAuctionStatus rejects anything outside the closed set.
func ParseAuctionStatus(s string) (AuctionStatus, error) {
	switch st := AuctionStatus(s); st {
	case AuctionUpcoming, AuctionLive, AuctionClosed:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown auction status %q", ErrInvalid, s)
}

func (s AuctionStatus) CanTransitionTo(next AuctionStatus) bool {
	return allowed(auctionTransitions[s], next)
}

// TransitionTo returns next, or ErrConflict when the move is not allowed.
func (s AuctionStatus) TransitionTo(next AuctionStatus) (AuctionStatus, error) {
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("%w: auction cannot move from %s to %s", ErrConflict, s, next)
	}
	return next, nil
}

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceUnpaid InvoiceStatus = "unpaid"
	InvoicePaid   InvoiceStatus = "paid"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceUnpaid: {InvoicePaid},
}

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch st := InvoiceStatus(s); st {
	case InvoiceUnpaid, InvoicePaid:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown invoice status %q", ErrInvalid, s)
}

func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	return allowed(invoiceTransitions[s], next)
}

func (s InvoiceStatus) TransitionTo(next InvoiceStatus) (InvoiceStatus, error) {
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("%w: invoice cannot move from %s to %s", ErrConflict, s, next)
	}
	return next, nil
}

// SettlementStatus is the payout state of a settlement.
type SettlementStatus string

const (
	SettlementDraft          SettlementStatus = "draft"
	SettlementPendingPayment SettlementStatus = "pending_payment"
	SettlementPaid           SettlementStatus = "paid"
	SettlementCancelled      SettlementStatus = "cancelled"
)

var settlementTransitions = map[SettlementStatus][]SettlementStatus{
	SettlementDraft:          {SettlementPendingPayment, SettlementCancelled},
	SettlementPendingPayment: {SettlementPaid, SettlementCancelled},
}

func ParseSettlementStatus(s string) (SettlementStatus, error) {
	switch st := SettlementStatus(s); st {
	case SettlementDraft, SettlementPendingPayment, SettlementPaid, SettlementCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown settlement status %q", ErrInvalid, s)
}

func (s SettlementStatus) CanTransitionTo(next SettlementStatus) bool {
	return allowed(settlementTransitions[s], next)
}

func (s SettlementStatus) TransitionTo(next SettlementStatus) (SettlementStatus, error) {
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("%w: settlement cannot move from %s to %s", ErrConflict, s, next)
	}
	return next, nil
}

// AdjustmentType classifies a settlement adjustment.
type AdjustmentType string

const (
	AdjustmentExpense   AdjustmentType = "expense"
	AdjustmentDeduction AdjustmentType = "deduction"
)

func ParseAdjustmentType(s string) (AdjustmentType, error) {
	switch t := AdjustmentType(s); t {
	case AdjustmentExpense, AdjustmentDeduction:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown adjustment type %q", ErrInvalid, s)
}

func allowed[T comparable](targets []T, next T) bool {
	for _, t := range targets {
		if t == next {
			return true
		}
	}
	return false
}
