// Package invoice closes auctions and bills each winning bidder.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atmx/auction-settlement/internal/lock"
	"github.com/atmx/auction-settlement/internal/metrics"
	"github.com/atmx/auction-settlement/internal/model"
	"github.com/atmx/auction-settlement/internal/notify"
	"github.com/atmx/auction-settlement/internal/store"
	"github.com/atmx/auction-settlement/internal/winner"
)

// errInvoiced marks a group whose bidder already has an invoice.
var errInvoiced = errors.New("invoice: bidder already invoiced")

// numberAttempts bounds how many fresh invoice numbers a group tries after
// a number collision.
const numberAttempts = 3

// Numberer issues invoice numbers. *reference.InvoiceNumberer is the
// production implementation.
type Numberer interface {
	Next(auctionID, bidderID string) string
}

// CloseOptions tunes CloseAndInvoice.
type CloseOptions struct {
	// Resume re-runs generation on an auction that is already closed and
	// partly invoiced. Bidders with an invoice are skipped.
	Resume bool
}

// GroupFailure is a winner group that could not be invoiced.
type GroupFailure struct {
	BidderID string `json:"bidder_id"`
	Error    string `json:"error"`
}

// CloseResult reports the outcome of closing an auction. Fewer invoices
// than WinnerCount means some groups were skipped or failed.
type CloseResult struct {
	AuctionID   string          `json:"auction_id"`
	WinnerCount int             `json:"winner_count"`
	Invoices    []model.Invoice `json:"invoices"`
	Skipped     []string        `json:"skipped,omitempty"`
	Failed      []GroupFailure  `json:"failed,omitempty"`
}

// Generator closes auctions and creates one invoice per winning bidder.
type Generator struct {
	store    store.Store
	locker   lock.Locker
	numbers  Numberer
	notifier notify.Notifier
	now      func() time.Time
}

// NewGenerator creates an invoice generator. A nil notifier discards events.
func NewGenerator(st store.Store, l lock.Locker, numbers Numberer, n notify.Notifier) *Generator {
	if n == nil {
		n = notify.Nop{}
	}
	return &Generator{store: st, locker: l, numbers: numbers, notifier: n, now: time.Now}
}

// WithClock overrides the time source.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// CloseAndInvoice closes the auction and invoices every winner.
//
// The whole run holds the auction's generation lock. Closing and winner
// resolution share one transaction; each winner group is then written in
// its own transaction, so a failing group rolls back alone and is reported
// in CloseResult.Failed. A store outage or cancelled context stops the run;
// the partial result is returned together with the error.
//
// Closing an auction that is already closed and has invoices fails with
// model.ErrAlreadyFinalized unless opts.Resume is set.
func (g *Generator) CloseAndInvoice(ctx context.Context, auctionID string, opts CloseOptions) (*CloseResult, error) {
	start := time.Now()
	defer func() { metrics.CloseLatency.Observe(time.Since(start).Seconds()) }()

	unlock, err := g.locker.Lock(ctx, "auction:"+auctionID)
	if err != nil {
		return nil, fmt.Errorf("close auction %s: acquire lock: %w", auctionID, err)
	}
	defer unlock()

	var groups []winner.Group
	err = g.store.InTx(ctx, func(q store.Queries) error {
		auction, err := q.LockAuction(ctx, auctionID)
		if err != nil {
			return err
		}

		if auction.Status == model.AuctionClosed {
			n, err := q.CountInvoicesByAuction(ctx, auctionID)
			if err != nil {
				return err
			}
			if n > 0 && !opts.Resume {
				return fmt.Errorf("%w: %d invoices exist", model.ErrAlreadyFinalized, n)
			}
		} else {
			next, err := auction.Status.TransitionTo(model.AuctionClosed)
			if err != nil {
				return err
			}
			closedAt := g.now().UTC()
			if err := q.UpdateAuctionStatus(ctx, auctionID, next, &closedAt); err != nil {
				return err
			}
		}

		groups, err = winner.ResolveWith(ctx, q, auctionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("close auction %s: %w", auctionID, err)
	}

	slog.Info("auction closed", "auction_id", auctionID, "winners", len(groups), "resume", opts.Resume)

	result := &CloseResult{
		AuctionID:   auctionID,
		WinnerCount: len(groups),
		Invoices:    make([]model.Invoice, 0, len(groups)),
	}
	for _, grp := range groups {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("close auction %s: %w", auctionID, err)
		}

		inv, err := g.invoiceWithRetry(ctx, auctionID, grp)
		switch {
		case err == nil:
			result.Invoices = append(result.Invoices, *inv)
			metrics.InvoicesCreated.Inc()
			metrics.InvoiceGroups.WithLabelValues("created").Inc()
			slog.Info("invoice created",
				"invoice_id", inv.ID,
				"number", inv.Number,
				"auction_id", auctionID,
				"bidder_id", grp.BidderID,
				"total", inv.TotalAmount.String(),
			)
			g.notifier.Notify(ctx, notify.Event{
				Type:       notify.InvoiceCreated,
				AuctionID:  auctionID,
				BidderID:   grp.BidderID,
				InvoiceID:  inv.ID,
				Reference:  inv.Number,
				Amount:     inv.TotalAmount.StringFixed(2),
				OccurredAt: inv.CreatedAt,
			})

		case errors.Is(err, errInvoiced):
			result.Skipped = append(result.Skipped, grp.BidderID)
			metrics.InvoiceGroups.WithLabelValues("skipped").Inc()
			slog.Info("invoice group skipped", "auction_id", auctionID, "bidder_id", grp.BidderID)

		case errors.Is(err, model.ErrUnavailable), ctx.Err() != nil:
			metrics.InvoiceGroups.WithLabelValues("failed").Inc()
			return result, fmt.Errorf("close auction %s: invoice bidder %s: %w", auctionID, grp.BidderID, err)

		default:
			result.Failed = append(result.Failed, GroupFailure{BidderID: grp.BidderID, Error: err.Error()})
			metrics.InvoiceGroups.WithLabelValues("failed").Inc()
			slog.Error("invoice group failed", "auction_id", auctionID, "bidder_id", grp.BidderID, "err", err)
		}
	}
	return result, nil
}

// invoiceWithRetry runs invoiceGroup until it succeeds or fails for a reason
// other than a duplicate key. A duplicate means the bidder is already
// invoiced only when the invoice can be read back; otherwise the number
// collided with another invoice and the group is retried with a new one.
func (g *Generator) invoiceWithRetry(ctx context.Context, auctionID string, grp winner.Group) (*model.Invoice, error) {
	var err error
	for attempt := 1; attempt <= numberAttempts; attempt++ {
		var inv *model.Invoice
		inv, err = g.invoiceGroup(ctx, auctionID, grp)
		if !errors.Is(err, model.ErrDuplicate) {
			return inv, err
		}

		_, ferr := g.store.FindInvoice(ctx, auctionID, grp.BidderID)
		if ferr == nil {
			return nil, errInvoiced
		}
		if !errors.Is(ferr, model.ErrNotFound) {
			return nil, ferr
		}
		slog.Warn("invoice number collision",
			"auction_id", auctionID,
			"bidder_id", grp.BidderID,
			"attempt", attempt,
			"err", err,
		)
	}
	return nil, fmt.Errorf("no unique invoice number after %d attempts: %w", numberAttempts, err)
}

// invoiceGroup writes one winner's invoice, its line items and the sold
// state of the won lots in a single transaction.
func (g *Generator) invoiceGroup(ctx context.Context, auctionID string, grp winner.Group) (*model.Invoice, error) {
	var created model.Invoice
	err := g.store.InTx(ctx, func(q store.Queries) error {
		_, err := q.FindInvoice(ctx, auctionID, grp.BidderID)
		if err == nil {
			return errInvoiced
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}

		inv := model.Invoice{
			ID:          uuid.New().String(),
			Number:      g.numbers.Next(auctionID, grp.BidderID),
			AuctionID:   auctionID,
			BidderID:    grp.BidderID,
			Subtotal:    grp.TotalAmount,
			TotalAmount: grp.TotalAmount,
			Status:      model.InvoiceUnpaid,
			CreatedAt:   g.now().UTC(),
		}
		if err := q.CreateInvoice(ctx, &inv); err != nil {
			return err
		}

		for _, w := range grp.Wins {
			line := model.InvoiceLineItem{
				ID:            uuid.New().String(),
				InvoiceID:     inv.ID,
				ItemID:        w.Item.ID,
				BidID:         w.Bid.ID,
				BidAmount:     w.BidAmount,
				BuyersPremium: w.BuyersPremium,
				TaxAmount:     w.TaxAmount,
				LineTotal:     w.LineTotal,
			}
			if err := q.CreateInvoiceLineItem(ctx, &line); err != nil {
				return err
			}
			if err := q.MarkItemSold(ctx, w.Item.ID, w.BidAmount); err != nil {
				return err
			}
			inv.LineItems = append(inv.LineItems, line)
		}
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// MarkPaid moves an invoice from unpaid to paid.
func (g *Generator) MarkPaid(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	var inv *model.Invoice
	err := g.store.InTx(ctx, func(q store.Queries) error {
		var err error
		inv, err = q.GetInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		next, err := inv.Status.TransitionTo(model.InvoicePaid)
		if err != nil {
			return err
		}
		paidAt := g.now().UTC()
		if err := q.UpdateInvoiceStatus(ctx, invoiceID, next, &paidAt); err != nil {
			return err
		}
		inv.Status = next
		inv.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark invoice %s paid: %w", invoiceID, err)
	}

	slog.Info("invoice paid", "invoice_id", inv.ID, "bidder_id", inv.BidderID)
	g.notifier.Notify(ctx, notify.Event{
		Type:       notify.InvoicePaid,
		AuctionID:  inv.AuctionID,
		BidderID:   inv.BidderID,
		InvoiceID:  inv.ID,
		Reference:  inv.Number,
		Amount:     inv.TotalAmount.StringFixed(2),
		OccurredAt: *inv.PaidAt,
	})
	return inv, nil
}

// Get returns an invoice with its line items.
func (g *Generator) Get(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	return g.store.GetInvoice(ctx, invoiceID)
}

// ListByAuction returns the invoices of an auction, ordered by bidder.
func (g *Generator) ListByAuction(ctx context.Context, auctionID string) ([]model.Invoice, error) {
	if _, err := g.store.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	return g.store.ListInvoicesByAuction(ctx, auctionID)
}
